// Package api exposes the review, session, evaluation, distribution and
// import services over HTTP. Handlers decode and validate requests, take the
// caller identity from the auth middleware and map domain errors onto status
// codes.
package api
