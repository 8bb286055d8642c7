// Package store defines the persistence contracts of the platform. Services
// depend only on these interfaces; the postgres and memory packages provide
// implementations. Store methods report store errors (ErrNotFound,
// ErrDuplicate, ErrPreconditionFailed); mapping them onto the domain error
// taxonomy is the caller's job.
package store
