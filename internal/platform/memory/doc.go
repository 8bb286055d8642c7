// Package memory implements the store contracts in process memory. It backs
// the service tests and the store.driver=memory development mode, and keeps
// the same uniqueness and conditional-update guarantees as the SQL schema.
package memory
