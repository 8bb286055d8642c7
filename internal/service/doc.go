// Package service holds what the use-case packages below it share: the
// ServiceError wrapper and the translation of store errors into the domain
// error taxonomy.
//
// Each use case lives in its own subpackage (review, session, evaluation,
// distribution, importer). Services depend on the store interfaces and a
// store.Transactor, never on a concrete backend, and return errors that wrap
// exactly one domain taxonomy error so the API layer can map them with
// errors.Is.
package service
