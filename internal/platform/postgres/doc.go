// Package postgres implements the store contracts on PostgreSQL through the
// pgx database/sql driver, and ships the schema as goose migrations embedded
// in the binary.
package postgres
