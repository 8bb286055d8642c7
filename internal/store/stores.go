package store

import "context"

// Stores bundles every store so a unit of work can hand a consistent,
// transaction-bound set to its callback.
type Stores struct {
	Cards       CardStore
	Collections CollectionStore
	Grants      GrantStore
	Sessions    SessionStore
	Imports     ImportStore
	Classes     ClassStore
}

// Transactor runs a function against stores bound to a single transaction.
// If fn returns an error or panics every write made through the provided
// stores is discarded.
type Transactor interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error
}
