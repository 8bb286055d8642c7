package mocks

import (
	"context"

	"github.com/phrazzld/scry-classroom/internal/store"
)

// Transactor runs the callback directly against Stores. BeginErr, when set,
// is returned without calling the callback.
type Transactor struct {
	Stores   store.Stores
	BeginErr error
	Calls    int
}

var _ store.Transactor = (*Transactor)(nil)

// Within implements store.Transactor.
func (t *Transactor) Within(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) error {
	t.Calls++
	if t.BeginErr != nil {
		return t.BeginErr
	}
	return fn(ctx, t.Stores)
}
