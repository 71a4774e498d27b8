// Package counter persists the last-issued sequence state per
// (scope, section) pair. Counter rows are written only by the allocator and
// the resetter, both of which serialize per pair; the store itself just has
// to make individual reads and writes atomic.
package counter

import (
	"context"
	"database/sql"
	"fmt"

	"doctrack/internal/tracking/models"
	txcontext "doctrack/pkg/platform/tx"
)

// Store is the counter persistence contract. Get returns
// sentinel.ErrNotFound for a never-seen (scope, section) pair; Upsert
// inserts or overwrites the row.
type Store interface {
	Get(ctx context.Context, scope models.Scope, section string) (*models.Counter, error)
	Upsert(ctx context.Context, ctr *models.Counter) error
}

// TxBeginner is implemented by stores whose backend can serialize the
// surrounding read-modify-write with a database transaction. The Postgres
// store uses it to take a row lock in Get (see pkg/platform/tx), which keeps
// counters safe across replicas where an in-process lock cannot.
type TxBeginner interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
}

// WithTx runs fn inside a transaction joined to the context when the store
// supports one, committing on success and rolling back on error. Stores
// without transactions (memory, redis) run fn directly; those backends rely
// on the caller's in-process serialization alone.
func WithTx(ctx context.Context, store Store, fn func(ctx context.Context) error) error {
	beginner, ok := store.(TxBeginner)
	if !ok {
		return fn(ctx)
	}

	tx, err := beginner.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin counter tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit counter tx: %w", err)
	}
	return nil
}
