package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs a reaction write sequence atomically. The ledger and counter
// store handed to fn are bound to the same database transaction; returning an
// error from fn rolls every write back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ledger ReactionLedger, counters CounterStore) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a new Transactor
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

// WithinTransaction opens a transaction and commits it when fn returns nil
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ledger ReactionLedger, counters CounterStore) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewReactionRepository(tx), NewCounterRepository(tx))
	})
}
