package database

import (
	"context"

	"gorm.io/gorm"
)

type ctxTxKey struct{}

// Transactor runs a function inside a database transaction carried by the context.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor over the given pool.
func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// Transact commits when fn returns nil and rolls back otherwise.
// A call made while a transaction is already open joins it.
func (t *Transactor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(ctxTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, ctxTxKey{}, tx))
	})
}

// Conn returns the transaction bound to ctx, or the pool when there is none.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxTxKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(ctxTxKey{}).(*gorm.DB)
	return ok
}
