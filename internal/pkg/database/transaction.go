package database

import (
	"context"

	"gorm.io/gorm"
)

// TxFunc defines a function executed within a transaction. It is an
// alias so callers can accept *DB behind their own interfaces.
type TxFunc = func(ctx context.Context) error

// Transaction runs fn inside a transaction. The transaction handle is
// carried in the context so repositories joined by FromContext share it;
// either every write in fn commits or none do.
func (db *DB) Transaction(ctx context.Context, fn TxFunc) error {
	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextWithTx(ctx, tx))
	})
}

type txKey struct{}

func contextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromContext returns the transaction bound to ctx, or the base handle
// when no transaction is open.
func (db *DB) FromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.DB.WithContext(ctx)
}
