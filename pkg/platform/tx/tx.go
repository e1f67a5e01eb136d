// Package tx carries transaction handles through context so stores can join a
// transaction opened by the service layer.
package tx

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

type (
	sqlKey  struct{}
	gormKey struct{}
)

// Runner opens a transactional boundary around fn. Stores called with the
// context passed to fn participate in the same transaction.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, sqlKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(sqlKey{}).(*sql.Tx)
	return tx, ok
}

// WithGorm stores a GORM transaction handle in context.
func WithGorm(ctx context.Context, tx *gorm.DB) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, gormKey{}, tx)
}

// GormFrom extracts a GORM transaction handle from context if present.
func GormFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(gormKey{}).(*gorm.DB)
	return tx, ok
}
