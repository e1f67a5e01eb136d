package tx

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	dErrors "atti/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// Gorm runs fn inside a database transaction. Calls made while a transaction
// is already in context join it instead of nesting.
type Gorm struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db, timeout: defaultTxTimeout}
}

func (g *Gorm) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GormFrom(ctx); ok {
		return fn(ctx)
	}
	ctx, cancel, err := bound(ctx, g.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	return g.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(WithGorm(ctx, gtx))
	})
}

type lockedKey struct{}

// Locked serializes fn behind a single mutex. It is the in-memory stand-in
// for a database transaction.
type Locked struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewLocked() *Locked {
	return &Locked{timeout: defaultTxTimeout}
}

func (l *Locked) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(lockedKey{}) == l {
		return fn(ctx)
	}
	ctx, cancel, err := bound(ctx, l.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(context.WithValue(ctx, lockedKey{}, l))
}

func bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline || timeout == 0 {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}
