package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
)

// maxTxAttempts bounds how often a transaction aborted by a serialization
// failure or deadlock is replayed.
const maxTxAttempts = 3

type txKey struct{}

// Transactor runs units of work inside a single database transaction.
// Repositories pick the transaction up from the context through Conn.
type Transactor struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
}

// NewTransactor creates a Transactor. Production wiring passes
// sql.LevelSerializable so that check-then-write sequences cannot interleave.
func NewTransactor(db *gorm.DB, isolation sql.IsolationLevel) *Transactor {
	return &Transactor{db: db, isolation: isolation}
}

// WithinTransaction runs fn in a transaction. Nested calls join the outer one.
//
// When Postgres aborts the outermost transaction with a serialization failure
// or a deadlock, fn is replayed in a fresh transaction up to maxTxAttempts
// times, so fn must load whatever it writes from inside the transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	var opts []*sql.TxOptions
	if t.isolation != sql.LevelDefault {
		opts = append(opts, &sql.TxOptions{Isolation: t.isolation})
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond

	return backoff.Retry(func() error {
		err := TranslateError(t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		}, opts...))
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxTxAttempts-1), ctx))
}

// Conn returns the transaction bound to ctx, or db when there is none.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// InTransaction reports whether ctx carries a transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}
