package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestWithinTransaction(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		db, mock := newMockGorm(t)
		tx := NewTransactor(db, 0)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			assert.True(t, InTransaction(ctx))
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback keeps domain error", func(t *testing.T) {
		db, mock := newMockGorm(t)
		tx := NewTransactor(db, 0)

		mock.ExpectBegin()
		mock.ExpectRollback()

		want := domain.NewConflictError("property already has an approved booking")
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			return want
		})
		assert.Same(t, want, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nested call joins outer transaction", func(t *testing.T) {
		db, mock := newMockGorm(t)
		tx := NewTransactor(db, 0)

		mock.ExpectBegin()
		mock.ExpectCommit()

		calls := 0
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			return tx.WithinTransaction(ctx, func(ctx context.Context) error {
				calls++
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithinTransaction_Retry(t *testing.T) {
	serialization := func() error { return &pgconn.PgError{Code: "40001"} }

	t.Run("Replays after a serialization failure", func(t *testing.T) {
		db, mock := newMockGorm(t)
		tx := NewTransactor(db, 0)

		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectCommit()

		calls := 0
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return TranslateError(serialization())
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Replays when commit hits a deadlock", func(t *testing.T) {
		db, mock := newMockGorm(t)
		tx := NewTransactor(db, 0)

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40P01"})
		mock.ExpectBegin()
		mock.ExpectCommit()

		calls := 0
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gives up after the attempt limit", func(t *testing.T) {
		db, mock := newMockGorm(t)
		tx := NewTransactor(db, 0)

		for i := 0; i < maxTxAttempts; i++ {
			mock.ExpectBegin()
			mock.ExpectRollback()
		}

		calls := 0
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			calls++
			return serialization()
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.True(t, IsRetryable(err))
		assert.Equal(t, maxTxAttempts, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other conflicts are not replayed", func(t *testing.T) {
		db, mock := newMockGorm(t)
		tx := NewTransactor(db, 0)

		mock.ExpectBegin()
		mock.ExpectRollback()

		calls := 0
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			calls++
			return domain.NewStaleVersionError("Payment", "p-1")
		})
		assert.ErrorIs(t, err, domain.ErrStaleVersion)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTranslateError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"record not found", gorm.ErrRecordNotFound, domain.ErrNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, domain.ErrConflict},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, domain.ErrConflict},
		{"exclusion violation", &pgconn.PgError{Code: "23P01"}, domain.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, domain.KindOf(TranslateError(tc.err)))
		})
	}

	deadlock := TranslateError(&pgconn.PgError{Code: "40P01"})
	assert.True(t, IsRetryable(deadlock))
	assert.False(t, IsRetryable(TranslateError(&pgconn.PgError{Code: "23505"})))

	plain := errors.New("disk full")
	assert.Same(t, plain, TranslateError(plain))
	assert.Nil(t, TranslateError(nil))
}
