package database

import (
	"errors"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes that surface as conflicts.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgExclusionViolation   = "23P01"
)

// TranslateError maps storage errors onto the domain taxonomy. Domain errors
// and unknown errors are returned untouched.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var domErr *domain.DomainError
	if errors.As(err, &domErr) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.DomainError{Err: domain.ErrNotFound, Message: "record not found"}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("record conflicts with an existing one")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return domain.WrapConflictError("concurrent modification detected, retry the request", err)
		case pgUniqueViolation, pgExclusionViolation:
			return domain.NewConflictError("record conflicts with an existing one")
		}
	}

	return err
}

// IsRetryable reports whether err carries a Postgres serialization failure or
// deadlock, after which the whole transaction may be replayed.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}
