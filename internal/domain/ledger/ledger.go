// Package ledger records balance movements as append-only entries.
package ledger

import (
	"context"
	"time"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reason explains why a balance moved.
type Reason string

const (
	ReasonCompensationApproved Reason = "compensation_approved"
)

// Entry is a single credit to a user's balance.
type Entry struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Reason      Reason
	ReferenceID uuid.UUID
	CreatedAt   time.Time
}

// NewCredit builds a positive entry.
func NewCredit(userID uuid.UUID, amount decimal.Decimal, reason Reason, referenceID uuid.UUID, now time.Time) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, domain.NewBadRequestError("credit amount must be positive")
	}
	return Entry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   now,
	}, nil
}

// Repository appends entries and maintains the running balance. Credit must
// run inside the caller's transaction so that the entry and the state change
// that caused it commit together.
type Repository interface {
	Credit(ctx context.Context, entry Entry) error
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListEntries(ctx context.Context, userID uuid.UUID) ([]Entry, error)
}
