// Package property describes the slice of the property catalog this service reads.
package property

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Summary is the read model of a listed property.
type Summary struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	City        string
	PricePerDay decimal.Decimal
	UpdatedAt   time.Time
}

// Catalog answers price and ownership questions about properties.
// Absent properties yield NotFound, except for IsOwnedBy which answers false.
type Catalog interface {
	GetPricePerDay(ctx context.Context, propertyID uuid.UUID) (decimal.Decimal, error)
	IsOwnedBy(ctx context.Context, propertyID, userID uuid.UUID) (bool, error)
	GetSummary(ctx context.Context, propertyID uuid.UUID) (Summary, error)
	GetSummaries(ctx context.Context, propertyIDs []uuid.UUID) (map[uuid.UUID]Summary, error)
}

// Repository stores the property read model.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (Summary, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Summary, error)
	// Upsert writes s unless a newer version is already stored.
	Upsert(ctx context.Context, s Summary) error
	Delete(ctx context.Context, id uuid.UUID) error
}
