package payment

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository defines the persistence contract for Payment aggregates.
type PaymentRepository interface {
	// FindByID retrieves a payment by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindLatestByBookingID retrieves the most recent payment of a booking.
	FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error)

	// LatestByBookingIDs returns the most recent payment per booking. Bookings
	// without payments are absent from the map.
	LatestByBookingIDs(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]*Payment, error)

	// HasActivePayment reports whether the booking has a payment that is not canceled.
	HasActivePayment(ctx context.Context, bookingID uuid.UUID) (bool, error)

	// Save persists a new payment.
	Save(ctx context.Context, payment *Payment) error

	// Update persists changes with optimistic locking on version.
	Update(ctx context.Context, payment *Payment) error
}
