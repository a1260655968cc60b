package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for Booking aggregates.
// Methods join the transaction carried by ctx, if any.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists a state change with optimistic locking on version.
	Update(ctx context.Context, booking *Booking) error

	// HasOverlapping reports whether the tenant holds an active booking of the
	// property whose dates intersect [checkIn, checkOut).
	HasOverlapping(ctx context.Context, tenantID, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error)

	// HasApprovedBooking reports whether any booking of the property other than exclude is approved.
	HasApprovedBooking(ctx context.Context, propertyID, exclude uuid.UUID) (bool, error)

	// ListByProperty returns the property's bookings except cancelled ones, newest check-in first.
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Booking, error)

	// ListByTenant returns every booking made by the tenant, newest check-in first.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Booking, error)
}
