package compensation

import (
	"context"

	"github.com/google/uuid"
)

// RequestRepository defines the persistence contract for compensation requests.
type RequestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Request, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Request, error)
	Save(ctx context.Context, request *Request) error
	// Update persists a resolution with optimistic locking on version.
	Update(ctx context.Context, request *Request) error
	// Delete removes a pending request if it still has the version it was read
	// at. It fails with NotFound when the row is gone and Conflict otherwise.
	Delete(ctx context.Context, request *Request) error
}
