package booking

import (
	"fmt"
	"time"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// IsActive reports whether a booking in this status still holds its dates.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusApproved || s == StatusCompleted
}

// Guest limits enforced on creation.
const (
	MaxAdults = 10
	MaxGuests = 15
	MinStay   = 24 * time.Hour
)

var nanosPerDay = decimal.NewFromInt(int64(24 * time.Hour))

// Guests describes who is staying.
type Guests struct {
	Adults   int
	Children int
	HasPets  bool
}

// Booking is the aggregate root for a tenant's reservation of a property.
type Booking struct {
	id         uuid.UUID
	propertyID uuid.UUID
	tenantID   uuid.UUID
	checkIn    time.Time
	checkOut   time.Time
	guests     Guests
	totalPrice decimal.Decimal
	status     Status
	version    int64
	createdAt  time.Time
	updatedAt  time.Time
}

// NewBooking validates the stay and creates a pending booking priced at pricePerDay.
func NewBooking(propertyID, tenantID uuid.UUID, checkIn, checkOut time.Time, guests Guests, pricePerDay decimal.Decimal, now time.Time) (*Booking, error) {
	checkIn, checkOut = checkIn.UTC(), checkOut.UTC()
	if err := ValidateStay(checkIn, checkOut, guests); err != nil {
		return nil, err
	}
	if !pricePerDay.IsPositive() {
		return nil, domain.NewBadRequestError("property price per day must be positive")
	}

	return &Booking{
		id:         uuid.New(),
		propertyID: propertyID,
		tenantID:   tenantID,
		checkIn:    checkIn,
		checkOut:   checkOut,
		guests:     guests,
		totalPrice: TotalPrice(pricePerDay, checkIn, checkOut),
		status:     StatusPending,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ValidateStay checks the date range and guest counts of a booking request.
func ValidateStay(checkIn, checkOut time.Time, guests Guests) error {
	if !checkIn.Before(checkOut) {
		return domain.NewBadRequestError("check-in must be before check-out")
	}
	if checkOut.Sub(checkIn) < MinStay {
		return domain.NewBadRequestError("booking must cover at least one day")
	}
	if guests.Adults < 1 || guests.Adults > MaxAdults {
		return domain.NewBadRequestError(fmt.Sprintf("adults count must be between 1 and %d", MaxAdults))
	}
	if guests.Children < 0 {
		return domain.NewBadRequestError("children count cannot be negative")
	}
	if total := guests.Adults + guests.Children; total > MaxGuests {
		return domain.NewBadRequestError(fmt.Sprintf("total guests must be between 1 and %d", MaxGuests))
	}
	return nil
}

// TotalPrice charges pricePerDay for the exact, possibly fractional, number
// of days between checkIn and checkOut. The result is not rounded; gateways
// format it to their own precision.
func TotalPrice(pricePerDay decimal.Decimal, checkIn, checkOut time.Time) decimal.Decimal {
	span := decimal.NewFromInt(int64(checkOut.Sub(checkIn)))
	return pricePerDay.Mul(span).Div(nanosPerDay)
}

// Overlaps reports whether the half-open ranges [in1, out1) and [in2, out2) intersect.
func Overlaps(in1, out1, in2, out2 time.Time) bool {
	return in1.Before(out2) && out1.After(in2)
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID               { return b.id }
func (b *Booking) PropertyID() uuid.UUID       { return b.propertyID }
func (b *Booking) TenantID() uuid.UUID         { return b.tenantID }
func (b *Booking) CheckIn() time.Time          { return b.checkIn }
func (b *Booking) CheckOut() time.Time         { return b.checkOut }
func (b *Booking) Guests() Guests              { return b.guests }
func (b *Booking) TotalPrice() decimal.Decimal { return b.totalPrice }
func (b *Booking) Status() Status              { return b.status }
func (b *Booking) Version() int64              { return b.version }
func (b *Booking) CreatedAt() time.Time        { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time        { return b.updatedAt }

// IsTenant reports whether userID made this booking.
func (b *Booking) IsTenant(userID uuid.UUID) bool { return b.tenantID == userID }

// --- State transitions ---

// Approve moves a pending booking to approved. The caller must already have
// checked that no other booking of the property is approved.
func (b *Booking) Approve(now time.Time) error {
	return b.transition(now, StatusApproved, StatusPending)
}

// Reject moves a pending booking to rejected.
func (b *Booking) Reject(now time.Time) error {
	return b.transition(now, StatusRejected, StatusPending)
}

// Cancel moves a pending or approved booking to cancelled.
func (b *Booking) Cancel(now time.Time) error {
	return b.transition(now, StatusCancelled, StatusPending, StatusApproved)
}

// Complete moves an approved booking to completed once it has been paid.
func (b *Booking) Complete(now time.Time) error {
	return b.transition(now, StatusCompleted, StatusApproved)
}

func (b *Booking) transition(now time.Time, to Status, from ...Status) error {
	for _, s := range from {
		if b.status == s {
			b.status = to
			b.version++
			b.updatedAt = now
			return nil
		}
	}
	return domain.NewInvalidStateError(string(b.status), string(to))
}

// Payout is what the owner collects: the total less any approved compensation.
func (b *Booking) Payout(approvedCompensation decimal.Decimal) decimal.Decimal {
	return b.totalPrice.Sub(approvedCompensation)
}

// --- Reconstitution ---

// Reconstitute rebuilds a Booking from persisted data.
func Reconstitute(
	id, propertyID, tenantID uuid.UUID,
	checkIn, checkOut time.Time,
	guests Guests,
	totalPrice decimal.Decimal,
	status Status,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:         id,
		propertyID: propertyID,
		tenantID:   tenantID,
		checkIn:    checkIn.UTC(),
		checkOut:   checkOut.UTC(),
		guests:     guests,
		totalPrice: totalPrice,
		status:     status,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}
