// Package compensation models a tenant's damage compensation claim against a booking.
package compensation

import (
	"strings"
	"time"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of a compensation request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is the aggregate root for a compensation claim.
type Request struct {
	id              uuid.UUID
	bookingID       uuid.UUID
	propertyID      uuid.UUID
	tenantID        uuid.UUID
	description     string
	proofPhotos     []string
	requestedAmount decimal.Decimal
	approvedAmount  *decimal.Decimal
	status          Status
	requestDate     time.Time
	resolutionDate  *time.Time
	version         int64
}

// NewRequest creates a pending claim. proofPhotos are blob keys already uploaded.
func NewRequest(bookingID, propertyID, tenantID uuid.UUID, description string, requestedAmount decimal.Decimal, proofPhotos []string, now time.Time) (*Request, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, domain.NewBadRequestError("description is required")
	}
	if !requestedAmount.IsPositive() {
		return nil, domain.NewBadRequestError("requested amount must be positive")
	}
	return &Request{
		id:              uuid.New(),
		bookingID:       bookingID,
		propertyID:      propertyID,
		tenantID:        tenantID,
		description:     description,
		proofPhotos:     append([]string(nil), proofPhotos...),
		requestedAmount: requestedAmount,
		status:          StatusPending,
		requestDate:     now,
		version:         1,
	}, nil
}

func (r *Request) ID() uuid.UUID                    { return r.id }
func (r *Request) BookingID() uuid.UUID             { return r.bookingID }
func (r *Request) PropertyID() uuid.UUID            { return r.propertyID }
func (r *Request) TenantID() uuid.UUID              { return r.tenantID }
func (r *Request) Description() string              { return r.description }
func (r *Request) ProofPhotos() []string            { return append([]string(nil), r.proofPhotos...) }
func (r *Request) RequestedAmount() decimal.Decimal { return r.requestedAmount }
func (r *Request) ApprovedAmount() *decimal.Decimal { return r.approvedAmount }
func (r *Request) Status() Status                   { return r.status }
func (r *Request) RequestDate() time.Time           { return r.requestDate }
func (r *Request) ResolutionDate() *time.Time       { return r.resolutionDate }
func (r *Request) Version() int64                   { return r.version }

// ApprovedOrZero returns the approved amount, or zero when nothing was approved.
func (r *Request) ApprovedOrZero() decimal.Decimal {
	if r.status != StatusApproved || r.approvedAmount == nil {
		return decimal.Zero
	}
	return *r.approvedAmount
}

// Approve resolves the claim for amount, which may not exceed limit (the booking total).
func (r *Request) Approve(amount, limit decimal.Decimal, now time.Time) error {
	if r.status != StatusPending {
		return domain.NewInvalidStateError(string(r.status), string(StatusApproved))
	}
	if !amount.IsPositive() {
		return domain.NewBadRequestError("approved amount must be positive")
	}
	if amount.GreaterThan(limit) {
		return domain.NewBadRequestError("cannot approve amount more than booking total price")
	}
	approved := amount
	r.approvedAmount = &approved
	r.resolve(StatusApproved, now)
	return nil
}

// Reject resolves the claim without payment.
func (r *Request) Reject(now time.Time) error {
	if r.status != StatusPending {
		return domain.NewInvalidStateError(string(r.status), string(StatusRejected))
	}
	r.resolve(StatusRejected, now)
	return nil
}

// CanDelete reports whether the claim may still be withdrawn.
func (r *Request) CanDelete() error {
	if r.status != StatusPending {
		return domain.NewConflictError("only pending compensation requests can be deleted")
	}
	return nil
}

func (r *Request) resolve(status Status, now time.Time) {
	r.status = status
	r.resolutionDate = &now
	r.version++
}

// Reconstitute rebuilds a Request from persisted data.
func Reconstitute(
	id, bookingID, propertyID, tenantID uuid.UUID,
	description string,
	proofPhotos []string,
	requestedAmount decimal.Decimal,
	approvedAmount *decimal.Decimal,
	status Status,
	requestDate time.Time,
	resolutionDate *time.Time,
	version int64,
) *Request {
	return &Request{
		id:              id,
		bookingID:       bookingID,
		propertyID:      propertyID,
		tenantID:        tenantID,
		description:     description,
		proofPhotos:     proofPhotos,
		requestedAmount: requestedAmount,
		approvedAmount:  approvedAmount,
		status:          status,
		requestDate:     requestDate,
		resolutionDate:  resolutionDate,
		version:         version,
	}
}
