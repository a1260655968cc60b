package payment

import (
	"fmt"
	"time"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status mirrors the gateway's payment status.
type Status string

const (
	StatusPending           Status = "pending"
	StatusWaitingForCapture Status = "waiting_for_capture"
	StatusSucceeded         Status = "succeeded"
	StatusCanceled          Status = "canceled"
)

// IsTerminal reports whether the gateway will never change this status again.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusCanceled
}

// ParseStatus validates a status string reported by the gateway.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusWaitingForCapture, StatusSucceeded, StatusCanceled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", s)
	}
}

// Payment is the aggregate root for a booking's payment attempt at the gateway.
type Payment struct {
	id              uuid.UUID
	externalID      string
	bookingID       uuid.UUID
	userID          uuid.UUID
	amount          decimal.Decimal
	currency        string
	status          Status
	paid            bool
	confirmationURL string
	idempotencyKey  string
	lastCheckedAt   *time.Time
	version         int64
	createdAt       time.Time
	updatedAt       time.Time
}

// NewPayment creates a payment that has not been sent to the gateway yet.
// The idempotency key is fixed here so that retries reuse it.
func NewPayment(bookingID, userID uuid.UUID, amount decimal.Decimal, currency string, now time.Time) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, domain.NewBadRequestError("payment amount must be positive")
	}
	return &Payment{
		id:             uuid.New(),
		bookingID:      bookingID,
		userID:         userID,
		amount:         amount,
		currency:       currency,
		status:         StatusPending,
		idempotencyKey: uuid.NewString(),
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// --- Getters ---

func (p *Payment) ID() uuid.UUID             { return p.id }
func (p *Payment) ExternalID() string        { return p.externalID }
func (p *Payment) BookingID() uuid.UUID      { return p.bookingID }
func (p *Payment) UserID() uuid.UUID         { return p.userID }
func (p *Payment) Amount() decimal.Decimal   { return p.amount }
func (p *Payment) Currency() string          { return p.currency }
func (p *Payment) Status() Status            { return p.status }
func (p *Payment) Paid() bool                { return p.paid }
func (p *Payment) ConfirmationURL() string   { return p.confirmationURL }
func (p *Payment) IdempotencyKey() string    { return p.idempotencyKey }
func (p *Payment) LastCheckedAt() *time.Time { return p.lastCheckedAt }
func (p *Payment) Version() int64            { return p.version }
func (p *Payment) CreatedAt() time.Time      { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time      { return p.updatedAt }

// InProcess reports whether the payment still blocks a new attempt for its booking.
func (p *Payment) InProcess() bool { return p.status != StatusCanceled }

// --- Behavior ---

// AttachGateway records what the gateway returned on creation.
func (p *Payment) AttachGateway(externalID string, status Status, confirmationURL string) error {
	if p.externalID != "" {
		return domain.NewConflictError("payment is already registered at the gateway")
	}
	if externalID == "" {
		return domain.NewBadRequestError("gateway returned an empty payment id")
	}
	p.externalID = externalID
	p.status = status
	p.paid = status == StatusSucceeded
	p.confirmationURL = confirmationURL
	return nil
}

// ApplyGatewayStatus records a status observed while polling. It reports
// whether the status changed. Terminal payments are immutable.
func (p *Payment) ApplyGatewayStatus(status Status, now time.Time) (bool, error) {
	if p.status.IsTerminal() {
		return false, domain.NewInvalidStateError(string(p.status), string(status))
	}
	changed := p.status != status
	p.status = status
	p.paid = status == StatusSucceeded
	p.lastCheckedAt = &now
	p.version++
	p.updatedAt = now
	return changed, nil
}

// --- Reconstitution ---

// Reconstitute rebuilds a Payment from persisted data.
func Reconstitute(
	id uuid.UUID,
	externalID string,
	bookingID, userID uuid.UUID,
	amount decimal.Decimal,
	currency string,
	status Status,
	paid bool,
	confirmationURL, idempotencyKey string,
	lastCheckedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:              id,
		externalID:      externalID,
		bookingID:       bookingID,
		userID:          userID,
		amount:          amount,
		currency:        currency,
		status:          status,
		paid:            paid,
		confirmationURL: confirmationURL,
		idempotencyKey:  idempotencyKey,
		lastCheckedAt:   lastCheckedAt,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}
