// Package events declares the topics, event types and payloads this service
// exchanges over Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source is the CloudEvent source of everything this service publishes.
const Source = "service-booking"

// Topics.
const (
	TopicBookingEvents      = "booking.events"
	TopicPaymentEvents      = "payment.events"
	TopicCompensationEvents = "compensation.events"
	TopicPropertyEvents     = "property.events"
)

// Booking event types.
const (
	BookingCreated   = "booking.created"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"
)

// Payment event types.
const (
	PaymentCreated       = "payment.created"
	PaymentStatusChanged = "payment.status_changed"
)

// Compensation event types.
const (
	CompensationCreated  = "compensation.created"
	CompensationApproved = "compensation.approved"
	CompensationRejected = "compensation.rejected"
	CompensationDeleted  = "compensation.deleted"
)

// Property event types, consumed from the catalog service.
const (
	PropertyCreated = "property.created"
	PropertyUpdated = "property.updated"
	PropertyDeleted = "property.deleted"
)

// BookingCreatedEvent is published when a tenant requests a stay.
type BookingCreatedEvent struct {
	BookingID  uuid.UUID       `json:"booking_id"`
	PropertyID uuid.UUID       `json:"property_id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	CheckIn    time.Time       `json:"check_in"`
	CheckOut   time.Time       `json:"check_out"`
	TotalPrice decimal.Decimal `json:"total_price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// BookingStatusEvent is published on approve, reject and cancel.
type BookingStatusEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	PropertyID uuid.UUID `json:"property_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingCompletedEvent carries the owner's payout.
type BookingCompletedEvent struct {
	BookingID    uuid.UUID       `json:"booking_id"`
	PropertyID   uuid.UUID       `json:"property_id"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Compensation decimal.Decimal `json:"compensation"`
	Payout       decimal.Decimal `json:"payout"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// PaymentCreatedEvent is published once the gateway accepted a payment.
type PaymentCreatedEvent struct {
	PaymentID  uuid.UUID       `json:"payment_id"`
	ExternalID string          `json:"external_id"`
	BookingID  uuid.UUID       `json:"booking_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// PaymentStatusChangedEvent is published when polling observes a new status.
type PaymentStatusChangedEvent struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	ExternalID string    `json:"external_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	Status     string    `json:"status"`
	Paid       bool      `json:"paid"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CompensationEvent is published for every compensation request change.
type CompensationEvent struct {
	RequestID       uuid.UUID        `json:"request_id"`
	BookingID       uuid.UUID        `json:"booking_id"`
	TenantID        uuid.UUID        `json:"tenant_id"`
	Status          string           `json:"status"`
	RequestedAmount decimal.Decimal  `json:"requested_amount"`
	ApprovedAmount  *decimal.Decimal `json:"approved_amount,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// PropertyEvent is the payload of property.* events.
type PropertyEvent struct {
	PropertyID  uuid.UUID       `json:"property_id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Title       string          `json:"title"`
	City        string          `json:"city"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
