package application

import (
	"time"

	"github.com/dailyrent/service-booking/internal/domain/booking"
	"github.com/dailyrent/service-booking/internal/domain/compensation"
	"github.com/dailyrent/service-booking/internal/domain/ledger"
	"github.com/dailyrent/service-booking/internal/domain/payment"
	"github.com/dailyrent/service-booking/internal/domain/property"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBookingRequest is the DTO for requesting a stay.
type CreateBookingRequest struct {
	PropertyID    uuid.UUID `json:"property_id" binding:"required"`
	CheckInDate   time.Time `json:"check_in_date" binding:"required"`
	CheckOutDate  time.Time `json:"check_out_date" binding:"required"`
	AdultsCount   int       `json:"adults_count" binding:"required,min=1,max=10"`
	ChildrenCount int       `json:"children_count" binding:"min=0"`
	HasPets       bool      `json:"has_pets"`
}

// BookingDTO is the API response DTO for a booking.
type BookingDTO struct {
	ID            uuid.UUID       `json:"id"`
	PropertyID    uuid.UUID       `json:"property_id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	PropertyTitle string          `json:"property_title,omitempty"`
	PropertyCity  string          `json:"property_city,omitempty"`
	CheckInDate   time.Time       `json:"check_in_date"`
	CheckOutDate  time.Time       `json:"check_out_date"`
	AdultsCount   int             `json:"adults_count"`
	ChildrenCount int             `json:"children_count"`
	HasPets       bool            `json:"has_pets"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        string          `json:"status"`
	IsPaid        bool            `json:"is_paid"`
	IsPayProcess  bool            `json:"is_pay_process"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentInitiation is returned when a payment was created at the gateway.
// The payer is redirected to ConfirmationURL.
type PaymentInitiation struct {
	PaymentID       uuid.UUID `json:"payment_id"`
	ExternalID      string    `json:"external_id"`
	ConfirmationURL string    `json:"url"`
}

// PaymentDTO is the API response DTO for a payment.
type PaymentDTO struct {
	ID              uuid.UUID       `json:"id"`
	ExternalID      string          `json:"external_id"`
	BookingID       uuid.UUID       `json:"booking_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	Paid            bool            `json:"paid"`
	ConfirmationURL string          `json:"confirmation_url,omitempty"`
	LastCheckedAt   *time.Time      `json:"last_checked_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PayoutDTO is the owner's settlement of a completed booking.
type PayoutDTO struct {
	BookingID    uuid.UUID       `json:"booking_id"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Compensation decimal.Decimal `json:"compensation"`
	Payout       decimal.Decimal `json:"payout"`
}

// CompensationDTO is the API response DTO for a compensation request.
type CompensationDTO struct {
	ID              uuid.UUID        `json:"id"`
	BookingID       uuid.UUID        `json:"booking_id"`
	TenantID        uuid.UUID        `json:"tenant_id"`
	Description     string           `json:"description"`
	ProofPhotos     []string         `json:"proof_photos"`
	RequestedAmount decimal.Decimal  `json:"requested_amount"`
	ApprovedAmount  *decimal.Decimal `json:"approved_amount,omitempty"`
	Status          string           `json:"status"`
	RequestDate     time.Time        `json:"request_date"`
	ResolutionDate  *time.Time       `json:"resolution_date,omitempty"`
}

// ApproveCompensationRequest is the DTO for approving a compensation claim.
type ApproveCompensationRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// BalanceDTO is a user's balance with its history.
type BalanceDTO struct {
	UserID  uuid.UUID        `json:"user_id"`
	Balance decimal.Decimal  `json:"balance"`
	Entries []LedgerEntryDTO `json:"entries"`
}

// LedgerEntryDTO is one balance movement.
type LedgerEntryDTO struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	ReferenceID uuid.UUID       `json:"reference_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// --- Mappers ---

func toBookingDTO(b *booking.Booking, p *payment.Payment) BookingDTO {
	g := b.Guests()
	dto := BookingDTO{
		ID:            b.ID(),
		PropertyID:    b.PropertyID(),
		TenantID:      b.TenantID(),
		CheckInDate:   b.CheckIn(),
		CheckOutDate:  b.CheckOut(),
		AdultsCount:   g.Adults,
		ChildrenCount: g.Children,
		HasPets:       g.HasPets,
		TotalPrice:    b.TotalPrice(),
		Status:        string(b.Status()),
		CreatedAt:     b.CreatedAt(),
	}
	if p != nil {
		dto.IsPaid = p.Paid()
		dto.IsPayProcess = p.InProcess()
	}
	return dto
}

func withProperty(dto BookingDTO, s property.Summary) BookingDTO {
	dto.PropertyTitle = s.Title
	dto.PropertyCity = s.City
	return dto
}

func toPaymentDTO(p *payment.Payment) PaymentDTO {
	return PaymentDTO{
		ID:              p.ID(),
		ExternalID:      p.ExternalID(),
		BookingID:       p.BookingID(),
		UserID:          p.UserID(),
		Amount:          p.Amount(),
		Currency:        p.Currency(),
		Status:          string(p.Status()),
		Paid:            p.Paid(),
		ConfirmationURL: p.ConfirmationURL(),
		LastCheckedAt:   p.LastCheckedAt(),
		CreatedAt:       p.CreatedAt(),
	}
}

func toCompensationDTO(r *compensation.Request) CompensationDTO {
	return CompensationDTO{
		ID:              r.ID(),
		BookingID:       r.BookingID(),
		TenantID:        r.TenantID(),
		Description:     r.Description(),
		ProofPhotos:     r.ProofPhotos(),
		RequestedAmount: r.RequestedAmount(),
		ApprovedAmount:  r.ApprovedAmount(),
		Status:          string(r.Status()),
		RequestDate:     r.RequestDate(),
		ResolutionDate:  r.ResolutionDate(),
	}
}

func toLedgerEntryDTO(e ledger.Entry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:          e.ID,
		Amount:      e.Amount,
		Reason:      string(e.Reason),
		ReferenceID: e.ReferenceID,
		CreatedAt:   e.CreatedAt,
	}
}
