package repository

import (
	"context"
	"errors"
	"time"

	paymentDomain "github.com/dailyrent/service-booking/internal/domain/payment"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentModel is the GORM persistence model for the payments table.
type PaymentModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ExternalID      string          `gorm:"type:varchar(64);index"`
	BookingID       uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_payments_one_active_per_booking,where:status <> 'canceled'"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null"`
	Amount          decimal.Decimal `gorm:"type:numeric;not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	Status          string          `gorm:"type:varchar(32);not null"`
	Paid            bool            `gorm:"not null"`
	ConfirmationURL string          `gorm:"type:text"`
	IdempotencyKey  string          `gorm:"type:varchar(64);not null"`
	LastCheckedAt   *time.Time
	Version         int64 `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName specifies the table name for GORM.
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentRepositoryImpl is the GORM-based implementation of PaymentRepository.
type PaymentRepositoryImpl struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new GORM-based payment repository.
func NewPaymentRepository(db *gorm.DB) *PaymentRepositoryImpl {
	return &PaymentRepositoryImpl{db: db}
}

// FindByID retrieves a payment by its unique ID.
func (r *PaymentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment", id.String())
		}
		return nil, database.TranslateError(err)
	}
	return paymentToDomain(&model), nil
}

// FindLatestByBookingID retrieves the most recent payment of a booking.
func (r *PaymentRepositoryImpl) FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	err := database.Conn(ctx, r.db).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment for booking", bookingID.String())
		}
		return nil, database.TranslateError(err)
	}
	return paymentToDomain(&model), nil
}

// LatestByBookingIDs returns the most recent payment of each booking that has one.
func (r *PaymentRepositoryImpl) LatestByBookingIDs(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]*paymentDomain.Payment, error) {
	latest := make(map[uuid.UUID]*paymentDomain.Payment, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return latest, nil
	}

	var models []PaymentModel
	if err := database.Conn(ctx, r.db).
		Where("booking_id IN ?", bookingIDs).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, database.TranslateError(err)
	}

	for i := range models {
		if _, seen := latest[models[i].BookingID]; !seen {
			latest[models[i].BookingID] = paymentToDomain(&models[i])
		}
	}
	return latest, nil
}

// HasActivePayment reports whether the booking has a payment that is not canceled.
func (r *PaymentRepositoryImpl) HasActivePayment(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int64
	if err := database.Conn(ctx, r.db).
		Model(&PaymentModel{}).
		Where("booking_id = ? AND status <> ?", bookingID, string(paymentDomain.StatusCanceled)).
		Count(&count).Error; err != nil {
		return false, database.TranslateError(err)
	}
	return count > 0, nil
}

// Save persists a new payment.
func (r *PaymentRepositoryImpl) Save(ctx context.Context, payment *paymentDomain.Payment) error {
	if err := database.Conn(ctx, r.db).Create(paymentToModel(payment)).Error; err != nil {
		return database.TranslateError(err)
	}
	return nil
}

// Update persists the polled state of a payment with optimistic locking.
func (r *PaymentRepositoryImpl) Update(ctx context.Context, payment *paymentDomain.Payment) error {
	result := database.Conn(ctx, r.db).
		Model(&PaymentModel{}).
		Where("id = ? AND version = ?", payment.ID(), payment.Version()-1).
		Updates(map[string]interface{}{
			"status":          string(payment.Status()),
			"paid":            payment.Paid(),
			"last_checked_at": payment.LastCheckedAt(),
			"version":         payment.Version(),
			"updated_at":      payment.UpdatedAt(),
		})

	if result.Error != nil {
		return database.TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewStaleVersionError("Payment", payment.ID().String())
	}
	return nil
}

func paymentToDomain(model *PaymentModel) *paymentDomain.Payment {
	return paymentDomain.Reconstitute(
		model.ID,
		model.ExternalID,
		model.BookingID,
		model.UserID,
		model.Amount,
		model.Currency,
		paymentDomain.Status(model.Status),
		model.Paid,
		model.ConfirmationURL,
		model.IdempotencyKey,
		model.LastCheckedAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func paymentToModel(p *paymentDomain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:              p.ID(),
		ExternalID:      p.ExternalID(),
		BookingID:       p.BookingID(),
		UserID:          p.UserID(),
		Amount:          p.Amount(),
		Currency:        p.Currency(),
		Status:          string(p.Status()),
		Paid:            p.Paid(),
		ConfirmationURL: p.ConfirmationURL(),
		IdempotencyKey:  p.IdempotencyKey(),
		LastCheckedAt:   p.LastCheckedAt(),
		Version:         p.Version(),
		CreatedAt:       p.CreatedAt(),
		UpdatedAt:       p.UpdatedAt(),
	}
}
