package repository

import (
	"context"
	"errors"
	"time"

	compensationDomain "github.com/dailyrent/service-booking/internal/domain/compensation"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CompensationRequestModel is the GORM persistence model for the compensation_requests table.
type CompensationRequestModel struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	BookingID       uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex"`
	PropertyID      uuid.UUID                   `gorm:"type:uuid;not null;index"`
	TenantID        uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Description     string                      `gorm:"type:text;not null"`
	ProofPhotos     datatypes.JSONSlice[string] `gorm:"not null"`
	RequestedAmount decimal.Decimal             `gorm:"type:numeric(12,2);not null"`
	ApprovedAmount  decimal.NullDecimal         `gorm:"type:numeric(12,2)"`
	Status          string                      `gorm:"type:varchar(20);not null"`
	RequestDate     time.Time                   `gorm:"not null"`
	ResolutionDate  *time.Time
	Version         int64 `gorm:"not null"`
}

// TableName specifies the table name for GORM.
func (CompensationRequestModel) TableName() string {
	return "compensation_requests"
}

// CompensationRepositoryImpl is the GORM-based implementation of RequestRepository.
type CompensationRepositoryImpl struct {
	db *gorm.DB
}

// NewCompensationRepository creates a new GORM-based compensation repository.
func NewCompensationRepository(db *gorm.DB) *CompensationRepositoryImpl {
	return &CompensationRepositoryImpl{db: db}
}

func (r *CompensationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*compensationDomain.Request, error) {
	return r.findOne(ctx, "id = ?", id, "Compensation request")
}

func (r *CompensationRepositoryImpl) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*compensationDomain.Request, error) {
	return r.findOne(ctx, "booking_id = ?", bookingID, "Compensation request for booking")
}

func (r *CompensationRepositoryImpl) findOne(ctx context.Context, cond string, id uuid.UUID, entity string) (*compensationDomain.Request, error) {
	var model CompensationRequestModel
	if err := database.Conn(ctx, r.db).Where(cond, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError(entity, id.String())
		}
		return nil, database.TranslateError(err)
	}
	return compensationToDomain(&model), nil
}

// Save persists a new request. A second request for the same booking is a conflict.
func (r *CompensationRepositoryImpl) Save(ctx context.Context, request *compensationDomain.Request) error {
	if err := database.Conn(ctx, r.db).Create(compensationToModel(request)).Error; err != nil {
		return database.TranslateError(err)
	}
	return nil
}

// Update persists a resolution with optimistic locking.
func (r *CompensationRepositoryImpl) Update(ctx context.Context, request *compensationDomain.Request) error {
	model := compensationToModel(request)
	result := database.Conn(ctx, r.db).
		Model(&CompensationRequestModel{}).
		Where("id = ? AND version = ?", request.ID(), request.Version()-1).
		Updates(map[string]interface{}{
			"status":          model.Status,
			"approved_amount": model.ApprovedAmount,
			"resolution_date": model.ResolutionDate,
			"version":         model.Version,
		})

	if result.Error != nil {
		return database.TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewStaleVersionError("Compensation request", request.ID().String())
	}
	return nil
}

// Delete hard-deletes a pending request at the version it was read. A request
// that was resolved or changed in the meantime is left alone.
func (r *CompensationRepositoryImpl) Delete(ctx context.Context, request *compensationDomain.Request) error {
	db := database.Conn(ctx, r.db)
	result := db.
		Where("id = ? AND version = ? AND status = ?", request.ID(), request.Version(), string(compensationDomain.StatusPending)).
		Delete(&CompensationRequestModel{})
	if result.Error != nil {
		return database.TranslateError(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&CompensationRequestModel{}).Where("id = ?", request.ID()).Count(&count).Error; err != nil {
		return database.TranslateError(err)
	}
	if count == 0 {
		return domain.NewNotFoundError("Compensation request", request.ID().String())
	}
	return domain.NewStaleVersionError("Compensation request", request.ID().String())
}

func compensationToDomain(model *CompensationRequestModel) *compensationDomain.Request {
	var approved *decimal.Decimal
	if model.ApprovedAmount.Valid {
		v := model.ApprovedAmount.Decimal
		approved = &v
	}
	return compensationDomain.Reconstitute(
		model.ID,
		model.BookingID,
		model.PropertyID,
		model.TenantID,
		model.Description,
		[]string(model.ProofPhotos),
		model.RequestedAmount,
		approved,
		compensationDomain.Status(model.Status),
		model.RequestDate,
		model.ResolutionDate,
		model.Version,
	)
}

func compensationToModel(r *compensationDomain.Request) *CompensationRequestModel {
	model := &CompensationRequestModel{
		ID:              r.ID(),
		BookingID:       r.BookingID(),
		PropertyID:      r.PropertyID(),
		TenantID:        r.TenantID(),
		Description:     r.Description(),
		ProofPhotos:     datatypes.JSONSlice[string](r.ProofPhotos()),
		RequestedAmount: r.RequestedAmount(),
		Status:          string(r.Status()),
		RequestDate:     r.RequestDate(),
		ResolutionDate:  r.ResolutionDate(),
		Version:         r.Version(),
	}
	if amount := r.ApprovedAmount(); amount != nil {
		model.ApprovedAmount = decimal.NewNullDecimal(*amount)
	}
	return model
}
