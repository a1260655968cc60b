package repository

import (
	"context"
	"errors"
	"time"

	bookingDomain "github.com/dailyrent/service-booking/internal/domain/booking"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BookingModel is the GORM persistence model for the bookings table.
// The partial unique index keeps a single approved booking per property
// even if two approvals race past the application check.
type BookingModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PropertyID    uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_bookings_one_approved_per_property,where:status = 'approved'"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	CheckIn       time.Time       `gorm:"not null"`
	CheckOut      time.Time       `gorm:"not null"`
	AdultsCount   int             `gorm:"not null"`
	ChildrenCount int             `gorm:"not null"`
	HasPets       bool            `gorm:"not null"`
	TotalPrice    decimal.Decimal `gorm:"type:numeric;not null"`
	Status        string          `gorm:"type:varchar(20);not null;index"`
	Version       int64           `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for GORM.
func (BookingModel) TableName() string {
	return "bookings"
}

var activeBookingStatuses = []string{
	string(bookingDomain.StatusPending),
	string(bookingDomain.StatusApproved),
	string(bookingDomain.StatusCompleted),
}

// BookingRepositoryImpl is the GORM-based implementation of BookingRepository.
type BookingRepositoryImpl struct {
	db *gorm.DB
}

// NewBookingRepository creates a new GORM-based booking repository.
func NewBookingRepository(db *gorm.DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: db}
}

// FindByID retrieves a booking by its unique ID.
func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, database.TranslateError(err)
	}
	return bookingToDomain(&model), nil
}

// Save persists a new booking.
func (r *BookingRepositoryImpl) Save(ctx context.Context, booking *bookingDomain.Booking) error {
	if err := database.Conn(ctx, r.db).Create(bookingToModel(booking)).Error; err != nil {
		return database.TranslateError(err)
	}
	return nil
}

// Update persists a status change with optimistic locking.
func (r *BookingRepositoryImpl) Update(ctx context.Context, booking *bookingDomain.Booking) error {
	result := database.Conn(ctx, r.db).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", booking.ID(), booking.Version()-1).
		Updates(map[string]interface{}{
			"status":     string(booking.Status()),
			"version":    booking.Version(),
			"updated_at": booking.UpdatedAt(),
		})

	if result.Error != nil {
		return database.TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewStaleVersionError("Booking", booking.ID().String())
	}
	return nil
}

// HasOverlapping reports whether the tenant already holds the property for an intersecting range.
func (r *BookingRepositoryImpl) HasOverlapping(ctx context.Context, tenantID, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&BookingModel{}).
		Where("tenant_id = ? AND property_id = ?", tenantID, propertyID).
		Where("status IN ?", activeBookingStatuses).
		Where("check_in < ? AND check_out > ?", checkOut.UTC(), checkIn.UTC()).
		Count(&count).Error
	if err != nil {
		return false, database.TranslateError(err)
	}
	return count > 0, nil
}

// HasApprovedBooking reports whether another booking of the property is approved.
func (r *BookingRepositoryImpl) HasApprovedBooking(ctx context.Context, propertyID, exclude uuid.UUID) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&BookingModel{}).
		Where("property_id = ? AND status = ? AND id <> ?", propertyID, string(bookingDomain.StatusApproved), exclude).
		Count(&count).Error
	if err != nil {
		return false, database.TranslateError(err)
	}
	return count > 0, nil
}

// ListByProperty returns the property's non-cancelled bookings.
func (r *BookingRepositoryImpl) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	err := database.Conn(ctx, r.db).
		Where("property_id = ? AND status <> ?", propertyID, string(bookingDomain.StatusCancelled)).
		Order("check_in DESC").
		Find(&models).Error
	if err != nil {
		return nil, database.TranslateError(err)
	}
	return bookingsToDomain(models), nil
}

// ListByTenant returns every booking made by the tenant.
func (r *BookingRepositoryImpl) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	err := database.Conn(ctx, r.db).
		Where("tenant_id = ?", tenantID).
		Order("check_in DESC").
		Find(&models).Error
	if err != nil {
		return nil, database.TranslateError(err)
	}
	return bookingsToDomain(models), nil
}

func bookingsToDomain(models []BookingModel) []*bookingDomain.Booking {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bookings[i] = bookingToDomain(&models[i])
	}
	return bookings
}

func bookingToDomain(model *BookingModel) *bookingDomain.Booking {
	return bookingDomain.Reconstitute(
		model.ID,
		model.PropertyID,
		model.TenantID,
		model.CheckIn,
		model.CheckOut,
		bookingDomain.Guests{
			Adults:   model.AdultsCount,
			Children: model.ChildrenCount,
			HasPets:  model.HasPets,
		},
		model.TotalPrice,
		bookingDomain.Status(model.Status),
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func bookingToModel(b *bookingDomain.Booking) *BookingModel {
	guests := b.Guests()
	return &BookingModel{
		ID:            b.ID(),
		PropertyID:    b.PropertyID(),
		TenantID:      b.TenantID(),
		CheckIn:       b.CheckIn(),
		CheckOut:      b.CheckOut(),
		AdultsCount:   guests.Adults,
		ChildrenCount: guests.Children,
		HasPets:       guests.HasPets,
		TotalPrice:    b.TotalPrice(),
		Status:        string(b.Status()),
		Version:       b.Version(),
		CreatedAt:     b.CreatedAt(),
		UpdatedAt:     b.UpdatedAt(),
	}
}
