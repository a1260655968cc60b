package repository

import (
	"context"
	"errors"
	"time"

	propertyDomain "github.com/dailyrent/service-booking/internal/domain/property"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyModel is the local read model of the property catalog.
type PropertyModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title       string          `gorm:"type:varchar(200);not null"`
	City        string          `gorm:"type:varchar(100);not null"`
	PricePerDay decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime:false"`
}

// TableName specifies the table name for GORM.
func (PropertyModel) TableName() string {
	return "properties"
}

// PropertyRepositoryImpl is the GORM-based implementation of the property Repository.
type PropertyRepositoryImpl struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new GORM-based property repository.
func NewPropertyRepository(db *gorm.DB) *PropertyRepositoryImpl {
	return &PropertyRepositoryImpl{db: db}
}

func (r *PropertyRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (propertyDomain.Summary, error) {
	var model PropertyModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return propertyDomain.Summary{}, domain.NewNotFoundError("Property", id.String())
		}
		return propertyDomain.Summary{}, database.TranslateError(err)
	}
	return propertyToDomain(model), nil
}

func (r *PropertyRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]propertyDomain.Summary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []PropertyModel
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, database.TranslateError(err)
	}
	out := make([]propertyDomain.Summary, len(models))
	for i, m := range models {
		out[i] = propertyToDomain(m)
	}
	return out, nil
}

// Upsert writes s unless the stored row is newer. Property events may
// arrive out of order across partitions.
func (r *PropertyRepositoryImpl) Upsert(ctx context.Context, s propertyDomain.Summary) error {
	model := PropertyModel{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		City:        s.City,
		PricePerDay: s.PricePerDay,
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
	err := database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "title", "city", "price_per_day", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "properties.updated_at <= excluded.updated_at"},
		}},
	}).Create(&model).Error
	return database.TranslateError(err)
}

func (r *PropertyRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return database.TranslateError(database.Conn(ctx, r.db).Where("id = ?", id).Delete(&PropertyModel{}).Error)
}

func propertyToDomain(m PropertyModel) propertyDomain.Summary {
	return propertyDomain.Summary{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		City:        m.City,
		PricePerDay: m.PricePerDay,
		UpdatedAt:   m.UpdatedAt,
	}
}
