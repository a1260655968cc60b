package repository

import (
	"context"
	"errors"
	"time"

	ledgerDomain "github.com/dailyrent/service-booking/internal/domain/ledger"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerEntryModel is an append-only balance movement.
type LedgerEntryModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Reason      string          `gorm:"type:varchar(40);not null"`
	ReferenceID uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
}

// TableName specifies the table name for GORM.
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// UserBalanceModel holds the running balance per user.
type UserBalanceModel struct {
	UserID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Balance   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM.
func (UserBalanceModel) TableName() string {
	return "user_balances"
}

// LedgerRepositoryImpl is the GORM-based implementation of the ledger Repository.
type LedgerRepositoryImpl struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new GORM-based ledger repository.
func NewLedgerRepository(db *gorm.DB) *LedgerRepositoryImpl {
	return &LedgerRepositoryImpl{db: db}
}

// Credit appends the entry and adds its amount to the user's balance.
func (r *LedgerRepositoryImpl) Credit(ctx context.Context, entry ledgerDomain.Entry) error {
	db := database.Conn(ctx, r.db)

	model := &LedgerEntryModel{
		ID:          entry.ID,
		UserID:      entry.UserID,
		Amount:      entry.Amount,
		Reason:      string(entry.Reason),
		ReferenceID: entry.ReferenceID,
		CreatedAt:   entry.CreatedAt,
	}
	if err := db.Create(model).Error; err != nil {
		return database.TranslateError(err)
	}

	balance := &UserBalanceModel{UserID: entry.UserID, Balance: entry.Amount, UpdatedAt: entry.CreatedAt}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":    gorm.Expr("user_balances.balance + excluded.balance"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(balance).Error
	return database.TranslateError(err)
}

// Balance returns the user's balance, zero when the user never had a credit.
func (r *LedgerRepositoryImpl) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var model UserBalanceModel
	err := database.Conn(ctx, r.db).Where("user_id = ?", userID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, database.TranslateError(err)
	}
	return model.Balance, nil
}

// ListEntries returns the user's entries, newest first.
func (r *LedgerRepositoryImpl) ListEntries(ctx context.Context, userID uuid.UUID) ([]ledgerDomain.Entry, error) {
	var models []LedgerEntryModel
	if err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, database.TranslateError(err)
	}

	entries := make([]ledgerDomain.Entry, len(models))
	for i, m := range models {
		entries[i] = ledgerDomain.Entry{
			ID:          m.ID,
			UserID:      m.UserID,
			Amount:      m.Amount,
			Reason:      ledgerDomain.Reason(m.Reason),
			ReferenceID: m.ReferenceID,
			CreatedAt:   m.CreatedAt,
		}
	}
	return entries, nil
}
