package repository

import (
	"context"
	"testing"
	"time"

	propertyDomain "github.com/dailyrent/service-booking/internal/domain/property"
	"github.com/dailyrent/service-booking/internal/testsupport"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyRepository_Upsert(t *testing.T) {
	repo := NewPropertyRepository(testsupport.NewSQLite(t, Models()...))
	ctx := context.Background()

	p := propertyDomain.Summary{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Title:       "Loft by the river",
		City:        "Kazan",
		PricePerDay: decimal.NewFromInt(1000),
		UpdatedAt:   testNow,
	}
	require.NoError(t, repo.Upsert(ctx, p))

	t.Run("newer event wins", func(t *testing.T) {
		newer := p
		newer.PricePerDay = decimal.NewFromInt(1200)
		newer.UpdatedAt = testNow.Add(time.Hour)
		require.NoError(t, repo.Upsert(ctx, newer))

		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1200).Equal(got.PricePerDay))
	})

	t.Run("stale event is ignored", func(t *testing.T) {
		stale := p
		stale.Title = "Old title"
		stale.UpdatedAt = testNow.Add(-time.Hour)
		require.NoError(t, repo.Upsert(ctx, stale))

		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Loft by the river", got.Title)
	})

	t.Run("batch lookup and delete", func(t *testing.T) {
		found, err := repo.FindByIDs(ctx, []uuid.UUID{p.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, found, 1)

		require.NoError(t, repo.Delete(ctx, p.ID))
		_, err = repo.FindByID(ctx, p.ID)
		assert.True(t, domain.IsNotFound(err))
	})
}
