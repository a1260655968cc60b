// Package catalog answers property price and ownership questions from the
// local read model, fronted by an in-process cache.
package catalog

import (
	"context"
	"time"

	"github.com/dailyrent/service-booking/internal/domain/property"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/karlseguin/ccache/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PropertyCatalog implements property.Catalog.
type PropertyCatalog struct {
	repo   property.Repository
	cache  *ccache.Cache[property.Summary]
	ttl    time.Duration
	logger *zap.Logger
}

// NewPropertyCatalog creates a catalog caching up to size properties for ttl.
func NewPropertyCatalog(repo property.Repository, size int64, ttl time.Duration, logger *zap.Logger) *PropertyCatalog {
	if size <= 0 {
		size = 10000
	}
	return &PropertyCatalog{
		repo:   repo,
		cache:  ccache.New(ccache.Configure[property.Summary]().MaxSize(size)),
		ttl:    ttl,
		logger: logger,
	}
}

// GetSummary returns the property, loading it into the cache on a miss.
func (c *PropertyCatalog) GetSummary(ctx context.Context, propertyID uuid.UUID) (property.Summary, error) {
	item, err := c.cache.Fetch(propertyID.String(), c.ttl, func() (property.Summary, error) {
		return c.repo.FindByID(ctx, propertyID)
	})
	if err != nil {
		return property.Summary{}, err
	}
	return item.Value(), nil
}

// GetPricePerDay returns the property's daily price.
func (c *PropertyCatalog) GetPricePerDay(ctx context.Context, propertyID uuid.UUID) (decimal.Decimal, error) {
	s, err := c.GetSummary(ctx, propertyID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.PricePerDay, nil
}

// IsOwnedBy reports whether userID owns the property. Unknown properties are owned by nobody.
func (c *PropertyCatalog) IsOwnedBy(ctx context.Context, propertyID, userID uuid.UUID) (bool, error) {
	s, err := c.GetSummary(ctx, propertyID)
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return s.OwnerID == userID, nil
}

// GetSummaries returns the known properties among ids.
func (c *PropertyCatalog) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]property.Summary, error) {
	out := make(map[uuid.UUID]property.Summary, len(ids))
	var missing []uuid.UUID
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		if item := c.cache.Get(id.String()); item != nil && !item.Expired() {
			out[id] = item.Value()
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.repo.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, s := range loaded {
		c.cache.Set(s.ID.String(), s, c.ttl)
		out[s.ID] = s
	}
	return out, nil
}

// Apply stores a property change from the catalog owner and drops the cached copy.
func (c *PropertyCatalog) Apply(ctx context.Context, s property.Summary) error {
	if err := c.repo.Upsert(ctx, s); err != nil {
		return err
	}
	c.cache.Delete(s.ID.String())
	c.logger.Debug("property upserted", zap.String("property_id", s.ID.String()))
	return nil
}

// Remove deletes a property from the read model and the cache.
func (c *PropertyCatalog) Remove(ctx context.Context, propertyID uuid.UUID) error {
	if err := c.repo.Delete(ctx, propertyID); err != nil {
		return err
	}
	c.cache.Delete(propertyID.String())
	c.logger.Debug("property removed", zap.String("property_id", propertyID.String()))
	return nil
}

// Stop releases the cache's background worker.
func (c *PropertyCatalog) Stop() {
	c.cache.Stop()
}
