package events

import (
	"context"

	"github.com/dailyrent/service-booking/internal/domain/property"
	"github.com/dailyrent/service-booking/pkg/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// PropertyStore is the side of the catalog the consumer writes to.
type PropertyStore interface {
	Apply(ctx context.Context, s property.Summary) error
	Remove(ctx context.Context, propertyID uuid.UUID) error
}

// PropertyEventConsumer keeps the local property read model in sync with the
// catalog service.
type PropertyEventConsumer struct {
	consumer *kafka.Consumer
	handler  *PropertyEventHandler
}

// NewPropertyEventConsumer creates a consumer on the property topic.
func NewPropertyEventConsumer(brokers []string, groupID string, store PropertyStore, logger *zap.Logger) *PropertyEventConsumer {
	return &PropertyEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicPropertyEvents, logger),
		handler:  NewPropertyEventHandler(store, logger),
	}
}

// Start consumes until ctx is cancelled.
func (c *PropertyEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handler.HandleMessage)
}

// Close releases the underlying reader.
func (c *PropertyEventConsumer) Close() error {
	return c.consumer.Close()
}

// PropertyEventHandler routes property events to the store.
type PropertyEventHandler struct {
	store  PropertyStore
	logger *zap.Logger
}

// NewPropertyEventHandler creates a handler.
func NewPropertyEventHandler(store PropertyStore, logger *zap.Logger) *PropertyEventHandler {
	return &PropertyEventHandler{store: store, logger: logger}
}

// HandleMessage applies one Kafka message. Malformed messages are logged and
// skipped so they cannot block the partition.
func (h *PropertyEventHandler) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		h.logger.Error("failed to parse cloud event from property topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil
	}

	var event PropertyEvent
	if err := ce.ParseData(&event); err != nil {
		h.logger.Error("failed to parse property event data", zap.String("type", ce.Type), zap.Error(err))
		return nil
	}

	switch ce.Type {
	case PropertyCreated, PropertyUpdated:
		updatedAt := event.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = ce.Time
		}
		return h.store.Apply(ctx, property.Summary{
			ID:          event.PropertyID,
			OwnerID:     event.OwnerID,
			Title:       event.Title,
			City:        event.City,
			PricePerDay: event.PricePerDay,
			UpdatedAt:   updatedAt.UTC(),
		})

	case PropertyDeleted:
		return h.store.Remove(ctx, event.PropertyID)

	default:
		h.logger.Debug("ignoring unhandled property event type", zap.String("type", ce.Type))
		return nil
	}
}
