package events

import (
	"context"

	"github.com/dailyrent/service-booking/pkg/kafka"
	"go.uber.org/zap"
)

// Publisher emits domain events after the state change has committed.
// Failures are logged and never reach the caller.
type Publisher struct {
	producer kafka.EventPublisher
	logger   *zap.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(producer kafka.EventPublisher, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Publish wraps data in a CloudEvent and sends it to topic.
func (p *Publisher) Publish(ctx context.Context, topic, eventType string, data interface{}) {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := p.producer.PublishEvent(ctx, topic, ce); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
