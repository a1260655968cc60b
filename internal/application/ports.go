package application

import (
	"context"
	"time"
)

// Transactor runs fn in one database transaction. Repositories called with
// the ctx passed to fn join it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TaskScheduler enqueues durable delayed work.
type TaskScheduler interface {
	ScheduleUnique(ctx context.Context, delay time.Duration, kind, key string, payload interface{}) (bool, error)
}

// EventPublisher emits domain events. It never fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType string, data interface{})
}
