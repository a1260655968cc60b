package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dailyrent/service-booking/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler runs one task. A returned error makes the dispatcher retry the
// task with backoff until MaxDeliveries is reached.
type Handler func(ctx context.Context, task Task) error

// MaxDeliveries bounds how often a failing task is handed to its handler.
const MaxDeliveries = 5

// DispatcherConfig tunes the dispatch loop.
type DispatcherConfig struct {
	Tick  time.Duration
	Batch int
	Lease time.Duration
}

// Dispatcher claims due tasks and runs their handlers.
type Dispatcher struct {
	db       *gorm.DB
	clock    clock.Clock
	cfg      DispatcherConfig
	handlers map[string]Handler
	logger   *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Zero config fields take defaults.
func NewDispatcher(db *gorm.DB, clk clock.Clock, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.Tick <= 0 {
		cfg.Tick = 5 * time.Second
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	return &Dispatcher{
		db:       db,
		clock:    clk,
		cfg:      cfg,
		handlers: make(map[string]Handler),
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Register binds a handler to a task kind. Call before Start.
func (d *Dispatcher) Register(kind string, h Handler) {
	d.handlers[kind] = h
}

// Start runs the dispatch loop in the background until Stop or ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("task dispatcher started", zap.Duration("tick", d.cfg.Tick))
	d.wg.Add(1)
	go d.run(ctx)
}

// Stop ends the loop and waits for the in-flight batch.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	d.wg.Wait()
	d.logger.Info("task dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Tick)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil {
			d.logger.Error("task dispatch cycle failed", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce claims one batch of due tasks and runs them. It returns the number
// of tasks handed to handlers.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	tasks, err := d.claim(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range tasks {
		d.dispatch(ctx, t)
	}
	return len(tasks), nil
}

// claim locks due rows, skipping rows another instance holds, and leases them.
func (d *Dispatcher) claim(ctx context.Context) ([]Task, error) {
	now := d.clock.Now()
	var models []TaskModel

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(status = ? AND run_at <= ?) OR (status = ? AND locked_until <= ?)",
				string(TaskPending), now, string(TaskRunning), now).
			Order("run_at").
			Limit(d.cfg.Batch).
			Find(&models).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(models))
		for i := range models {
			ids[i] = models[i].ID
		}
		return tx.Model(&TaskModel{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":       string(TaskRunning),
				"locked_until": now.Add(d.cfg.Lease),
				"attempts":     gorm.Expr("attempts + 1"),
				"updated_at":   now,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim tasks: %w", err)
	}

	tasks := make([]Task, len(models))
	for i, m := range models {
		tasks[i] = Task{ID: m.ID, Kind: m.Kind, Payload: m.Payload, Attempts: m.Attempts + 1}
	}
	return tasks, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, t Task) {
	log := d.logger.With(zap.String("task_id", t.ID.String()), zap.String("kind", t.Kind), zap.Int("attempt", t.Attempts))

	h, ok := d.handlers[t.Kind]
	if !ok {
		log.Error("no handler registered for task kind")
		d.finish(ctx, t, TaskFailed, "no handler registered", time.Time{})
		return
	}

	if err := d.safeRun(ctx, h, t); err != nil {
		if t.Attempts >= MaxDeliveries {
			log.Error("task failed permanently", zap.Error(err))
			d.finish(ctx, t, TaskFailed, err.Error(), time.Time{})
			return
		}
		retryAt := d.clock.Now().Add(time.Duration(t.Attempts) * 30 * time.Second)
		log.Warn("task failed, will retry", zap.Error(err), zap.Time("retry_at", retryAt))
		d.finish(ctx, t, TaskPending, err.Error(), retryAt)
		return
	}

	d.finish(ctx, t, TaskDone, "", time.Time{})
}

func (d *Dispatcher) safeRun(ctx context.Context, h Handler, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()
	return h(ctx, t)
}

func (d *Dispatcher) finish(ctx context.Context, t Task, status TaskStatus, lastError string, runAt time.Time) {
	updates := map[string]interface{}{
		"status":       string(status),
		"locked_until": nil,
		"last_error":   lastError,
		"updated_at":   d.clock.Now(),
	}
	if !runAt.IsZero() {
		updates["run_at"] = runAt
	}

	err := d.db.WithContext(ctx).
		Model(&TaskModel{}).
		Where("id = ? AND status = ?", t.ID, string(TaskRunning)).
		Updates(updates).Error
	if err != nil {
		d.logger.Error("failed to record task outcome",
			zap.String("task_id", t.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
