package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dailyrent/service-booking/pkg/clock"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scheduler enqueues tasks.
type Scheduler struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewScheduler creates a Scheduler.
func NewScheduler(db *gorm.DB, clk clock.Clock) *Scheduler {
	return &Scheduler{db: db, clock: clk}
}

// ScheduleOnce enqueues kind to run once after delay. It joins the
// transaction carried by ctx, so the task commits with the caller's writes.
func (s *Scheduler) ScheduleOnce(ctx context.Context, delay time.Duration, kind string, payload interface{}) (uuid.UUID, error) {
	task, err := s.newTask(delay, kind, payload)
	if err != nil {
		return uuid.Nil, err
	}
	if err := database.Conn(ctx, s.db).Create(task).Error; err != nil {
		return uuid.Nil, database.TranslateError(err)
	}
	return task.ID, nil
}

// ScheduleUnique is ScheduleOnce keyed by key: once a task with that key
// exists, in any status, later calls enqueue nothing and report false.
func (s *Scheduler) ScheduleUnique(ctx context.Context, delay time.Duration, kind, key string, payload interface{}) (bool, error) {
	task, err := s.newTask(delay, kind, payload)
	if err != nil {
		return false, err
	}
	task.DedupKey = &key

	result := database.Conn(ctx, s.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedup_key"}}, DoNothing: true}).
		Create(task)
	if result.Error != nil {
		return false, database.TranslateError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Scheduler) newTask(delay time.Duration, kind string, payload interface{}) (*TaskModel, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	now := s.clock.Now()
	return &TaskModel{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   raw,
		Status:    string(TaskPending),
		RunAt:     now.Add(delay),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
