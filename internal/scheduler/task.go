// Package scheduler is a durable delayed-task queue stored in the service
// database. Tasks are rows; a Dispatcher claims due rows and runs the handler
// registered for their kind. Delivery is at-least-once.
package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TaskStatus is the delivery state of a task row.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// TaskModel is the GORM persistence model for the scheduled_tasks table.
type TaskModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Kind        string         `gorm:"type:varchar(64);not null"`
	DedupKey    *string        `gorm:"type:varchar(128);uniqueIndex:idx_scheduled_tasks_dedup"`
	Payload     datatypes.JSON `gorm:"not null"`
	Status      string         `gorm:"type:varchar(16);not null;index:idx_scheduled_tasks_due,priority:1"`
	RunAt       time.Time      `gorm:"not null;index:idx_scheduled_tasks_due,priority:2"`
	Attempts    int            `gorm:"not null"`
	LockedUntil *time.Time
	LastError   string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for GORM.
func (TaskModel) TableName() string {
	return "scheduled_tasks"
}

// Task is what a Handler receives.
type Task struct {
	ID       uuid.UUID
	Kind     string
	Payload  []byte
	Attempts int
}

// Decode unmarshals the task payload into v.
func (t Task) Decode(v interface{}) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Kind, err)
	}
	return nil
}
