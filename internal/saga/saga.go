// Package saga runs multi-step workflows that span the database and external
// systems, undoing completed steps when a later one fails.
package saga

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Step is a single unit of a saga. Compensate may be nil when the step has
// nothing to undo.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports the step that failed. Cause is returned by errors.Unwrap
// so domain error kinds survive the saga.
type StepError struct {
	Saga   string
	Step   string
	Cause  error
	Undone []error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga '%s' failed at step '%s': %v", e.Saga, e.Step, e.Cause)
}

func (e *StepError) Unwrap() error { return e.Cause }

// CompensationFailed reports whether any undo action also failed.
func (e *StepError) CompensationFailed() bool { return len(e.Undone) > 0 }

// Saga orchestrates steps in order.
type Saga struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// New creates a saga.
func New(name string, logger *zap.Logger) *Saga {
	return &Saga{name: name, logger: logger}
}

// AddStep appends a step.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the steps in order. When one fails, the already executed
// steps are compensated in reverse order and a *StepError is returned.
func (s *Saga) Execute(ctx context.Context) error {
	log := s.logger.With(zap.String("saga", s.name))
	log.Debug("saga started")

	done := make([]Step, 0, len(s.steps))
	for _, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			log.Warn("saga step failed, compensating", zap.String("step", step.Name), zap.Error(err))
			return &StepError{Saga: s.name, Step: step.Name, Cause: err, Undone: s.compensate(ctx, log, done)}
		}
		done = append(done, step)
	}

	log.Debug("saga completed")
	return nil
}

func (s *Saga) compensate(ctx context.Context, log *zap.Logger, done []Step) []error {
	var failed []error
	// Compensation must run even if the request context was cancelled.
	ctx = context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			log.Error("compensation failed", zap.String("step", step.Name), zap.Error(err))
			failed = append(failed, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	return failed
}

// AsStepError extracts a *StepError from err.
func AsStepError(err error) (*StepError, bool) {
	var se *StepError
	ok := errors.As(err, &se)
	return se, ok
}
