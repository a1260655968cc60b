package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recordingStep(name string, trail *[]string, execErr, compErr error) Step {
	return Step{
		Name: name,
		Execute: func(ctx context.Context) error {
			*trail = append(*trail, "exec:"+name)
			return execErr
		},
		Compensate: func(ctx context.Context) error {
			*trail = append(*trail, "undo:"+name)
			return compErr
		},
	}
}

func TestSaga_AllStepsSucceed(t *testing.T) {
	var trail []string
	s := New("test", zap.NewNop()).
		AddStep(recordingStep("a", &trail, nil, nil)).
		AddStep(recordingStep("b", &trail, nil, nil))

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"exec:a", "exec:b"}, trail)
}

func TestSaga_CompensatesInReverse(t *testing.T) {
	var trail []string
	cause := domain.NewConflictError("payment already active")

	s := New("create_payment", zap.NewNop()).
		AddStep(recordingStep("a", &trail, nil, nil)).
		AddStep(Step{Name: "no-undo", Execute: func(ctx context.Context) error {
			trail = append(trail, "exec:no-undo")
			return nil
		}}).
		AddStep(recordingStep("b", &trail, nil, nil)).
		AddStep(recordingStep("c", &trail, cause, nil))

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"exec:a", "exec:no-undo", "exec:b", "exec:c", "undo:b", "undo:a"}, trail)

	assert.ErrorIs(t, err, domain.ErrConflict)
	se, ok := AsStepError(err)
	require.True(t, ok)
	assert.Equal(t, "c", se.Step)
	assert.False(t, se.CompensationFailed())
	assert.Equal(t, "saga 'create_payment' failed at step 'c': payment already active", err.Error())
}

func TestSaga_ContinuesPastFailedCompensation(t *testing.T) {
	var trail []string
	s := New("test", zap.NewNop()).
		AddStep(recordingStep("a", &trail, nil, nil)).
		AddStep(recordingStep("b", &trail, nil, errors.New("blob store down"))).
		AddStep(recordingStep("c", &trail, errors.New("db down"), nil))

	err := s.Execute(context.Background())
	se, ok := AsStepError(err)
	require.True(t, ok)
	assert.True(t, se.CompensationFailed())
	assert.Len(t, se.Undone, 1)
	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "undo:b", "undo:a"}, trail)
}

func TestSaga_CompensatesAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var undoErr error

	s := New("test", zap.NewNop()).
		AddStep(Step{
			Name:       "a",
			Execute:    func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { undoErr = ctx.Err(); return nil },
		}).
		AddStep(Step{Name: "b", Execute: func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		}})

	err := s.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, undoErr)
}
