package payment

import (
	"testing"
	"time"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newRegistered(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment(uuid.New(), uuid.New(), decimal.NewFromInt(3000), "RUB", now)
	require.NoError(t, err)
	require.NoError(t, p.AttachGateway("ext-1", StatusPending, "https://pay.example/confirm"))
	return p
}

func TestNewPayment(t *testing.T) {
	p := newRegistered(t)
	assert.Equal(t, StatusPending, p.Status())
	assert.False(t, p.Paid())
	assert.NotEmpty(t, p.IdempotencyKey())
	assert.True(t, p.InProcess())

	_, err := NewPayment(uuid.New(), uuid.New(), decimal.Zero, "RUB", now)
	assert.Equal(t, domain.ErrBadRequest, domain.KindOf(err))
}

func TestAttachGatewayOnce(t *testing.T) {
	p := newRegistered(t)
	err := p.AttachGateway("ext-2", StatusPending, "")
	assert.Equal(t, domain.ErrConflict, domain.KindOf(err))
	assert.Equal(t, "ext-1", p.ExternalID())
}

func TestApplyGatewayStatus(t *testing.T) {
	t.Run("Waiting for capture is not paid", func(t *testing.T) {
		p := newRegistered(t)
		changed, err := p.ApplyGatewayStatus(StatusWaitingForCapture, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.False(t, p.Paid())
		require.NotNil(t, p.LastCheckedAt())
		assert.Equal(t, now, *p.LastCheckedAt())
	})

	t.Run("Succeeded marks paid and freezes", func(t *testing.T) {
		p := newRegistered(t)
		_, err := p.ApplyGatewayStatus(StatusSucceeded, now)
		require.NoError(t, err)
		assert.True(t, p.Paid())
		assert.True(t, p.Status().IsTerminal())

		_, err = p.ApplyGatewayStatus(StatusCanceled, now)
		assert.Equal(t, domain.ErrConflict, domain.KindOf(err))
		assert.Equal(t, StatusSucceeded, p.Status())
	})

	t.Run("Unchanged status still stamps check time", func(t *testing.T) {
		p := newRegistered(t)
		changed, err := p.ApplyGatewayStatus(StatusPending, now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, now.Add(time.Minute), *p.LastCheckedAt())
	})

	t.Run("Canceled is no longer in process", func(t *testing.T) {
		p := newRegistered(t)
		_, err := p.ApplyGatewayStatus(StatusCanceled, now)
		require.NoError(t, err)
		assert.False(t, p.InProcess())
		assert.False(t, p.Paid())
	})
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("waiting_for_capture")
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingForCapture, s)

	_, err = ParseStatus("refunded")
	assert.Error(t, err)
}
