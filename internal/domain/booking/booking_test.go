package booking

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

func day(d int) time.Time {
	return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
}

func newPending(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(uuid.New(), uuid.New(), day(1), day(4), Guests{Adults: 2}, decimal.NewFromInt(1000), now)
	require.NoError(t, err)
	return b
}

func TestNewBooking(t *testing.T) {
	b := newPending(t)

	assert.Equal(t, StatusPending, b.Status())
	assert.True(t, decimal.NewFromInt(3000).Equal(b.TotalPrice()), "got %s", b.TotalPrice())
	assert.Equal(t, int64(1), b.Version())
	assert.Equal(t, now, b.CreatedAt())
}

func TestTotalPrice(t *testing.T) {
	cases := []struct {
		name     string
		price    string
		in, out  time.Time
		expected string
	}{
		{"whole days", "1000", day(1), day(4), "3000"},
		{"fractional day", "1000", day(1), day(2).Add(12 * time.Hour), "1500"},
		{"odd price", "99.99", day(1), day(8), "699.93"},
		{"quarter day", "1000", day(1), day(2).Add(6 * time.Hour), "1250"},
		{"single hour", "240", day(1), day(2).Add(time.Hour), "250"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TotalPrice(decimal.RequireFromString(tc.price), tc.in, tc.out)
			assert.True(t, decimal.RequireFromString(tc.expected).Equal(got), "got %s", got)
		})
	}
}

func TestTotalPrice_KeepsFractionalPrecision(t *testing.T) {
	got := TotalPrice(decimal.NewFromInt(100), day(1), day(2).Add(time.Hour))

	assert.True(t, got.GreaterThan(decimal.RequireFromString("104.166")), "got %s", got)
	assert.True(t, got.LessThan(decimal.RequireFromString("104.167")), "got %s", got)
	assert.NotEqual(t, got.Round(2).String(), got.String())
}

func TestValidateStay(t *testing.T) {
	cases := []struct {
		name    string
		in, out time.Time
		guests  Guests
		ok      bool
	}{
		{"valid", day(1), day(3), Guests{Adults: 2, Children: 1}, true},
		{"check-out before check-in", day(3), day(1), Guests{Adults: 1}, false},
		{"same day", day(1), day(1), Guests{Adults: 1}, false},
		{"shorter than a day", day(1), day(1).Add(23 * time.Hour), Guests{Adults: 1}, false},
		{"no adults", day(1), day(2), Guests{Children: 2}, false},
		{"too many adults", day(1), day(2), Guests{Adults: 11}, false},
		{"too many guests", day(1), day(2), Guests{Adults: 10, Children: 6}, false},
		{"max guests", day(1), day(2), Guests{Adults: 10, Children: 5}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStay(tc.in, tc.out, tc.guests)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, domain.ErrBadRequest, domain.KindOf(err))
		})
	}
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(day(1), day(4), day(3), day(6)))
	assert.True(t, Overlaps(day(2), day(3), day(1), day(6)))
	assert.False(t, Overlaps(day(1), day(4), day(4), day(6)), "adjacent stays share the turnover day")
	assert.False(t, Overlaps(day(5), day(6), day(1), day(4)))
}

func TestTransitions(t *testing.T) {
	t.Run("Approve then complete", func(t *testing.T) {
		b := newPending(t)
		require.NoError(t, b.Approve(now))
		assert.Equal(t, StatusApproved, b.Status())
		assert.Equal(t, int64(2), b.Version())

		require.NoError(t, b.Complete(now))
		assert.Equal(t, StatusCompleted, b.Status())
	})

	t.Run("Approve twice fails", func(t *testing.T) {
		b := newPending(t)
		require.NoError(t, b.Approve(now))
		err := b.Approve(now)
		assert.Equal(t, domain.ErrConflict, domain.KindOf(err))
		assert.Equal(t, StatusApproved, b.Status())
	})

	t.Run("Cancel approved", func(t *testing.T) {
		b := newPending(t)
		require.NoError(t, b.Approve(now))
		require.NoError(t, b.Cancel(now))
		assert.Equal(t, StatusCancelled, b.Status())
	})

	t.Run("Terminal statuses are final", func(t *testing.T) {
		b := newPending(t)
		require.NoError(t, b.Reject(now))

		for _, op := range []func(time.Time) error{b.Approve, b.Reject, b.Cancel, b.Complete} {
			assert.Equal(t, domain.ErrConflict, domain.KindOf(op(now)))
		}
		assert.Equal(t, StatusRejected, b.Status())
	})

	t.Run("Complete requires approval", func(t *testing.T) {
		b := newPending(t)
		assert.Error(t, b.Complete(now))
	})
}

func TestPayout(t *testing.T) {
	b := newPending(t)
	assert.True(t, decimal.NewFromInt(2600).Equal(b.Payout(decimal.NewFromInt(400))))
	assert.True(t, b.TotalPrice().Equal(b.Payout(decimal.Zero)))
}
