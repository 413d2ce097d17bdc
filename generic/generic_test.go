package generic_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/generic"
)

// =============================================================================
// INTERVAL TESTS
// =============================================================================

func TestInterval_Overlaps_HalfOpen(t *testing.T) {
	jan := func(d int) time.Time { return generic.Date(2025, time.January, d) }
	booked := generic.Interval{Start: jan(10), End: jan(13)}

	tests := []struct {
		name    string
		other   generic.Interval
		overlap bool
	}{
		{"partial overlap on the 12th", generic.Interval{Start: jan(12), End: jan(15)}, true},
		{"touching checkout/checkin", generic.Interval{Start: jan(13), End: jan(15)}, false},
		{"touching before", generic.Interval{Start: jan(8), End: jan(10)}, false},
		{"contained", generic.Interval{Start: jan(11), End: jan(12)}, true},
		{"containing", generic.Interval{Start: jan(1), End: jan(31)}, true},
		{"identical", booked, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlap, booked.Overlaps(tt.other))
			assert.Equal(t, tt.overlap, tt.other.Overlaps(booked), "overlap must be symmetric")
		})
	}
}

func TestInterval_Nights_RoundsUp(t *testing.T) {
	start := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)

	i := generic.Interval{Start: start, End: start.Add(72 * time.Hour)}
	assert.Equal(t, 3, i.Nights())

	// 15:00 -> 11:00 three days later is 68h, still three nights
	i = generic.Interval{Start: start, End: start.Add(68 * time.Hour)}
	assert.Equal(t, 3, i.Nights())

	i = generic.Interval{Start: start, End: start.Add(72*time.Hour + time.Second)}
	assert.Equal(t, 4, i.Nights())
}

func TestNewInterval_RejectsEmptyAndInverted(t *testing.T) {
	d := generic.Date(2025, time.May, 1)

	_, err := generic.NewInterval(d, d)
	assert.ErrorIs(t, err, generic.ErrInvalidInterval)

	_, err = generic.NewInterval(d, d.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, generic.ErrInvalidInterval)

	i, err := generic.NewInterval(d, d.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, i.Nights())
}

func TestDateRange_ContainsAndOverlaps(t *testing.T) {
	summer, err := generic.NewDateRange(generic.Date(2025, 6, 1), generic.Date(2025, 8, 31))
	require.NoError(t, err)

	assert.True(t, summer.Contains(time.Date(2025, 8, 31, 23, 59, 0, 0, time.UTC)), "last day is inclusive")
	assert.False(t, summer.Contains(generic.Date(2025, 9, 1)))

	autumn := generic.DateRange{From: generic.Date(2025, 8, 31), To: generic.Date(2025, 11, 30)}
	assert.True(t, summer.Overlaps(autumn), "sharing Aug 31 is an overlap for inclusive ranges")

	autumn.From = generic.Date(2025, 9, 1)
	assert.False(t, summer.Overlaps(autumn))
}

func TestGranularity_Keys(t *testing.T) {
	at := time.Date(2025, 1, 10, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-10", generic.GranularityDay.Key(at))
	assert.Equal(t, "2025-01", generic.GranularityMonth.Key(at))

	g, err := generic.ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, generic.GranularityDay, g)

	_, err = generic.ParseGranularity("week")
	assert.Error(t, err)
}

// =============================================================================
// MONEY TESTS
// =============================================================================

func TestMoney_NoFloatDrift(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3
	a := generic.NewMoney("0.1", generic.USD)
	b := generic.NewMoney("0.2", generic.USD)
	assert.True(t, a.Add(b).Equal(generic.NewMoney("0.3", generic.USD)))
}

func TestMoney_RoundIsBankers(t *testing.T) {
	assert.Equal(t, "2.12", generic.NewMoney("2.125", generic.USD).Round().Value.StringFixed(2))
	assert.Equal(t, "2.14", generic.NewMoney("2.135", generic.USD).Round().Value.StringFixed(2))
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := generic.NewMoney("336", generic.USD)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"336.00","currency":"USD"}`, string(data))

	var back generic.Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(m))
}

func TestMoney_CurrencyMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		generic.NewMoney("1", generic.USD).Add(generic.NewMoney("1", generic.EUR))
	})
	assert.NotPanics(t, func() {
		generic.Money{}.Add(generic.NewMoney("1", generic.EUR))
	})
}

func TestRate_UnmarshalAcceptsNumberOrString(t *testing.T) {
	var r generic.Rate
	require.NoError(t, json.Unmarshal([]byte(`0.12`), &r))
	assert.Equal(t, "0.12", r.String())
	require.NoError(t, json.Unmarshal([]byte(`"0.25"`), &r))
	assert.Equal(t, "0.25", r.String())
}

// =============================================================================
// ERROR HELPER TESTS
// =============================================================================

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", generic.ErrConflict)
	assert.True(t, generic.IsRetryable(wrapped))
	assert.False(t, generic.IsClientError(wrapped))

	assert.True(t, generic.IsClientError(fmt.Errorf("x: %w", generic.ErrValidation)))
	assert.True(t, generic.IsNotFound(fmt.Errorf("x: %w", generic.ErrNotFound)))
	assert.False(t, generic.IsNotFound(errors.New("boom")))
}
