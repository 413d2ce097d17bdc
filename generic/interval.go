package generic

import (
	"fmt"
	"math"
	"time"
)

// =============================================================================
// INTERVAL - Half-open [Start, End) span of time
// =============================================================================

// Interval is the span a reservation occupies a room. End is exclusive, so a
// stay ending on the 13th and one starting on the 13th do not overlap.
//
// Examples:
//   - [Jan 10, Jan 13) and [Jan 12, Jan 15): overlap on the 12th
//   - [Jan 10, Jan 13) and [Jan 13, Jan 15): touch, no overlap
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval validates that End is strictly after Start.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: %s is not after %s", ErrInvalidInterval,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether [a,b) and [c,d) share any instant: a < d && c < b.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains returns true if t is within [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// Nights is the number of started 24h blocks: ceil(duration / 24h).
func (i Interval) Nights() int {
	d := i.Duration()
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(24*time.Hour)))
}

func (i Interval) String() string {
	return "[" + i.Start.Format(time.RFC3339) + ", " + i.End.Format(time.RFC3339) + ")"
}

// =============================================================================
// DATE RANGE - Inclusive calendar-day range (seasons, report windows)
// =============================================================================

// DateRange covers whole calendar days From..To inclusive, evaluated in UTC.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: StartOfDay(from), To: StartOfDay(to)}
	if r.To.Before(r.From) {
		return DateRange{}, fmt.Errorf("%w: %s before %s", ErrInvalidInterval, DayKey(to), DayKey(from))
	}
	return r, nil
}

// Contains checks whether t falls on a day within the range.
func (r DateRange) Contains(t time.Time) bool {
	day := StartOfDay(t)
	return !day.Before(StartOfDay(r.From)) && !day.After(StartOfDay(r.To))
}

// Overlaps reports whether two inclusive ranges share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !StartOfDay(r.From).After(StartOfDay(o.To)) && !StartOfDay(o.From).After(StartOfDay(r.To))
}

func (r DateRange) String() string {
	return "[" + DayKey(r.From) + ", " + DayKey(r.To) + "]"
}

// =============================================================================
// GRANULARITY - Calendar bucketing for reports
// =============================================================================

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// ParseGranularity accepts "", "day" and "month". Empty means day.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", GranularityDay:
		return GranularityDay, nil
	case GranularityMonth:
		return GranularityMonth, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// Truncate returns the start of the bucket containing t.
func (g Granularity) Truncate(t time.Time) time.Time {
	if g == GranularityMonth {
		return StartOfMonth(t)
	}
	return StartOfDay(t)
}

// Key renders the bucket label, "2025-01-10" or "2025-01".
func (g Granularity) Key(t time.Time) string {
	if g == GranularityMonth {
		return t.UTC().Format("2006-01")
	}
	return DayKey(t)
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func StartOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func DayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// Date is a test and fixture shorthand for midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
