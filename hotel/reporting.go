/*
reporting.go - Time-windowed revenue aggregation

PURPOSE:
  Aggregates reservations into per-period revenue, computed on demand
  from the store. Nothing here is persisted.

INCLUSION:
  - status in {confirmed, checked_in, checked_out}
  - check-in on a calendar day within [start, end], both inclusive

OUTPUT:
  Periods ascending by key. Each period carries total revenue (sum of
  frozen totals), booking count and average nightly rate. The summary
  reports the whole window; average booking value is 0 when there are
  no bookings.

CONSISTENCY:
  Reads run without the room lock; a report may miss a booking being
  confirmed concurrently.
*/
package hotel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/warp/booking-engine/generic"
)

type RevenuePeriod struct {
	Period        string        `json:"period"`
	Start         time.Time     `json:"start"`
	TotalRevenue  generic.Money `json:"total_revenue"`
	BookingsCount int           `json:"bookings_count"`
	AverageRate   generic.Money `json:"average_rate"`
}

type RevenueSummary struct {
	TotalRevenue        generic.Money `json:"total_revenue"`
	TotalBookings       int           `json:"total_bookings"`
	AverageBookingValue generic.Money `json:"average_booking_value"`
}

type RevenueReport struct {
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	Granularity generic.Granularity `json:"granularity"`
	Periods     []RevenuePeriod     `json:"periods"`
	Summary     RevenueSummary      `json:"summary"`
}

type Reporter struct {
	store    Store
	currency generic.Currency
}

func NewReporter(store Store, currency generic.Currency) *Reporter {
	return &Reporter{store: store, currency: currency}
}

// RevenueReport groups qualifying reservations by day or month.
func (rp *Reporter) RevenueReport(ctx context.Context, start, end time.Time, g generic.Granularity) (RevenueReport, error) {
	window, err := generic.NewDateRange(start, end)
	if err != nil {
		return RevenueReport{}, &ValidationError{Field: "end", Reason: err.Error()}
	}
	if g == "" {
		g = generic.GranularityDay
	}
	if _, err := generic.ParseGranularity(string(g)); err != nil {
		return RevenueReport{}, &ValidationError{Field: "granularity", Reason: err.Error()}
	}

	// CheckInTo is inclusive, so stop one nanosecond before the next day.
	reservations, _, err := rp.store.ListReservations(ctx, ReservationFilter{
		Statuses:    RevenueStatuses,
		CheckInFrom: window.From,
		CheckInTo:   window.To.AddDate(0, 0, 1).Add(-time.Nanosecond),
		Sort:        SortCheckInAsc,
	})
	if err != nil {
		return RevenueReport{}, fmt.Errorf("failed to load reservations: %w", err)
	}

	return Aggregate(reservations, window, g, rp.currency)
}

// Aggregate builds a report from already-filtered reservations. Every
// reservation must be priced in currency.
func Aggregate(reservations []Reservation, window generic.DateRange, g generic.Granularity, currency generic.Currency) (RevenueReport, error) {
	type bucket struct {
		start   time.Time
		revenue generic.Money
		rates   generic.Money
		count   int
	}
	buckets := make(map[string]*bucket)
	total := generic.Zero(currency)
	count := 0

	for _, r := range reservations {
		if r.Pricing.Total.Currency != currency || r.Pricing.NightlyRate.Currency != currency {
			return RevenueReport{}, &ValidationError{Field: "currency",
				Reason: fmt.Sprintf("reservation %s is priced in %s, report is in %s", r.BookingNumber, r.Pricing.Total.Currency, currency)}
		}
		key := g.Key(r.CheckIn)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: g.Truncate(r.CheckIn), revenue: generic.Zero(currency), rates: generic.Zero(currency)}
			buckets[key] = b
		}
		b.revenue = b.revenue.Add(r.Pricing.Total)
		b.rates = b.rates.Add(r.Pricing.NightlyRate)
		b.count++

		total = total.Add(r.Pricing.Total)
		count++
	}

	periods := make([]RevenuePeriod, 0, len(buckets))
	for key, b := range buckets {
		periods = append(periods, RevenuePeriod{
			Period:        key,
			Start:         b.start,
			TotalRevenue:  b.revenue.Round(),
			BookingsCount: b.count,
			AverageRate:   b.rates.DivInt(b.count).Round(),
		})
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })

	return RevenueReport{
		Start:       window.From,
		End:         window.To,
		Granularity: g,
		Periods:     periods,
		Summary: RevenueSummary{
			TotalRevenue:        total.Round(),
			TotalBookings:       count,
			AverageBookingValue: total.DivInt(count).Round(),
		},
	}, nil
}
