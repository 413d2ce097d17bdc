package hotel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

func seedRevenue(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.seedRoom(t, testRoom("101", "100", 2))
	f.seedRoom(t, testRoom("102", "120", 2))

	// counted: 336.00 and 134.40 on Jan 10, 224.00 on Feb 3
	_, err := f.svc.CreateBooking(ctx, bookingReq("101", jan(10), jan(13)))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, bookingReq("102", jan(10), jan(11)))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, bookingReq("101", generic.Date(2025, 2, 3), generic.Date(2025, 2, 5)))
	require.NoError(t, err)

	// not counted: pending and cancelled
	_, err = f.svc.CreateBookingRequest(ctx, bookingReq("102", jan(20), jan(22)))
	require.NoError(t, err)
	cancelled, err := f.svc.CreateBooking(ctx, bookingReq("102", jan(25), jan(27)))
	require.NoError(t, err)
	_, err = f.svc.CancelBooking(ctx, cancelled.BookingNumber, cancelled.ConfirmationCode, "")
	require.NoError(t, err)
}

func TestRevenueReport_Daily(t *testing.T) {
	f := newTestFixture(t)
	seedRevenue(t, f)
	reporter := hotel.NewReporter(f.store, generic.USD)

	report, err := reporter.RevenueReport(context.Background(), jan(1), jan(31), generic.GranularityDay)
	require.NoError(t, err)

	require.Len(t, report.Periods, 1)
	p := report.Periods[0]
	assert.Equal(t, "2025-01-10", p.Period)
	assert.Equal(t, "470.40", p.TotalRevenue.Value.StringFixed(2))
	assert.Equal(t, 2, p.BookingsCount)
	assert.Equal(t, "110.00", p.AverageRate.Value.StringFixed(2))

	assert.Equal(t, 2, report.Summary.TotalBookings)
	assert.Equal(t, "470.40", report.Summary.TotalRevenue.Value.StringFixed(2))
	assert.Equal(t, "235.20", report.Summary.AverageBookingValue.Value.StringFixed(2))
}

func TestRevenueReport_MonthlyAscending(t *testing.T) {
	f := newTestFixture(t)
	seedRevenue(t, f)
	reporter := hotel.NewReporter(f.store, generic.USD)

	report, err := reporter.RevenueReport(context.Background(), jan(1), generic.Date(2025, 2, 28), generic.GranularityMonth)
	require.NoError(t, err)

	require.Len(t, report.Periods, 2)
	assert.Equal(t, "2025-01", report.Periods[0].Period)
	assert.Equal(t, "2025-02", report.Periods[1].Period)
	assert.Equal(t, "224.00", report.Periods[1].TotalRevenue.Value.StringFixed(2))
	assert.Equal(t, "694.40", report.Summary.TotalRevenue.Value.StringFixed(2))
}

func TestRevenueReport_EndDayIsInclusive(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t)
	f.seedRoom(t, testRoom("101", "100", 2))

	// afternoon check-in on the last day of the window
	late := jan(31).Add(15 * time.Hour)
	_, err := f.svc.CreateBooking(ctx, bookingReq("101", late, late.Add(20*time.Hour)))
	require.NoError(t, err)

	report, err := hotel.NewReporter(f.store, generic.USD).RevenueReport(ctx, jan(31), jan(31), "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TotalBookings)
	assert.Equal(t, generic.GranularityDay, report.Granularity)
}

func TestRevenueReport_EmptyAndInvalid(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t)
	reporter := hotel.NewReporter(f.store, generic.USD)

	report, err := reporter.RevenueReport(ctx, jan(1), jan(31), generic.GranularityDay)
	require.NoError(t, err)
	assert.Empty(t, report.Periods)
	assert.Zero(t, report.Summary.TotalBookings)
	assert.True(t, report.Summary.AverageBookingValue.IsZero())

	_, err = reporter.RevenueReport(ctx, jan(31), jan(1), generic.GranularityDay)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = reporter.RevenueReport(ctx, jan(1), jan(31), "week")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestAggregate_CheckedInAndOutCount(t *testing.T) {
	window, err := generic.NewDateRange(jan(1), jan(31))
	require.NoError(t, err)
	rs := []hotel.Reservation{
		{CheckIn: jan(5), Status: hotel.StatusCheckedIn, Pricing: hotel.Pricing{Total: usd("100"), NightlyRate: usd("50")}},
		{CheckIn: jan(5).Add(9 * time.Hour), Status: hotel.StatusCheckedOut, Pricing: hotel.Pricing{Total: usd("33.335"), NightlyRate: usd("30")}},
	}

	report, err := hotel.Aggregate(rs, window, generic.GranularityDay, generic.USD)
	require.NoError(t, err)
	require.Len(t, report.Periods, 1)
	assert.Equal(t, "133.34", report.Periods[0].TotalRevenue.Value.StringFixed(2))
	assert.Equal(t, "40.00", report.Periods[0].AverageRate.Value.StringFixed(2))
}

func TestAggregate_ForeignCurrencyIsRejected(t *testing.T) {
	// GIVEN: a USD window holding one reservation priced in EUR
	window, err := generic.NewDateRange(jan(1), jan(31))
	require.NoError(t, err)
	eur := func(s string) generic.Money { return generic.NewMoney(s, generic.EUR) }
	rs := []hotel.Reservation{
		{BookingNumber: "BK-1", CheckIn: jan(5), Status: hotel.StatusConfirmed, Pricing: hotel.Pricing{Total: usd("100"), NightlyRate: usd("50")}},
		{BookingNumber: "BK-2", CheckIn: jan(6), Status: hotel.StatusConfirmed, Pricing: hotel.Pricing{Total: eur("90"), NightlyRate: eur("45")}},
	}

	// WHEN: the report is aggregated
	var report hotel.RevenueReport
	require.NotPanics(t, func() {
		report, err = hotel.Aggregate(rs, window, generic.GranularityDay, generic.USD)
	})

	// THEN: it fails as a validation error instead of mixing currencies
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Empty(t, report.Periods)
}

func TestRevenueReport_ForeignCurrencyRoomIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture(t)

	// GIVEN: a confirmed EUR reservation already in storage
	room := testRoom("101", "100", 2)
	room.BasePrice = generic.NewMoney("100", generic.EUR)
	f.seedRoom(t, room)
	require.NoError(t, f.store.InsertReservation(ctx, hotel.Reservation{
		ID: "r-eur", BookingNumber: "BK-EUR", ConfirmationCode: "EURCODE1", RoomID: "101",
		Guest:   hotel.Guest{Email: "eve@example.com", Name: "Eve"},
		CheckIn: jan(10), CheckOut: jan(12), Occupancy: hotel.Occupancy{Adults: 1},
		Pricing: hotel.Pricing{
			Total:       generic.NewMoney("200", generic.EUR),
			NightlyRate: generic.NewMoney("100", generic.EUR),
		},
		Status: hotel.StatusConfirmed, PaymentStatus: hotel.PaymentPaid,
		CreatedAt: testNow, UpdatedAt: testNow, Version: 1,
	}))

	// WHEN: a USD report covers it
	reporter := hotel.NewReporter(f.store, generic.USD)
	_, err := reporter.RevenueReport(ctx, jan(1), jan(31), generic.GranularityDay)

	// THEN: the mismatch is a client-visible validation error
	assert.ErrorIs(t, err, generic.ErrValidation)
}
