/*
handlers_test.go - HTTP tests for the booking API

Tests for:
- Booking, lookup and cancellation over HTTP
- Error kind to status mapping
- Role checks on staff and admin routes
- Front desk transitions, listing, availability and reports
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/hotel"
	"github.com/warp/booking-engine/payment"
)

func TestBooking_CreateLookupCancel(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)

	// GIVEN: a paid $100 x 3 night booking
	res := a.book("101", "2025-01-10", "2025-01-13")
	assert.Equal(t, hotel.StatusConfirmed, res.Status)
	assert.Equal(t, "336.00", res.Pricing.Total.Value.StringFixed(2))

	path := "/api/bookings/" + res.BookingNumber

	// WHEN/THEN: the guest looks it up with the code
	rec := a.do(http.MethodGet, path+"?code="+res.ConfirmationCode, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, res.ID, decode[hotel.Reservation](t, rec).ID)

	// without a code and without a token
	rec = a.do(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// with the wrong code: indistinguishable from a missing booking
	rec = a.do(http.MethodGet, path+"?code=WRONG123", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// staff need no code
	rec = a.do(http.MethodGet, path, nil, a.staff)
	assert.Equal(t, http.StatusOK, rec.Code)

	// cancelling with the wrong code: also indistinguishable from a missing booking
	rec = a.do(http.MethodPost, path+"/cancel", CancelRequest{ConfirmationCode: "WRONG123"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Kind)
	missing := a.do(http.MethodPost, "/api/bookings/BK-NOPE/cancel", CancelRequest{ConfirmationCode: "WRONG123"}, "")
	assert.Equal(t, missing.Code, rec.Code)

	// WHEN: cancelled 30 hours before check-in
	a.clock.Set(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).Add(-30 * time.Hour))
	rec = a.do(http.MethodPost, path+"/cancel", CancelRequest{ConfirmationCode: res.ConfirmationCode, Reason: "flu"}, "")
	require.Equalf(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	// THEN: 25% fee, rest refunded
	result := decode[hotel.CancellationResult](t, rec)
	assert.Equal(t, "84.00", result.Fee.Value.StringFixed(2))
	assert.Equal(t, "252.00", result.Refund.Value.StringFixed(2))
	assert.Equal(t, hotel.StatusCancelled, result.Status)
}

func TestBooking_ValidationErrors(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)

	noEmail := booking("101", "2025-01-10", "2025-01-12")
	noEmail.Guest.Email = ""
	badEmail := booking("101", "2025-01-10", "2025-01-12")
	badEmail.Guest.Email = "not-an-email"
	noAdults := booking("101", "2025-01-10", "2025-01-12")
	noAdults.Adults = 0
	noToken := booking("101", "2025-01-10", "2025-01-12")
	noToken.PaymentToken = ""

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"malformed JSON", `{"room_id": `, "body"},
		{"missing email", noEmail, "guest.email"},
		{"invalid email", badEmail, "guest.email"},
		{"no adults", noAdults, "adults"},
		{"bad date", booking("101", "10/01/2025", "2025-01-12"), "check_in"},
		{"reversed dates", booking("101", "2025-01-12", "2025-01-10"), "check_out"},
		{"past date", booking("101", "2024-12-30", "2025-01-02"), "check_in"},
		{"missing payment token", noToken, "payment_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/bookings", tt.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, "validation", resp.Kind)
			assert.Contains(t, resp.Details, tt.field)
		})
	}

	// Nothing was written
	list, total, err := a.store.ListReservations(context.Background(), hotel.ReservationFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestBooking_BusyRoomIsRetryableConflict(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)

	// GIVEN: another request holds room 101
	release, err := a.locker.Acquire(context.Background(), "room:101")
	require.NoError(t, err)
	defer release()

	// WHEN: a booking request gives up waiting
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(booking("101", "2025-01-10", "2025-01-12")))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", &buf).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	// THEN: the client is told to retry instead of seeing a server error
	require.Equalf(t, http.StatusConflict, rec.Code, "body: %s", rec.Body.String())
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "conflict", resp.Kind)
	assert.True(t, resp.Retryable)
}

func TestBooking_UnknownRoom(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(http.MethodPost, "/api/bookings", booking("999", "2025-01-10", "2025-01-12"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBooking_OverlapConflict(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	a.book("101", "2025-01-10", "2025-01-13")

	// GIVEN: Jan 10-13 booked
	// WHEN: Jan 12-15 is requested
	rec := a.do(http.MethodPost, "/api/bookings", booking("101", "2025-01-12", "2025-01-15"), "")

	// THEN: conflict, retryable
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "conflict", resp.Kind)
	assert.True(t, resp.Retryable)

	// AND: the back-to-back stay is fine
	a.book("101", "2025-01-13", "2025-01-15")
}

func TestBooking_PaymentDeclined(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)

	req := booking("101", "2025-01-10", "2025-01-12")
	req.PaymentToken = payment.TokenDecline
	rec := a.do(http.MethodPost, "/api/bookings", req, "")

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "payment_failed", resp.Kind)
	require.NotNil(t, resp.Reservation, "the pending booking is returned")
	assert.Equal(t, hotel.StatusPending, resp.Reservation.Status)
	assert.Equal(t, hotel.PaymentFailed, resp.Reservation.PaymentStatus)
}

func TestBooking_RequestThenConfirm(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)

	req := booking("101", "2025-01-10", "2025-01-12")
	req.PaymentToken = ""
	rec := a.do(http.MethodPost, "/api/bookings/requests", req, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	pending := decode[hotel.Reservation](t, rec)
	assert.Equal(t, hotel.StatusPending, pending.Status)

	// Guests cannot confirm
	confirmPath := fmt.Sprintf("/api/admin/reservations/%s/confirm", pending.ID)
	rec = a.do(http.MethodPost, confirmPath, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Staff confirm with payment
	rec = a.do(http.MethodPost, confirmPath, ConfirmRequest{PaymentToken: "tok_visa"}, a.staff)
	require.Equalf(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	confirmed := decode[hotel.Reservation](t, rec)
	assert.Equal(t, hotel.StatusConfirmed, confirmed.Status)
	assert.Equal(t, hotel.PaymentPaid, confirmed.PaymentStatus)

	// Confirming twice is a transition error
	rec = a.do(http.MethodPost, confirmPath, nil, a.staff)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, rec).Kind)
}

func TestCancel_WindowClosed(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	res := a.book("101", "2025-01-10", "2025-01-12")

	a.clock.Set(time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC))
	rec := a.do(http.MethodPost, "/api/bookings/"+res.BookingNumber+"/cancel",
		CancelRequest{ConfirmationCode: res.ConfirmationCode}, "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "cancellation_window_closed", decode[ErrorResponse](t, rec).Kind)
}

func TestCancel_RefundFailure(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	res := a.book("101", "2025-01-10", "2025-01-12")

	a.pay.FailRefunds = true
	rec := a.do(http.MethodPost, "/api/bookings/"+res.BookingNumber+"/cancel",
		CancelRequest{ConfirmationCode: res.ConfirmationCode}, "")

	require.Equal(t, http.StatusBadGateway, rec.Code)
	got, err := a.store.GetReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, hotel.StatusConfirmed, got.Status)
}

// =============================================================================
// AUTHORIZATION
// =============================================================================

func TestRoutes_RoleChecks(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)

	expired, err := a.auth.IssueToken("old", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	forged, err := NewAuth("other-secret").IssueToken("mallory", RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"staff route without token", "/api/admin/reservations", "", http.StatusUnauthorized},
		{"staff route with staff token", "/api/admin/reservations", a.staff, http.StatusOK},
		{"staff route with admin token", "/api/admin/reservations", a.admin, http.StatusOK},
		{"admin route with staff token", "/api/admin/rooms", a.staff, http.StatusForbidden},
		{"admin route with admin token", "/api/admin/rooms", a.admin, http.StatusOK},
		{"expired token", "/api/admin/rooms", expired, http.StatusUnauthorized},
		{"wrong secret", "/api/admin/rooms", forged, http.StatusUnauthorized},
		{"garbage token", "/api/admin/rooms", "not.a.jwt", http.StatusUnauthorized},
		{"public route ignores missing token", "/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodGet, tt.path, nil, tt.token)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

// =============================================================================
// FRONT DESK
// =============================================================================

func TestFrontDesk_CheckInCheckOut(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	res := a.book("101", "2025-01-01", "2025-01-03")
	base := "/api/admin/reservations/" + string(res.ID)

	// Check-out before check-in is refused and changes nothing
	rec := a.do(http.MethodPost, base+"/check-out", nil, a.staff)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, base+"/check-in", nil, a.staff)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, hotel.StatusCheckedIn, decode[hotel.Reservation](t, rec).Status)

	rec = a.do(http.MethodGet, "/api/admin/rooms/101", nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, hotel.RoomOccupied, decode[hotel.Room](t, rec).Status)

	rec = a.do(http.MethodPost, base+"/check-out", nil, a.staff)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/api/admin/rooms/101", nil, a.admin)
	room := decode[hotel.Room](t, rec)
	assert.Equal(t, hotel.RoomAvailable, room.Status)
	assert.True(t, room.NeedsCleaning)
}

func TestFrontDesk_NoShow(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	res := a.book("101", "2025-01-02", "2025-01-04")
	path := "/api/admin/reservations/" + string(res.ID) + "/no-show"

	rec := a.do(http.MethodPost, path, nil, a.staff)
	assert.Equal(t, http.StatusConflict, rec.Code, "grace period not over")

	a.clock.Set(time.Date(2025, 1, 3, 1, 0, 0, 0, time.UTC))
	rec = a.do(http.MethodPost, path, nil, a.staff)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, hotel.StatusNoShow, decode[hotel.Reservation](t, rec).Status)
}

func TestListReservations_FiltersAndPages(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	a.seedRoom("102", "100", 2)
	a.book("101", "2025-01-10", "2025-01-12")
	a.book("101", "2025-01-20", "2025-01-22")
	a.book("102", "2025-01-15", "2025-01-16")

	rec := a.do(http.MethodGet, "/api/admin/reservations?page_size=2&sort=check_in", nil, a.staff)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ReservationListResponse](t, rec)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Reservations, 2)
	assert.Equal(t, hotel.RoomID("101"), page.Reservations[0].RoomID)
	assert.Equal(t, hotel.RoomID("102"), page.Reservations[1].RoomID)

	rec = a.do(http.MethodGet, "/api/admin/reservations?page_size=2&page=2&sort=check_in", nil, a.staff)
	page = decode[ReservationListResponse](t, rec)
	require.Len(t, page.Reservations, 1)
	assert.Equal(t, 2, page.Page)

	// to= is a whole day
	rec = a.do(http.MethodGet, "/api/admin/reservations?from=2025-01-15&to=2025-01-20", nil, a.staff)
	page = decode[ReservationListResponse](t, rec)
	assert.Equal(t, 2, page.Total)

	rec = a.do(http.MethodGet, "/api/admin/reservations?room_id=102&status=confirmed", nil, a.staff)
	page = decode[ReservationListResponse](t, rec)
	assert.Equal(t, 1, page.Total)

	for _, q := range []string{"sort=price", "status=lost", "page=0", "page_size=500", "page=x"} {
		rec = a.do(http.MethodGet, "/api/admin/reservations?"+q, nil, a.staff)
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "query %s", q)
	}
}

// =============================================================================
// AVAILABILITY AND REPORTS
// =============================================================================

func TestSearchAvailability(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	a.seedRoom("102", "120", 4)
	a.book("101", "2025-01-10", "2025-01-13")

	rec := a.do(http.MethodGet, "/api/rooms/available?check_in=2025-01-12&check_out=2025-01-14", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AvailabilityResponse](t, rec)
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, hotel.RoomID("102"), resp.Rooms[0].Room.ID)
	// 2 nights x 120 + 12%
	assert.Equal(t, "268.80", resp.Rooms[0].Quote.Total.Value.StringFixed(2))

	rec = a.do(http.MethodGet, "/api/rooms/available?check_in=2025-01-20&check_out=2025-01-21&guests=3", nil, "")
	resp = decode[AvailabilityResponse](t, rec)
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, hotel.RoomID("102"), resp.Rooms[0].Room.ID)

	rec = a.do(http.MethodGet, "/api/rooms/available?check_in=2025-01-14&check_out=2025-01-12", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/rooms/101/availability?check_in=2025-01-12&check_out=2025-01-14", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	explained := decode[hotel.RoomAvailability](t, rec)
	assert.False(t, explained.Available)
	assert.Len(t, explained.Conflicts, 1)
}

func TestRevenueReport_Endpoint(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	a.seedRoom("102", "100", 2)
	a.book("101", "2025-01-10", "2025-01-13")
	a.book("102", "2025-01-10", "2025-01-12")

	rec := a.do(http.MethodGet, "/api/admin/reports/revenue?start=2025-01-01&end=2025-01-31&granularity=day", nil, a.admin)
	require.Equalf(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	report := decode[hotel.RevenueReport](t, rec)
	assert.Equal(t, "560.00", report.Summary.TotalRevenue.Value.StringFixed(2))
	assert.Equal(t, 2, report.Summary.TotalBookings)
	require.Len(t, report.Periods, 1)
	assert.Equal(t, "2025-01-10", report.Periods[0].Period)

	rec = a.do(http.MethodGet, "/api/admin/reports/revenue?start=2025-01-01&end=2025-01-31&granularity=week", nil, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(http.MethodGet, "/api/admin/reports/revenue?start=2025-02-01&end=2025-01-01", nil, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CATALOG
// =============================================================================

func TestCatalog_SaveRoomValidation(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"malformed JSON", `{"id": `, "body"},
		{"missing id", `{"type": "suite", "capacity": 4, "base_price": "300"}`, "id"},
		{"zero capacity", `{"id": "502", "capacity": 0, "base_price": "300"}`, "capacity"},
		{"unknown type", `{"id": "503", "type": "penthouse", "capacity": 2, "base_price": "300"}`, "type"},
		{"unknown status", `{"id": "504", "capacity": 2, "base_price": "300", "status": "haunted"}`, "status"},
		{"season without name", `{"id": "505", "capacity": 2, "base_price": "300",
			"seasons": [{"from": "2025-06-01", "to": "2025-06-30", "multiplier": "1.2"}]}`, "seasons[0].name"},
		{"bad season date", `{"id": "506", "capacity": 2, "base_price": "300",
			"seasons": [{"name": "summer", "from": "June", "to": "2025-06-30", "multiplier": "1.2"}]}`, "seasons.from"},
		{"free room", `{"id": "507", "capacity": 2, "base_price": "0"}`, "base_price"},
		{"foreign currency", `{"id": "508", "capacity": 2, "base_price": "300", "currency": "EUR"}`, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/admin/rooms", tt.body, a.admin)
			require.Equalf(t, http.StatusBadRequest, rec.Code, "body: %s", rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, "validation", resp.Kind)
			assert.Contains(t, resp.Details, tt.field)
		})
	}

	// Nothing was saved
	rooms, err := a.store.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestCatalog_SaveAndStatus(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/admin/rooms",
		`{"id": "501", "type": "suite", "capacity": 4, "base_price": "300"}`, a.admin)
	require.Equalf(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	room := decode[hotel.Room](t, rec)
	assert.Equal(t, "501", room.Number)
	assert.True(t, room.Active)

	rec = a.do(http.MethodPost, "/api/admin/rooms", `{"id": "502", "capacity": 0, "base_price": "300"}`, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/api/admin/rooms/501/status", RoomStatusRequest{Status: "out_of_order"}, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, hotel.RoomOutOfOrder, decode[hotel.Room](t, rec).Status)

	rec = a.do(http.MethodPut, "/api/admin/rooms/501/status", RoomStatusRequest{Status: "haunted"}, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Out-of-order rooms do not sell
	rec = a.do(http.MethodPost, "/api/bookings", booking("501", "2025-01-10", "2025-01-12"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
