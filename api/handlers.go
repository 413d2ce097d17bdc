/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization and input validation, and delegates to hotel.

ENDPOINTS:
  Public:
    GET    /healthz                          Liveness
    GET    /api/rooms/available              Search free rooms with quotes
    GET    /api/rooms/{id}/availability      Explain one room's availability
    POST   /api/bookings/requests            Pending, unpaid booking request
    POST   /api/bookings                     Book and pay
    GET    /api/bookings/{number}?code=      Look up (code, or staff token)
    POST   /api/bookings/{number}/cancel     Cancel with confirmation code

  Staff (bearer token, role staff or admin):
    GET    /api/admin/reservations           Filtered, paginated list
    GET    /api/admin/reservations/{id}      Single reservation
    POST   /api/admin/reservations/{id}/confirm|check-in|check-out|no-show
    GET    /api/admin/guests/{email}         Loyalty profile
    POST   /api/admin/housekeeping/run       Run the scheduler jobs now

  Admin:
    GET    /api/admin/rooms                  Catalog
    POST   /api/admin/rooms                  Create or replace a room
    GET    /api/admin/rooms/{id}             Single room
    PUT    /api/admin/rooms/{id}/status      Operational status
    GET    /api/admin/reports/revenue        Revenue by day or month

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator tags, then domain validation)
  3. Call the BookingService / Reporter / store
  4. Serialize response
  5. Map errors with writeDomainError

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error kind to status mapping
  - auth.go: Identity gate
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

const defaultPageSize = 50

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service     *hotel.BookingService
	Store       hotel.TxStore
	Reporter    *hotel.Reporter
	Housekeeper *Housekeeper

	// Reset wipes the store before a scenario loads. Nil disables reset.
	Reset func(ctx context.Context) error

	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over svc and the store it was built with.
func NewHandler(svc *hotel.BookingService, store hotel.TxStore) *Handler {
	return &Handler{
		Service:     svc,
		Store:       store,
		Reporter:    hotel.NewReporter(store, svc.Policy().Currency),
		Housekeeper: NewHousekeeper(svc, store),
		validate:    newValidator(),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// SearchAvailability lists sellable rooms free for the stay, each with a quote.
// GET /api/rooms/available?check_in=&check_out=&guests=
func (h *Handler) SearchAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	checkIn, checkOut, err := stayParams(q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	guests, err := intParam(q.Get("guests"), "guests", 1)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	rooms, err := h.Service.Checker().FindAvailableRooms(ctx, checkIn, checkOut, guests)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	resp := AvailabilityResponse{CheckIn: checkIn, CheckOut: checkOut, Guests: guests,
		Rooms: make([]AvailableRoomDTO, 0, len(rooms))}
	for _, room := range rooms {
		quote, err := h.Service.Quote(ctx, room.ID, checkIn, checkOut)
		if err != nil {
			writeDomainError(w, err, nil)
			return
		}
		resp.Rooms = append(resp.Rooms, AvailableRoomDTO{Room: room, Quote: quote})
	}
	writeJSON(w, http.StatusOK, resp)
}

// RoomAvailability explains whether one room can take the stay.
// GET /api/rooms/{id}/availability?check_in=&check_out=
func (h *Handler) RoomAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	checkIn, checkOut, err := stayParams(q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	a, err := h.Service.Checker().Explain(r.Context(), hotel.RoomID(chi.URLParam(r, "id")), checkIn, checkOut)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// =============================================================================
// GUEST BOOKING ENDPOINTS
// =============================================================================

// CreateBookingRequest records a pending request without payment.
// POST /api/bookings/requests
func (h *Handler) CreateBookingRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bookingRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Service.CreateBookingRequest(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// CreateBooking books and pays in one call. A declined payment answers 402
// with the pending reservation in the body.
// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bookingRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Service.CreateBooking(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, &res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) bookingRequest(w http.ResponseWriter, r *http.Request) (hotel.BookingRequest, bool) {
	var body BookingRequest
	if err := h.decode(r, &body, false); err != nil {
		writeDomainError(w, err, nil)
		return hotel.BookingRequest{}, false
	}
	req, err := body.toDomain()
	if err != nil {
		writeDomainError(w, err, nil)
		return hotel.BookingRequest{}, false
	}
	return req, true
}

// GetBooking returns a booking to its guest (matching code) or to staff.
// GET /api/bookings/{number}?code=
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	access := hotel.Access{
		ConfirmationCode: r.URL.Query().Get("code"),
		Privileged:       ClaimsFrom(r.Context()).Privileged(),
	}

	res, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "number"), access)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelBooking cancels and refunds per the fee schedule.
// POST /api/bookings/{number}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var body CancelRequest
	if err := h.decode(r, &body, false); err != nil {
		writeDomainError(w, err, nil)
		return
	}

	result, err := h.Service.CancelBooking(r.Context(), chi.URLParam(r, "number"), body.ConfirmationCode, body.Reason)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// FRONT DESK ENDPOINTS
// =============================================================================

// ListReservations returns one page of reservations.
// GET /api/admin/reservations?status=&from=&to=&guest_email=&room_id=&room_type=&page=&page_size=&sort=
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	filter, page, pageSize, err := reservationFilter(r)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	list, total, err := h.Service.ListBookings(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	if list == nil {
		list = []hotel.Reservation{}
	}
	writeJSON(w, http.StatusOK, ReservationListResponse{
		Reservations: list,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
	})
}

func reservationFilter(r *http.Request) (hotel.ReservationFilter, int, int, error) {
	q := r.URL.Query()
	f := hotel.ReservationFilter{
		RoomID:     hotel.RoomID(q.Get("room_id")),
		RoomType:   hotel.RoomType(q.Get("room_type")),
		GuestEmail: q.Get("guest_email"),
		Sort:       hotel.SortOrder(q.Get("sort")),
	}
	for _, s := range strings.Split(q.Get("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Statuses = append(f.Statuses, hotel.Status(s))
		}
	}

	var err error
	if v := q.Get("from"); v != "" {
		if f.CheckInFrom, err = parseTime("from", v); err != nil {
			return f, 0, 0, err
		}
	}
	if v := q.Get("to"); v != "" {
		if f.CheckInTo, err = parseTime("to", v); err != nil {
			return f, 0, 0, err
		}
		if len(v) == len(time.DateOnly) {
			// a bare date includes the whole day
			f.CheckInTo = f.CheckInTo.Add(24*time.Hour - time.Nanosecond)
		}
	}

	page, err := intParam(q.Get("page"), "page", 1)
	if err != nil {
		return f, 0, 0, err
	}
	pageSize, err := intParam(q.Get("page_size"), "page_size", defaultPageSize)
	if err != nil {
		return f, 0, 0, err
	}
	if page < 1 || pageSize < 1 || pageSize > hotel.MaxPageSize {
		return f, 0, 0, &hotel.ValidationError{Field: "page", Reason: "page must be >= 1 and page_size within 1-200"}
	}
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize
	return f, page, pageSize, nil
}

// GetReservation returns a reservation by ID.
// GET /api/admin/reservations/{id}
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.GetReservation(r.Context(), reservationID(r))
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Confirm confirms a pending request, capturing payment when a token is given.
// POST /api/admin/reservations/{id}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var body ConfirmRequest
	if err := h.decode(r, &body, true); err != nil {
		writeDomainError(w, err, nil)
		return
	}

	res, err := h.Service.Confirm(r.Context(), reservationID(r), body.PaymentToken)
	if err != nil {
		writeDomainError(w, err, &res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CheckIn, CheckOut and MarkNoShow share one shape.
func (h *Handler) transition(op func(context.Context, hotel.ReservationID) (hotel.Reservation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := op(r.Context(), reservationID(r))
		if err != nil {
			writeDomainError(w, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /api/admin/reservations/{id}/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.transition(h.Service.CheckIn)(w, r)
}

// POST /api/admin/reservations/{id}/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.transition(h.Service.CheckOut)(w, r)
}

// POST /api/admin/reservations/{id}/no-show
func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.transition(h.Service.MarkNoShow)(w, r)
}

// GuestProfile returns a guest's loyalty standing.
// GET /api/admin/guests/{email}
func (h *Handler) GuestProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.GuestProfile(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// RunHousekeeping runs the scheduler jobs once.
// POST /api/admin/housekeeping/run
func (h *Handler) RunHousekeeping(w http.ResponseWriter, r *http.Request) {
	result, err := h.Housekeeper.Run(r.Context())
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

// ListRooms returns every room.
// GET /api/admin/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Store.ListRooms(r.Context())
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	if rooms == nil {
		rooms = []hotel.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

// GetRoom returns one room.
// GET /api/admin/rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Store.GetRoom(r.Context(), hotel.RoomID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// SaveRoom creates or replaces a room. The body uses the catalog format.
// POST /api/admin/rooms
func (h *Handler) SaveRoom(w http.ResponseWriter, r *http.Request) {
	var body factory.RoomJSON
	if err := h.decode(r, &body, false); err != nil {
		writeDomainError(w, err, nil)
		return
	}

	currency := h.Service.Policy().Currency
	room, err := body.ToRoom(currency)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	room.UpdatedAt = h.Service.Now().UTC()
	if err := factory.ImportRooms(r.Context(), h.Store, []hotel.Room{room}, currency); err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// UpdateRoomStatus sets a room's operational status by hand.
// PUT /api/admin/rooms/{id}/status
func (h *Handler) UpdateRoomStatus(w http.ResponseWriter, r *http.Request) {
	var body RoomStatusRequest
	if err := h.decode(r, &body, false); err != nil {
		writeDomainError(w, err, nil)
		return
	}

	ctx := r.Context()
	id := hotel.RoomID(chi.URLParam(r, "id"))
	if err := h.Store.UpdateRoomStatus(ctx, id, hotel.RoomStatus(body.Status), body.NeedsCleaning, h.Service.Now().UTC()); err != nil {
		writeDomainError(w, err, nil)
		return
	}
	room, err := h.Store.GetRoom(ctx, id)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// =============================================================================
// REPORTS
// =============================================================================

// RevenueReport aggregates recognised revenue. Both days are inclusive.
// GET /api/admin/reports/revenue?start=&end=&granularity=day|month
func (h *Handler) RevenueReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseTime("start", q.Get("start"))
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	end, err := parseTime("end", q.Get("end"))
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	g, err := generic.ParseGranularity(q.Get("granularity"))
	if err != nil {
		writeDomainError(w, &hotel.ValidationError{Field: "granularity", Reason: err.Error()}, nil)
		return
	}

	report, err := h.Reporter.RevenueReport(r.Context(), start, end, g)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body and runs validator tags. With optional set an
// empty body is accepted.
func (h *Handler) decode(r *http.Request, dst any, optional bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return &hotel.ValidationError{Field: "body", Reason: "invalid JSON"}
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func reservationID(r *http.Request) hotel.ReservationID {
	return hotel.ReservationID(chi.URLParam(r, "id"))
}

func stayParams(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := parseTime("check_in", checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := parseTime("check_out", checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

func intParam(v, field string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &hotel.ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}
