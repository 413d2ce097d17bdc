package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
	"github.com/warp/booking-engine/hotel/store"
	"github.com/warp/booking-engine/lock"
	"github.com/warp/booking-engine/notify"
	"github.com/warp/booking-engine/payment"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// Jan 1 2025, noon UTC.
var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type testAPI struct {
	t      *testing.T
	router http.Handler
	h      *Handler
	store  *store.Memory
	pay    *payment.Sandbox
	events *notify.Recorder
	clock  *testClock
	auth   *Auth
	locker *lock.Local

	staff string
	admin string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	a := &testAPI{
		t:      t,
		store:  store.NewMemory(),
		pay:    payment.NewSandbox(),
		events: &notify.Recorder{},
		clock:  &testClock{t: testNow},
		auth:   NewAuth("test-secret"),
		locker: lock.NewLocal(),
	}
	svc := hotel.NewBookingService(a.store, a.locker,
		hotel.WithPayments(a.pay),
		hotel.WithNotifier(a.events),
		hotel.WithClock(a.clock.Now),
	)
	a.h = NewHandler(svc, a.store)
	a.h.Housekeeper.Now = a.clock.Now
	a.h.Reset = func(context.Context) error {
		a.store.Reset()
		return nil
	}
	a.router = NewRouter(a.h, a.auth)

	var err error
	a.staff, err = a.auth.IssueToken("frontdesk", RoleStaff, time.Hour)
	require.NoError(t, err)
	a.admin, err = a.auth.IssueToken("manager", RoleAdmin, time.Hour)
	require.NoError(t, err)
	return a
}

func (a *testAPI) seedRoom(id hotel.RoomID, price string, capacity int) {
	a.t.Helper()
	require.NoError(a.t, a.store.SaveRoom(context.Background(), hotel.Room{
		ID:        id,
		Number:    string(id),
		Type:      hotel.RoomStandard,
		Capacity:  capacity,
		BasePrice: generic.NewMoney(price, generic.USD),
		Active:    true,
		Status:    hotel.RoomAvailable,
	}))
}

// do sends a request through the router. token may be empty.
func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoErrorf(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func booking(room, checkIn, checkOut string) BookingRequest {
	return BookingRequest{
		RoomID:       room,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Guest:        GuestRequest{Name: "Ada Lovelace", Email: "ada@example.com"},
		Adults:       1,
		PaymentToken: "tok_visa",
	}
}

// book creates a paid booking and fails the test unless it succeeds.
func (a *testAPI) book(room, checkIn, checkOut string) hotel.Reservation {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/bookings", booking(room, checkIn, checkOut), "")
	require.Equalf(a.t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decode[hotel.Reservation](a.t, rec)
}
