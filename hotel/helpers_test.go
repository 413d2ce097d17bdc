package hotel_test

import (
	"context"
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

// Jan 1 2025, noon UTC. Every test stay lies after this instant.
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

type fixture struct {
	svc    *hotel.BookingService
	store  *store.Memory
	pay    *payment.Sandbox
	events *notify.Recorder
	clock  *testClock
	locker *lock.Local
}

func newTestFixture(t *testing.T, opts ...hotel.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  store.NewMemory(),
		pay:    payment.NewSandbox(),
		events: &notify.Recorder{},
		clock:  &testClock{t: testNow},
		locker: lock.NewLocal(),
	}
	base := []hotel.Option{
		hotel.WithPayments(f.pay),
		hotel.WithNotifier(f.events),
		hotel.WithClock(f.clock.Now),
	}
	f.svc = hotel.NewBookingService(f.store, f.locker, append(base, opts...)...)
	return f
}

func usd(s string) generic.Money { return generic.NewMoney(s, generic.USD) }

func jan(day int) time.Time { return generic.Date(2025, time.January, day) }

func testRoom(id hotel.RoomID, price string, capacity int) hotel.Room {
	return hotel.Room{
		ID:        id,
		Number:    string(id),
		Type:      hotel.RoomStandard,
		Capacity:  capacity,
		BasePrice: usd(price),
		Active:    true,
		Status:    hotel.RoomAvailable,
	}
}

func (f *fixture) seedRoom(t *testing.T, room hotel.Room) hotel.Room {
	t.Helper()
	require.NoError(t, room.Validate())
	require.NoError(t, f.store.SaveRoom(context.Background(), room))
	return room
}

func bookingReq(roomID hotel.RoomID, checkIn, checkOut time.Time) hotel.BookingRequest {
	return hotel.BookingRequest{
		Guest:        hotel.Guest{Email: "Ada@Example.com", Name: "Ada Lovelace"},
		RoomID:       roomID,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Occupancy:    hotel.Occupancy{Adults: 1},
		PaymentToken: "tok_visa",
	}
}

// assertDisjoint checks the central invariant for every room in the store.
func assertDisjoint(t *testing.T, s hotel.Store) {
	t.Helper()
	all, _, err := s.ListReservations(context.Background(), hotel.ReservationFilter{Statuses: hotel.BlockingStatuses})
	require.NoError(t, err)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].RoomID != all[j].RoomID {
				continue
			}
			require.Falsef(t, all[i].Stay().Overlaps(all[j].Stay()),
				"blocking reservations overlap: %s %s and %s %s",
				all[i].BookingNumber, all[i].Stay(), all[j].BookingNumber, all[j].Stay())
		}
	}
}
