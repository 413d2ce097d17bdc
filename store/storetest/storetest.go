/*
Package storetest is a conformance suite for hotel.TxStore implementations.

PURPOSE:
  Memory, SQLite and PostgreSQL stores must behave identically: same
  error kinds, same ordering, same overlap enforcement. Each store's test
  file calls Run with a constructor for an empty store.

USAGE:
  func TestConformance(t *testing.T) {
      storetest.Run(t, func(t *testing.T) hotel.TxStore { return store.NewMemory() })
  }
*/
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
	"github.com/warp/booking-engine/lock"
	"github.com/warp/booking-engine/payment"
)

// Factory returns an empty store. It may register cleanup on t.
type Factory func(t *testing.T) hotel.TxStore

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s hotel.TxStore)
	}{
		{"RoomsRoundTrip", testRoomsRoundTrip},
		{"RoomStatus", testRoomStatus},
		{"ReservationRoundTrip", testReservationRoundTrip},
		{"DuplicateCodes", testDuplicateCodes},
		{"OverlapRejected", testOverlapRejected},
		{"OptimisticVersion", testOptimisticVersion},
		{"ListBlockingAndAvailable", testListBlockingAndAvailable},
		{"ListReservations", testListReservations},
		{"Guests", testGuests},
		{"TxRollback", testTxRollback},
		{"ConcurrentBookings", testConcurrentBookings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// =============================================================================
// FIXTURES
// =============================================================================

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func day(d int) time.Time { return generic.Date(2025, time.January, d) }

func usd(s string) generic.Money { return generic.NewMoney(s, generic.USD) }

func room(id string, price string, capacity int) hotel.Room {
	return hotel.Room{
		ID:        hotel.RoomID(id),
		Number:    id,
		Type:      hotel.RoomStandard,
		Capacity:  capacity,
		BasePrice: usd(price),
		Active:    true,
		Status:    hotel.RoomAvailable,
		UpdatedAt: base,
	}
}

func reservation(id, roomID string, in, out time.Time, st hotel.Status) hotel.Reservation {
	return hotel.Reservation{
		ID:               hotel.ReservationID(id),
		BookingNumber:    "BK-" + id,
		ConfirmationCode: "CODE-" + id,
		RoomID:           hotel.RoomID(roomID),
		RoomType:         hotel.RoomStandard,
		Guest:            hotel.Guest{Email: "guest@example.com", Name: "Guest " + id},
		CheckIn:          in,
		CheckOut:         out,
		Occupancy:        hotel.Occupancy{Adults: 1},
		Pricing: hotel.Pricing{
			NightlyRate: usd("100"),
			Nights:      generic.Interval{Start: in, End: out}.Nights(),
			Subtotal:    usd("300"),
			TaxRate:     generic.Percent(12),
			Tax:         usd("36"),
			Fees:        usd("0"),
			Discounts:   usd("0"),
			Total:       usd("336"),
		},
		Status:        st,
		PaymentStatus: hotel.PaymentPaid,
		PaymentRef:    "pay_" + id,
		CreatedAt:     base,
		UpdatedAt:     base,
		Version:       1,
	}
}

func seedRooms(t *testing.T, s hotel.Store, rooms ...hotel.Room) {
	t.Helper()
	for _, r := range rooms {
		require.NoError(t, s.SaveRoom(context.Background(), r))
	}
}

// =============================================================================
// ROOMS
// =============================================================================

func testRoomsRoundTrip(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	suite := room("301", "250.50", 4)
	suite.Type = hotel.RoomSuite
	suite.Seasons = []hotel.SeasonalRate{{
		Name: "summer", From: generic.Date(2025, 6, 1), To: generic.Date(2025, 8, 31),
		Multiplier: generic.MustRate("1.5"),
	}}
	seedRooms(t, s, suite, room("101", "100", 2))

	got, err := s.GetRoom(ctx, "301")
	require.NoError(t, err)
	assert.Equal(t, hotel.RoomSuite, got.Type)
	assert.Equal(t, 4, got.Capacity)
	assert.True(t, got.BasePrice.Equal(usd("250.50")))
	assert.Equal(t, generic.USD, got.BasePrice.Currency)
	require.Len(t, got.Seasons, 1)
	assert.Equal(t, "summer", got.Seasons[0].Name)
	assert.True(t, got.Seasons[0].From.Equal(generic.Date(2025, 6, 1)))
	assert.True(t, got.Seasons[0].Multiplier.Value.Equal(generic.MustRate("1.5").Value))
	assert.True(t, got.Active)

	// upsert
	suite.Capacity = 5
	suite.Active = false
	require.NoError(t, s.SaveRoom(ctx, suite))
	got, err = s.GetRoom(ctx, "301")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Capacity)
	assert.False(t, got.Active)

	all, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, hotel.RoomID("101"), all[0].ID)
	assert.Equal(t, hotel.RoomID("301"), all[1].ID)

	_, err = s.GetRoom(ctx, "999")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func testRoomStatus(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	seedRooms(t, s, room("101", "100", 2))

	require.NoError(t, s.UpdateRoomStatus(ctx, "101", hotel.RoomOccupied, true, base.Add(time.Hour)))
	got, err := s.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, hotel.RoomOccupied, got.Status)
	assert.True(t, got.NeedsCleaning)
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))

	err = s.UpdateRoomStatus(ctx, "999", hotel.RoomOccupied, false, base)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func testReservationRoundTrip(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	seedRooms(t, s, room("101", "100", 2))

	r := reservation("r1", "101", day(10), day(13), hotel.StatusCheckedIn)
	r.Guest.Phone = "+1 555 0100"
	r.Occupancy = hotel.Occupancy{Adults: 2, Children: 1}
	r.SpecialRequests = "high floor"
	r.Pricing.Season = "winter"
	checkedIn := day(10).Add(15 * time.Hour)
	r.CheckedInAt = &checkedIn
	require.NoError(t, s.InsertReservation(ctx, r))

	byID, err := s.GetReservation(ctx, "r1")
	require.NoError(t, err)
	byNumber, err := s.GetReservationByNumber(ctx, "BK-r1")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byNumber.ID)

	assert.Equal(t, r.BookingNumber, byID.BookingNumber)
	assert.Equal(t, r.ConfirmationCode, byID.ConfirmationCode)
	assert.Equal(t, r.Guest, byID.Guest)
	assert.Equal(t, r.Occupancy, byID.Occupancy)
	assert.Equal(t, "high floor", byID.SpecialRequests)
	assert.True(t, byID.CheckIn.Equal(day(10)))
	assert.True(t, byID.CheckOut.Equal(day(13)))
	assert.Equal(t, 3, byID.Pricing.Nights)
	assert.True(t, byID.Pricing.Total.Equal(usd("336")))
	assert.True(t, byID.Pricing.TaxRate.Value.Equal(generic.Percent(12).Value))
	assert.Equal(t, "winter", byID.Pricing.Season)
	assert.Equal(t, hotel.StatusCheckedIn, byID.Status)
	assert.Equal(t, hotel.PaymentPaid, byID.PaymentStatus)
	require.NotNil(t, byID.CheckedInAt)
	assert.True(t, byID.CheckedInAt.Equal(checkedIn))
	assert.Nil(t, byID.CheckedOutAt)
	assert.Nil(t, byID.Cancellation)
	assert.Equal(t, 1, byID.Version)

	// cancellation survives a round trip
	c := reservation("r2", "101", day(20), day(22), hotel.StatusCancelled)
	c.Cancellation = &hotel.Cancellation{Reason: "flight", At: base, HoursNotice: 444.5, Fee: usd("0"), Refund: usd("336")}
	require.NoError(t, s.InsertReservation(ctx, c))
	got, err := s.GetReservation(ctx, "r2")
	require.NoError(t, err)
	require.NotNil(t, got.Cancellation)
	assert.Equal(t, "flight", got.Cancellation.Reason)
	assert.InDelta(t, 444.5, got.Cancellation.HoursNotice, 1e-9)
	assert.True(t, got.Cancellation.Refund.Equal(usd("336")))

	_, err = s.GetReservation(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrNotFound)
	_, err = s.GetReservationByNumber(ctx, "BK-missing")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func testDuplicateCodes(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	seedRooms(t, s, room("101", "100", 2))
	require.NoError(t, s.InsertReservation(ctx, reservation("a", "101", day(10), day(11), hotel.StatusPending)))

	taken, err := s.CodesExist(ctx, "BK-a", "fresh")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.CodesExist(ctx, "BK-fresh", "CODE-a")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.CodesExist(ctx, "BK-fresh", "fresh")
	require.NoError(t, err)
	assert.False(t, taken)

	sameNumber := reservation("b", "101", day(12), day(13), hotel.StatusPending)
	sameNumber.BookingNumber = "BK-a"
	assert.ErrorIs(t, s.InsertReservation(ctx, sameNumber), generic.ErrDuplicateCode)

	sameCode := reservation("c", "101", day(12), day(13), hotel.StatusPending)
	sameCode.ConfirmationCode = "CODE-a"
	assert.ErrorIs(t, s.InsertReservation(ctx, sameCode), generic.ErrDuplicateCode)
}

func testOverlapRejected(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	seedRooms(t, s, room("101", "100", 2), room("102", "100", 2))
	require.NoError(t, s.InsertReservation(ctx, reservation("a", "101", day(10), day(13), hotel.StatusConfirmed)))

	// GIVEN/WHEN: a blocking insert sharing the night of the 12th
	err := s.InsertReservation(ctx, reservation("b", "101", day(12), day(15), hotel.StatusCheckedIn))
	assert.ErrorIs(t, err, generic.ErrOverlap)

	// touching the checkout day, other rooms and non-blocking rows are fine
	require.NoError(t, s.InsertReservation(ctx, reservation("c", "101", day(13), day(15), hotel.StatusConfirmed)))
	require.NoError(t, s.InsertReservation(ctx, reservation("d", "102", day(10), day(13), hotel.StatusConfirmed)))
	pending := reservation("e", "101", day(11), day(12), hotel.StatusPending)
	require.NoError(t, s.InsertReservation(ctx, pending))

	// promoting the pending row to blocking is rejected
	promoted := pending
	promoted.Status = hotel.StatusConfirmed
	promoted.Version = 2
	assert.ErrorIs(t, s.UpdateReservation(ctx, promoted, 1), generic.ErrOverlap)

	// cancelling it is not
	cancelled := pending
	cancelled.Status = hotel.StatusCancelled
	cancelled.Version = 2
	require.NoError(t, s.UpdateReservation(ctx, cancelled, 1))

	// a blocking row may be rewritten without clashing with itself
	a, err := s.GetReservation(ctx, "a")
	require.NoError(t, err)
	a.Status = hotel.StatusCheckedIn
	a.Version = 2
	require.NoError(t, s.UpdateReservation(ctx, a, 1))
}

func testOptimisticVersion(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	seedRooms(t, s, room("101", "100", 2))
	r := reservation("a", "101", day(10), day(13), hotel.StatusPending)
	require.NoError(t, s.InsertReservation(ctx, r))

	r.Status = hotel.StatusConfirmed
	r.Version = 2
	r.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, s.UpdateReservation(ctx, r, 1))

	// a second writer that read version 1 loses
	stale := r
	stale.Status = hotel.StatusCancelled
	err := s.UpdateReservation(ctx, stale, 1)
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)

	got, err := s.GetReservation(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, hotel.StatusConfirmed, got.Status)
	assert.Equal(t, 2, got.Version)
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Minute)))

	missing := reservation("zz", "101", day(20), day(21), hotel.StatusPending)
	assert.ErrorIs(t, s.UpdateReservation(ctx, missing, 1), generic.ErrNotFound)
}

func testListBlockingAndAvailable(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	small := room("101", "100", 2)
	booked := room("102", "120", 4)
	free := room("103", "150", 4)
	closed := room("104", "90", 4)
	closed.Status = hotel.RoomMaintenance
	inactive := room("105", "90", 4)
	inactive.Active = false
	seedRooms(t, s, small, booked, free, closed, inactive)

	require.NoError(t, s.InsertReservation(ctx, reservation("a", "102", day(9), day(11), hotel.StatusConfirmed)))
	require.NoError(t, s.InsertReservation(ctx, reservation("b", "103", day(10), day(13), hotel.StatusPending)))
	require.NoError(t, s.InsertReservation(ctx, reservation("c", "103", day(13), day(14), hotel.StatusConfirmed)))

	stay := generic.Interval{Start: day(10), End: day(13)}

	blocking, err := s.ListBlocking(ctx, "102", stay)
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, hotel.ReservationID("a"), blocking[0].ID)

	blocking, err = s.ListBlocking(ctx, "103", stay)
	require.NoError(t, err)
	assert.Empty(t, blocking, "pending and touching reservations do not block")

	rooms, err := s.ListAvailableRooms(ctx, stay, 3)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, hotel.RoomID("103"), rooms[0].ID)

	rooms, err = s.ListAvailableRooms(ctx, stay, 1)
	require.NoError(t, err)
	ids := make([]hotel.RoomID, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	assert.Equal(t, []hotel.RoomID{"101", "103"}, ids)
}

func testListReservations(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	suite := room("301", "300", 4)
	suite.Type = hotel.RoomSuite
	seedRooms(t, s, room("101", "100", 2), suite)

	for i, d := range []int{18, 10, 14, 12, 16} {
		r := reservation(string(rune('a'+i)), "101", day(d), day(d+1), hotel.StatusConfirmed)
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.InsertReservation(ctx, r))
	}
	other := reservation("s", "301", day(15), day(16), hotel.StatusPending)
	other.Guest = hotel.Guest{Email: "grace@example.com", Name: "Grace"}
	require.NoError(t, s.InsertReservation(ctx, other))

	t.Run("all ascending by check-in", func(t *testing.T) {
		items, total, err := s.ListReservations(ctx, hotel.ReservationFilter{})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		require.Len(t, items, 6)
		for i := 1; i < len(items); i++ {
			assert.False(t, items[i].CheckIn.Before(items[i-1].CheckIn))
		}
	})

	t.Run("status and page", func(t *testing.T) {
		items, total, err := s.ListReservations(ctx, hotel.ReservationFilter{
			Statuses: []hotel.Status{hotel.StatusConfirmed}, Sort: hotel.SortCheckInAsc, Limit: 2, Offset: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, items, 2)
		assert.True(t, items[0].CheckIn.Equal(day(14)))
		assert.True(t, items[1].CheckIn.Equal(day(16)))
	})

	t.Run("offset without limit", func(t *testing.T) {
		items, total, err := s.ListReservations(ctx, hotel.ReservationFilter{Offset: 4})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		assert.Len(t, items, 2)
	})

	t.Run("descending and created order", func(t *testing.T) {
		items, _, err := s.ListReservations(ctx, hotel.ReservationFilter{Sort: hotel.SortCheckInDesc, Limit: 1})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.True(t, items[0].CheckIn.Equal(day(18)))

		items, _, err = s.ListReservations(ctx, hotel.ReservationFilter{
			RoomID: "101", Sort: hotel.SortCreatedAtDesc, Limit: 1,
		})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, hotel.ReservationID("e"), items[0].ID)
	})

	t.Run("room type, guest and inclusive dates", func(t *testing.T) {
		_, total, err := s.ListReservations(ctx, hotel.ReservationFilter{RoomType: hotel.RoomSuite})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		items, total, err := s.ListReservations(ctx, hotel.ReservationFilter{GuestEmail: "Grace@Example.com"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, hotel.ReservationID("s"), items[0].ID)

		_, total, err = s.ListReservations(ctx, hotel.ReservationFilter{
			RoomID: "101", CheckInFrom: day(12), CheckInTo: day(16),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})
}

// =============================================================================
// GUESTS
// =============================================================================

func testGuests(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()

	_, err := s.GetGuest(ctx, "ada@example.com")
	assert.ErrorIs(t, err, generic.ErrNotFound)

	p := hotel.GuestProfile{Guest: hotel.Guest{Email: "ada@example.com", Name: "Ada"}}
	p.Stats.Stays = 2
	p.Stats.LifetimeSpend = usd("672")
	p.Stats.Points = 6720
	require.NoError(t, s.SaveGuest(ctx, p))

	got, err := s.GetGuest(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, 2, got.Stats.Stays)
	assert.True(t, got.Stats.LifetimeSpend.Equal(usd("672")))
	assert.Equal(t, int64(6720), got.Stats.Points)

	p.Stats.Stays = 3
	p.Stats.Tier = "silver"
	require.NoError(t, s.SaveGuest(ctx, p))
	got, err = s.GetGuest(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stats.Stays)
	assert.EqualValues(t, "silver", got.Stats.Tier)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func testTxRollback(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	seedRooms(t, s, room("101", "100", 2))
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx hotel.Store) error {
		require.NoError(t, tx.InsertReservation(ctx, reservation("a", "101", day(10), day(13), hotel.StatusConfirmed)))

		// reads inside the transaction see its writes
		got, err := tx.GetReservation(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, hotel.StatusConfirmed, got.Status)
		blocking, err := tx.ListBlocking(ctx, "101", generic.Interval{Start: day(11), End: day(12)})
		require.NoError(t, err)
		assert.Len(t, blocking, 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetReservation(ctx, "a")
	assert.ErrorIs(t, err, generic.ErrNotFound, "rolled back write must not be visible")

	err = s.WithTx(ctx, func(tx hotel.Store) error {
		return tx.InsertReservation(ctx, reservation("b", "101", day(10), day(13), hotel.StatusConfirmed))
	})
	require.NoError(t, err)
	_, err = s.GetReservation(ctx, "b")
	assert.NoError(t, err)
}

// testConcurrentBookings runs the booking service on top of the store:
// N racing paid bookings for one room, exactly one wins.
func testConcurrentBookings(t *testing.T, s hotel.TxStore) {
	ctx := context.Background()
	seedRooms(t, s, room("101", "100", 1))
	pay := payment.NewSandbox()
	svc := hotel.NewBookingService(s, lock.NewLocal(),
		hotel.WithPayments(pay),
		hotel.WithClock(func() time.Time { return base }))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(ctx, hotel.BookingRequest{
				Guest:        hotel.Guest{Email: "racer@example.com", Name: "Racer"},
				RoomID:       "101",
				CheckIn:      day(10),
				CheckOut:     day(13),
				Occupancy:    hotel.Occupancy{Adults: 1},
				PaymentToken: "tok_visa",
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, generic.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, pay.Captures())

	blocking, err := s.ListBlocking(ctx, "101", generic.Interval{Start: day(10), End: day(13)})
	require.NoError(t, err)
	assert.Len(t, blocking, 1)

	profile, err := s.GetGuest(ctx, "racer@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.Stats.Stays)
}
