package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/hotel"
)

func TestHousekeeper_ReconcileRooms(t *testing.T) {
	ctx := context.Background()
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	a.seedRoom("102", "100", 2)
	a.seedRoom("103", "100", 2)

	// GIVEN: 101 left occupied with nobody in house
	require.NoError(t, a.store.UpdateRoomStatus(ctx, "101", hotel.RoomOccupied, false, testNow))
	// AND: a guest checked into 102 but the room status write was lost
	res := a.book("102", "2025-01-01", "2025-01-03")
	_, err := a.h.Service.CheckIn(ctx, res.ID)
	require.NoError(t, err)
	require.NoError(t, a.store.UpdateRoomStatus(ctx, "102", hotel.RoomAvailable, false, testNow))
	// AND: 103 is under maintenance
	require.NoError(t, a.store.UpdateRoomStatus(ctx, "103", hotel.RoomMaintenance, false, testNow))

	// WHEN
	released, occupied, err := a.h.Housekeeper.ReconcileRooms(ctx)
	require.NoError(t, err)

	// THEN
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, occupied)

	r101, _ := a.store.GetRoom(ctx, "101")
	assert.Equal(t, hotel.RoomAvailable, r101.Status)
	assert.True(t, r101.NeedsCleaning)
	r102, _ := a.store.GetRoom(ctx, "102")
	assert.Equal(t, hotel.RoomOccupied, r102.Status)
	r103, _ := a.store.GetRoom(ctx, "103")
	assert.Equal(t, hotel.RoomMaintenance, r103.Status)

	// A second pass has nothing to do
	released, occupied, err = a.h.Housekeeper.ReconcileRooms(ctx)
	require.NoError(t, err)
	assert.Zero(t, released+occupied)
}

func TestHousekeeper_RunSweepsNoShows(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	a.seedRoom("102", "100", 2)
	overdue := a.book("101", "2025-01-02", "2025-01-04")
	a.book("102", "2025-01-10", "2025-01-12")

	// GIVEN: a day and a bit after the first check-in
	a.clock.Set(time.Date(2025, 1, 3, 6, 0, 0, 0, time.UTC))

	// WHEN: staff trigger housekeeping
	rec := a.do(http.MethodPost, "/api/admin/housekeeping/run", nil, a.staff)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: only the overdue booking is a no-show
	result := decode[HousekeepingResultDTO](t, rec)
	assert.Equal(t, 1, result.NoShows)

	got, err := a.store.GetReservation(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, hotel.StatusNoShow, got.Status)
}

func TestHousekeepingScheduler_StartStop(t *testing.T) {
	a := newTestAPI(t)
	a.seedRoom("101", "100", 2)
	require.NoError(t, a.store.UpdateRoomStatus(context.Background(), "101", hotel.RoomOccupied, false, testNow))

	s := NewHousekeepingScheduler(a.h.Housekeeper)
	s.CheckInterval = time.Hour

	// GIVEN: Start runs a pass immediately
	s.Start()
	require.Eventually(t, func() bool {
		room, err := a.store.GetRoom(context.Background(), "101")
		return err == nil && room.Status == hotel.RoomAvailable
	}, time.Second, 5*time.Millisecond)

	// THEN: Stop returns and is idempotent
	s.Stop()
	s.Stop()
}

func TestHousekeepingScheduler_Disabled(t *testing.T) {
	a := newTestAPI(t)
	s := NewHousekeepingScheduler(a.h.Housekeeper)
	s.Enabled = false

	s.Start()
	assert.Nil(t, s.ticker)
	s.Stop()
}
