package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
	"github.com/warp/booking-engine/hotel/store"
	"github.com/warp/booking-engine/store/storetest"
)

func TestMemoryConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) hotel.TxStore { return store.NewMemory() })
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	room := hotel.Room{
		ID: "101", Number: "101", Type: hotel.RoomStandard, Capacity: 2,
		BasePrice: generic.NewMoney("100", generic.USD), Active: true, Status: hotel.RoomAvailable,
		Seasons: []hotel.SeasonalRate{{Name: "summer", From: generic.Date(2025, 6, 1), To: generic.Date(2025, 8, 31),
			Multiplier: generic.MustRate("1.5")}},
	}
	require.NoError(t, s.SaveRoom(ctx, room))

	got, err := s.GetRoom(ctx, "101")
	require.NoError(t, err)
	got.Seasons[0].Name = "mutated"

	again, err := s.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "summer", again.Seasons[0].Name)
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.SaveRoom(ctx, hotel.Room{
		ID: "101", Number: "101", Type: hotel.RoomStandard, Capacity: 2,
		BasePrice: generic.NewMoney("100", generic.USD), Active: true, Status: hotel.RoomAvailable,
	}))

	s.Reset()

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
	_, err = s.GetRoom(ctx, "101")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}
