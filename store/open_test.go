package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/config"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, config.Config{StoreDriver: config.DriverMemory})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.SaveRoom(ctx, hotel.Room{
		ID: "101", Number: "101", Type: hotel.RoomStandard, Capacity: 2,
		BasePrice: generic.NewMoney("100", generic.USD), Active: true, Status: hotel.RoomAvailable,
	}))

	// WHEN: reset
	require.NoError(t, h.Reset(ctx))

	// THEN: the catalog is empty
	rooms, err := h.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestOpen_SQLiteInMemory(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, config.Config{StoreDriver: config.DriverSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer h.Close()

	rooms, err := h.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Config{StoreDriver: "mongo"})
	assert.Error(t, err)
}
