/*
availability.go - Conflict detection for room calendars

PURPOSE:
  Answers "can this room take [checkIn, checkOut)?" and "which rooms can
  take it?". Two stays [a,b) and [c,d) conflict iff a < d && c < b, so a
  checkout on day X never conflicts with a check-in on day X.

WHAT BLOCKS:
  Only confirmed and checked_in reservations occupy the calendar.
  Pending, cancelled, checked_out and no_show never block.
  A room that is inactive or not in the available status is never
  bookable, even with an empty calendar.

BULK SEARCH:
  FindAvailable is an anti-join: sellable rooms with enough capacity,
  minus rooms with any conflicting blocking reservation. SQL stores run
  it as a single NOT EXISTS query.
*/
package hotel

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/booking-engine/generic"
)

type Checker struct {
	store Store
}

func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// RoomAvailability explains an availability answer.
type RoomAvailability struct {
	RoomID    RoomID             `json:"room_id"`
	Available bool               `json:"available"`
	Reason    string             `json:"reason,omitempty"`
	Conflicts []generic.Interval `json:"conflicts,omitempty"`
}

// IsAvailable reports whether roomID can take [checkIn, checkOut).
// Unknown rooms return a NotFound error.
func (c *Checker) IsAvailable(ctx context.Context, roomID RoomID, checkIn, checkOut time.Time) (bool, error) {
	a, err := c.Explain(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return a.Available, nil
}

// Explain is IsAvailable with the reason and conflicting stays.
func (c *Checker) Explain(ctx context.Context, roomID RoomID, checkIn, checkOut time.Time) (RoomAvailability, error) {
	stay, err := generic.NewInterval(checkIn, checkOut)
	if err != nil {
		return RoomAvailability{}, &ValidationError{Field: "check_out", Reason: err.Error()}
	}
	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		return RoomAvailability{}, err
	}
	return explain(ctx, c.store, room, stay)
}

// FindAvailable returns IDs of rooms that can take the stay with at least
// minCapacity guests, ordered by room ID.
func (c *Checker) FindAvailable(ctx context.Context, checkIn, checkOut time.Time, minCapacity int) ([]RoomID, error) {
	rooms, err := c.FindAvailableRooms(ctx, checkIn, checkOut, minCapacity)
	if err != nil {
		return nil, err
	}
	ids := make([]RoomID, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	return ids, nil
}

// FindAvailableRooms is FindAvailable returning the full room records.
func (c *Checker) FindAvailableRooms(ctx context.Context, checkIn, checkOut time.Time, minCapacity int) ([]Room, error) {
	stay, err := generic.NewInterval(checkIn, checkOut)
	if err != nil {
		return nil, &ValidationError{Field: "check_out", Reason: err.Error()}
	}
	if minCapacity < 1 {
		minCapacity = 1
	}
	rooms, err := c.store.ListAvailableRooms(ctx, stay, minCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to search rooms: %w", err)
	}
	return rooms, nil
}

func explain(ctx context.Context, store Store, room Room, stay generic.Interval) (RoomAvailability, error) {
	a := RoomAvailability{RoomID: room.ID}
	switch {
	case !room.Active:
		a.Reason = "room is inactive"
		return a, nil
	case room.Status != RoomAvailable:
		a.Reason = "room is " + string(room.Status)
		return a, nil
	}

	blocking, err := store.ListBlocking(ctx, room.ID, stay)
	if err != nil {
		return RoomAvailability{}, fmt.Errorf("failed to load reservations: %w", err)
	}
	for _, r := range blocking {
		// Stores filter already; re-check so a loose query can't admit a conflict.
		if r.Status.Blocking() && r.Stay().Overlaps(stay) {
			a.Conflicts = append(a.Conflicts, r.Stay())
		}
	}
	if len(a.Conflicts) > 0 {
		a.Reason = "overlaps an existing reservation"
		return a, nil
	}
	a.Available = true
	return a, nil
}

// ensureAvailable returns an UnavailableError unless room can take stay.
func ensureAvailable(ctx context.Context, store Store, room Room, stay generic.Interval) error {
	a, err := explain(ctx, store, room, stay)
	if err != nil {
		return err
	}
	if !a.Available {
		return &UnavailableError{RoomID: room.ID, Stay: stay, Reason: a.Reason}
	}
	return nil
}
