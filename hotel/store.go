/*
store.go - Persistence contract for rooms, reservations and guests

PURPOSE:
  Defines the interface between the booking engine and the database.
  Implementations exist for memory (tests/dev), SQLite (single node) and
  PostgreSQL (multi-instance).

STORAGE-LEVEL RE-VALIDATION:
  Every implementation must reject a write that would leave two blocking
  reservations (confirmed, checked_in) overlapping on the same room, and
  report it as generic.ErrOverlap:
  - memory:   scan inside the write lock
  - sqlite:   BEFORE INSERT/UPDATE triggers raising 'reservation_overlap'
  - postgres: EXCLUDE USING gist on (room_id, tstzrange(check_in, check_out))
  This is the safety net behind the room lock, not a substitute for it.

UNIQUENESS:
  Booking numbers and confirmation codes are unique. A duplicate insert
  returns generic.ErrDuplicateCode and the caller regenerates.

OPTIMISTIC LOCKING:
  UpdateReservation takes the version the caller read. The caller bumps
  Version itself before writing; the store compares the stored version
  with expectedVersion and returns generic.ErrConcurrentModification on
  mismatch.

SEE ALSO:
  - hotel/store/memory.go
  - store/sqlite/sqlite.go
  - store/postgres/postgres.go
*/
package hotel

import (
	"context"
	"time"

	"github.com/warp/booking-engine/generic"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	RoomStore
	ReservationStore
	GuestStore
}

// RoomStore is the catalog. The engine reads it; only operational status
// is written by the lifecycle manager.
type RoomStore interface {
	// SaveRoom inserts or replaces a room. Callers validate first.
	SaveRoom(ctx context.Context, room Room) error

	// GetRoom returns generic.ErrNotFound (wrapped) if absent.
	GetRoom(ctx context.Context, id RoomID) (Room, error)

	// ListRooms returns all rooms ordered by ID.
	ListRooms(ctx context.Context) ([]Room, error)

	UpdateRoomStatus(ctx context.Context, id RoomID, status RoomStatus, needsCleaning bool, at time.Time) error
}

type ReservationStore interface {
	// InsertReservation persists a new reservation.
	// Returns ErrDuplicateCode or ErrOverlap.
	InsertReservation(ctx context.Context, r Reservation) error

	// UpdateReservation replaces a reservation if the stored version
	// equals expectedVersion. Returns ErrConcurrentModification or ErrOverlap.
	UpdateReservation(ctx context.Context, r Reservation, expectedVersion int) error

	GetReservation(ctx context.Context, id ReservationID) (Reservation, error)

	GetReservationByNumber(ctx context.Context, bookingNumber string) (Reservation, error)

	// CodesExist reports whether either code is already taken.
	CodesExist(ctx context.Context, bookingNumber, confirmationCode string) (bool, error)

	// ListBlocking returns blocking reservations on roomID overlapping stay.
	ListBlocking(ctx context.Context, roomID RoomID, stay generic.Interval) ([]Reservation, error)

	// ListAvailableRooms returns sellable rooms with capacity >= minCapacity
	// and no blocking reservation overlapping stay, ordered by ID.
	ListAvailableRooms(ctx context.Context, stay generic.Interval, minCapacity int) ([]Room, error)

	// ListReservations returns one page plus the total match count.
	ListReservations(ctx context.Context, f ReservationFilter) ([]Reservation, int, error)
}

type GuestStore interface {
	// GetGuest returns ErrNotFound if the guest has no profile yet.
	GetGuest(ctx context.Context, email string) (GuestProfile, error)

	SaveGuest(ctx context.Context, g GuestProfile) error
}

// TxStore runs fn atomically. If fn returns an error nothing it wrote is kept.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// LISTING
// =============================================================================

type SortOrder string

const (
	SortCheckInAsc    SortOrder = "check_in"
	SortCheckInDesc   SortOrder = "-check_in"
	SortCreatedAtAsc  SortOrder = "created_at"
	SortCreatedAtDesc SortOrder = "-created_at"
)

func (s SortOrder) IsValid() bool {
	switch s {
	case "", SortCheckInAsc, SortCheckInDesc, SortCreatedAtAsc, SortCreatedAtDesc:
		return true
	}
	return false
}

// ReservationFilter selects reservations. Zero fields do not filter.
// CheckInFrom and CheckInTo are both inclusive.
type ReservationFilter struct {
	Statuses    []Status
	RoomID      RoomID
	RoomType    RoomType
	GuestEmail  string
	CheckInFrom time.Time
	CheckInTo   time.Time
	Sort        SortOrder
	Limit       int // 0 = no limit
	Offset      int
}

// Matches applies the filter to a single reservation. Used by the memory
// store; SQL stores translate the filter into a WHERE clause.
func (f ReservationFilter) Matches(r Reservation) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
		return false
	}
	if f.RoomID != "" && r.RoomID != f.RoomID {
		return false
	}
	if f.RoomType != "" && r.RoomType != f.RoomType {
		return false
	}
	if f.GuestEmail != "" && r.Guest.NormalizedEmail() != (Guest{Email: f.GuestEmail}).NormalizedEmail() {
		return false
	}
	if !f.CheckInFrom.IsZero() && r.CheckIn.Before(f.CheckInFrom) {
		return false
	}
	if !f.CheckInTo.IsZero() && r.CheckIn.After(f.CheckInTo) {
		return false
	}
	return true
}

// Less orders two reservations by the filter's sort. Ties break on ID so
// pagination is stable.
func (f ReservationFilter) Less(a, b Reservation) bool {
	var ka, kb time.Time
	desc := false
	switch f.Sort {
	case SortCheckInDesc:
		ka, kb, desc = a.CheckIn, b.CheckIn, true
	case SortCreatedAtAsc:
		ka, kb = a.CreatedAt, b.CreatedAt
	case SortCreatedAtDesc:
		ka, kb, desc = a.CreatedAt, b.CreatedAt, true
	default:
		ka, kb = a.CheckIn, b.CheckIn
	}
	if !ka.Equal(kb) {
		if desc {
			return ka.After(kb)
		}
		return ka.Before(kb)
	}
	return a.ID < b.ID
}

func containsStatus(list []Status, s Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
