// Package store provides an in-memory hotel.TxStore.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	rooms        map[hotel.RoomID]hotel.Room
	reservations map[hotel.ReservationID]hotel.Reservation
	byNumber     map[string]hotel.ReservationID
	codes        map[string]bool
	guests       map[string]hotel.GuestProfile
}

func NewMemory() *Memory {
	return &Memory{state: newMemoryState()}
}

func newMemoryState() memoryState {
	return memoryState{
		rooms:        make(map[hotel.RoomID]hotel.Room),
		reservations: make(map[hotel.ReservationID]hotel.Reservation),
		byNumber:     make(map[string]hotel.ReservationID),
		codes:        make(map[string]bool),
		guests:       make(map[string]hotel.GuestProfile),
	}
}

// Reset drops every room, reservation and guest.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newMemoryState()
}

var _ hotel.TxStore = (*Memory)(nil)

// =============================================================================
// PUBLIC METHODS - Take the lock, delegate to state
// =============================================================================

func (m *Memory) SaveRoom(_ context.Context, room hotel.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.saveRoom(room)
}

func (m *Memory) GetRoom(_ context.Context, id hotel.RoomID) (hotel.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getRoom(id)
}

func (m *Memory) ListRooms(_ context.Context) ([]hotel.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listRooms(), nil
}

func (m *Memory) UpdateRoomStatus(_ context.Context, id hotel.RoomID, status hotel.RoomStatus, needsCleaning bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateRoomStatus(id, status, needsCleaning, at)
}

func (m *Memory) InsertReservation(_ context.Context, r hotel.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.insertReservation(r)
}

func (m *Memory) UpdateReservation(_ context.Context, r hotel.Reservation, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateReservation(r, expectedVersion)
}

func (m *Memory) GetReservation(_ context.Context, id hotel.ReservationID) (hotel.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getReservation(id)
}

func (m *Memory) GetReservationByNumber(_ context.Context, number string) (hotel.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getReservationByNumber(number)
}

func (m *Memory) CodesExist(_ context.Context, number, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.codes[number] || m.state.codes[code], nil
}

func (m *Memory) ListBlocking(_ context.Context, roomID hotel.RoomID, stay generic.Interval) ([]hotel.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listBlocking(roomID, stay, ""), nil
}

func (m *Memory) ListAvailableRooms(_ context.Context, stay generic.Interval, minCapacity int) ([]hotel.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listAvailableRooms(stay, minCapacity), nil
}

func (m *Memory) ListReservations(_ context.Context, f hotel.ReservationFilter) ([]hotel.Reservation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items, total := m.state.listReservations(f)
	return items, total, nil
}

func (m *Memory) GetGuest(_ context.Context, email string) (hotel.GuestProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getGuest(email)
}

func (m *Memory) SaveGuest(_ context.Context, g hotel.GuestProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.guests[g.NormalizedEmail()] = g
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole of fn, so transactions serialize.
func (m *Memory) WithTx(ctx context.Context, fn func(hotel.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.snapshot()
	view := &txMemoryView{state: &m.state}

	if err := fn(view); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// txMemoryView operates on state without locking; the parent holds the lock.
type txMemoryView struct {
	state *memoryState
}

func (v *txMemoryView) SaveRoom(_ context.Context, room hotel.Room) error {
	return v.state.saveRoom(room)
}

func (v *txMemoryView) GetRoom(_ context.Context, id hotel.RoomID) (hotel.Room, error) {
	return v.state.getRoom(id)
}

func (v *txMemoryView) ListRooms(_ context.Context) ([]hotel.Room, error) {
	return v.state.listRooms(), nil
}

func (v *txMemoryView) UpdateRoomStatus(_ context.Context, id hotel.RoomID, status hotel.RoomStatus, needsCleaning bool, at time.Time) error {
	return v.state.updateRoomStatus(id, status, needsCleaning, at)
}

func (v *txMemoryView) InsertReservation(_ context.Context, r hotel.Reservation) error {
	return v.state.insertReservation(r)
}

func (v *txMemoryView) UpdateReservation(_ context.Context, r hotel.Reservation, expectedVersion int) error {
	return v.state.updateReservation(r, expectedVersion)
}

func (v *txMemoryView) GetReservation(_ context.Context, id hotel.ReservationID) (hotel.Reservation, error) {
	return v.state.getReservation(id)
}

func (v *txMemoryView) GetReservationByNumber(_ context.Context, number string) (hotel.Reservation, error) {
	return v.state.getReservationByNumber(number)
}

func (v *txMemoryView) CodesExist(_ context.Context, number, code string) (bool, error) {
	return v.state.codes[number] || v.state.codes[code], nil
}

func (v *txMemoryView) ListBlocking(_ context.Context, roomID hotel.RoomID, stay generic.Interval) ([]hotel.Reservation, error) {
	return v.state.listBlocking(roomID, stay, ""), nil
}

func (v *txMemoryView) ListAvailableRooms(_ context.Context, stay generic.Interval, minCapacity int) ([]hotel.Room, error) {
	return v.state.listAvailableRooms(stay, minCapacity), nil
}

func (v *txMemoryView) ListReservations(_ context.Context, f hotel.ReservationFilter) ([]hotel.Reservation, int, error) {
	items, total := v.state.listReservations(f)
	return items, total, nil
}

func (v *txMemoryView) GetGuest(_ context.Context, email string) (hotel.GuestProfile, error) {
	return v.state.getGuest(email)
}

func (v *txMemoryView) SaveGuest(_ context.Context, g hotel.GuestProfile) error {
	v.state.guests[g.NormalizedEmail()] = g
	return nil
}

// =============================================================================
// STATE - Unlocked operations shared by Memory and txMemoryView
// =============================================================================

func (s *memoryState) snapshot() memoryState {
	cp := memoryState{
		rooms:        make(map[hotel.RoomID]hotel.Room, len(s.rooms)),
		reservations: make(map[hotel.ReservationID]hotel.Reservation, len(s.reservations)),
		byNumber:     make(map[string]hotel.ReservationID, len(s.byNumber)),
		codes:        make(map[string]bool, len(s.codes)),
		guests:       make(map[string]hotel.GuestProfile, len(s.guests)),
	}
	for k, v := range s.rooms {
		cp.rooms[k] = v
	}
	for k, v := range s.reservations {
		cp.reservations[k] = v
	}
	for k, v := range s.byNumber {
		cp.byNumber[k] = v
	}
	for k, v := range s.codes {
		cp.codes[k] = v
	}
	for k, v := range s.guests {
		cp.guests[k] = v
	}
	return cp
}

func (s *memoryState) saveRoom(room hotel.Room) error {
	room.Seasons = append([]hotel.SeasonalRate(nil), room.Seasons...)
	s.rooms[room.ID] = room
	return nil
}

func (s *memoryState) getRoom(id hotel.RoomID) (hotel.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return hotel.Room{}, &hotel.NotFoundError{Kind: "room", ID: string(id)}
	}
	room.Seasons = append([]hotel.SeasonalRate(nil), room.Seasons...)
	return room, nil
}

func (s *memoryState) listRooms() []hotel.Room {
	rooms := make([]hotel.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		r.Seasons = append([]hotel.SeasonalRate(nil), r.Seasons...)
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

func (s *memoryState) updateRoomStatus(id hotel.RoomID, status hotel.RoomStatus, needsCleaning bool, at time.Time) error {
	room, ok := s.rooms[id]
	if !ok {
		return &hotel.NotFoundError{Kind: "room", ID: string(id)}
	}
	room.Status = status
	room.NeedsCleaning = needsCleaning
	room.UpdatedAt = at
	s.rooms[id] = room
	return nil
}

func (s *memoryState) insertReservation(r hotel.Reservation) error {
	if _, exists := s.reservations[r.ID]; exists {
		return fmt.Errorf("reservation %s already exists", r.ID)
	}
	if s.codes[r.BookingNumber] || s.codes[r.ConfirmationCode] {
		return generic.ErrDuplicateCode
	}
	if r.Status.Blocking() && len(s.listBlocking(r.RoomID, r.Stay(), r.ID)) > 0 {
		return generic.ErrOverlap
	}
	s.reservations[r.ID] = r
	s.byNumber[r.BookingNumber] = r.ID
	s.codes[r.BookingNumber] = true
	s.codes[r.ConfirmationCode] = true
	return nil
}

func (s *memoryState) updateReservation(r hotel.Reservation, expectedVersion int) error {
	current, ok := s.reservations[r.ID]
	if !ok {
		return &hotel.NotFoundError{Kind: "reservation", ID: string(r.ID)}
	}
	if current.Version != expectedVersion {
		return generic.ErrConcurrentModification
	}
	if r.Status.Blocking() && len(s.listBlocking(r.RoomID, r.Stay(), r.ID)) > 0 {
		return generic.ErrOverlap
	}
	s.reservations[r.ID] = r
	return nil
}

func (s *memoryState) getReservation(id hotel.ReservationID) (hotel.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return hotel.Reservation{}, &hotel.NotFoundError{Kind: "reservation", ID: string(id)}
	}
	return r, nil
}

func (s *memoryState) getReservationByNumber(number string) (hotel.Reservation, error) {
	id, ok := s.byNumber[number]
	if !ok {
		return hotel.Reservation{}, &hotel.NotFoundError{Kind: "reservation", ID: number}
	}
	return s.reservations[id], nil
}

func (s *memoryState) listBlocking(roomID hotel.RoomID, stay generic.Interval, exclude hotel.ReservationID) []hotel.Reservation {
	var out []hotel.Reservation
	for _, r := range s.reservations {
		if r.RoomID != roomID || r.ID == exclude || !r.Status.Blocking() {
			continue
		}
		if r.Stay().Overlaps(stay) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out
}

// listAvailableRooms is the anti-join: sellable rooms minus rooms with a
// conflicting blocking reservation.
func (s *memoryState) listAvailableRooms(stay generic.Interval, minCapacity int) []hotel.Room {
	var out []hotel.Room
	for _, room := range s.listRooms() {
		if !room.Sellable() || room.Capacity < minCapacity {
			continue
		}
		if len(s.listBlocking(room.ID, stay, "")) > 0 {
			continue
		}
		out = append(out, room)
	}
	return out
}

func (s *memoryState) listReservations(f hotel.ReservationFilter) ([]hotel.Reservation, int) {
	var matched []hotel.Reservation
	for _, r := range s.reservations {
		if f.Matches(r) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return f.Less(matched[i], matched[j]) })

	total := len(matched)
	if f.Offset >= total {
		return []hotel.Reservation{}, total
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total
}

func (s *memoryState) getGuest(email string) (hotel.GuestProfile, error) {
	g, ok := s.guests[hotel.Guest{Email: email}.NormalizedEmail()]
	if !ok {
		return hotel.GuestProfile{}, &hotel.NotFoundError{Kind: "guest", ID: email}
	}
	return g, nil
}
