/*
scheduler.go - Automated housekeeping scheduler

PURPOSE:
  Periodically runs the jobs nobody triggers by hand:
  - Marks confirmed bookings whose guest never arrived as no-show,
    once the grace period after check-in has passed
  - Reconciles room operational status with in-house reservations. Room
    status is written best-effort after check-in/check-out commit, so a
    failed write leaves a room Occupied with nobody in it (or the reverse)

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Errors are logged; the next tick retries

USAGE:
  scheduler := NewHousekeepingScheduler(NewHousekeeper(svc, store))
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunHousekeeping endpoint (manual trigger)
  - hotel/lifecycle.go: SweepNoShows
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// HOUSEKEEPER - One pass of every job
// =============================================================================

type Housekeeper struct {
	Service *hotel.BookingService
	Store   hotel.Store
	Now     func() time.Time
}

func NewHousekeeper(svc *hotel.BookingService, store hotel.Store) *Housekeeper {
	return &Housekeeper{Service: svc, Store: store, Now: time.Now}
}

// Run sweeps no-shows then reconciles room status.
func (hk *Housekeeper) Run(ctx context.Context) (HousekeepingResultDTO, error) {
	var result HousekeepingResultDTO

	marked, err := hk.Service.SweepNoShows(ctx)
	result.NoShows = marked
	if err != nil {
		return result, fmt.Errorf("no-show sweep: %w", err)
	}

	released, occupied, err := hk.ReconcileRooms(ctx)
	result.RoomsReleased, result.RoomsOccupied = released, occupied
	if err != nil {
		return result, fmt.Errorf("room reconciliation: %w", err)
	}
	return result, nil
}

// ReconcileRooms makes room status agree with checked-in reservations.
// Rooms out of order or under maintenance are left alone.
func (hk *Housekeeper) ReconcileRooms(ctx context.Context) (released, occupied int, err error) {
	// Rooms before reservations: a check-in or check-out that commits in
	// between is then seen in its final state.
	rooms, err := hk.Store.ListRooms(ctx)
	if err != nil {
		return 0, 0, err
	}
	inHouse, _, err := hk.Store.ListReservations(ctx, hotel.ReservationFilter{
		Statuses: []hotel.Status{hotel.StatusCheckedIn},
	})
	if err != nil {
		return 0, 0, err
	}
	guests := make(map[hotel.RoomID]bool, len(inHouse))
	for _, r := range inHouse {
		guests[r.RoomID] = true
	}

	now := hk.Now()
	for _, room := range rooms {
		switch {
		case room.Status == hotel.RoomOccupied && !guests[room.ID]:
			if err := hk.Store.UpdateRoomStatus(ctx, room.ID, hotel.RoomAvailable, true, now); err != nil {
				return released, occupied, err
			}
			log.Printf("[Scheduler] Room %s released (no guest in house)", room.ID)
			released++
		case room.Status == hotel.RoomAvailable && guests[room.ID]:
			if err := hk.Store.UpdateRoomStatus(ctx, room.ID, hotel.RoomOccupied, room.NeedsCleaning, now); err != nil {
				return released, occupied, err
			}
			log.Printf("[Scheduler] Room %s marked occupied (guest in house)", room.ID)
			occupied++
		}
	}
	return released, occupied, nil
}

// =============================================================================
// SCHEDULER - Runs the housekeeper on a ticker
// =============================================================================

type HousekeepingScheduler struct {
	Housekeeper   *Housekeeper
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewHousekeepingScheduler(hk *Housekeeper) *HousekeepingScheduler {
	return &HousekeepingScheduler{
		Housekeeper:   hk,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (hs *HousekeepingScheduler) Start() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if !hs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if hs.ticker != nil {
		return
	}

	hs.ticker = time.NewTicker(hs.CheckInterval)
	hs.stop = make(chan struct{})
	hs.wg.Add(1)
	go hs.run(hs.ticker.C, hs.stop)

	log.Printf("[Scheduler] Started with check interval: %v", hs.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (hs *HousekeepingScheduler) Stop() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.ticker != nil {
		hs.ticker.Stop()
		close(hs.stop)
		hs.wg.Wait()
		hs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (hs *HousekeepingScheduler) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer hs.wg.Done()

	hs.checkAndProcess()

	for {
		select {
		case <-tick:
			hs.checkAndProcess()
		case <-stop:
			return
		}
	}
}

func (hs *HousekeepingScheduler) checkAndProcess() {
	ctx, cancel := context.WithTimeout(context.Background(), hs.CheckInterval)
	defer cancel()

	result, err := hs.Housekeeper.Run(ctx)
	if err != nil {
		log.Printf("[Scheduler] Housekeeping failed: %v", err)
		return
	}
	if result.NoShows+result.RoomsReleased+result.RoomsOccupied > 0 {
		log.Printf("[Scheduler] Housekeeping: %d no-shows, %d rooms released, %d rooms occupied",
			result.NoShows, result.RoomsReleased, result.RoomsOccupied)
	}
}
