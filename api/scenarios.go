/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for demos and front desk training. Every booking goes through the
	BookingService, so scenario data obeys the same rules as live traffic.

AVAILABLE SCENARIOS:

	city-hotel:    Six-room catalog, no bookings
	busy-week:     Catalog plus paid bookings, a pending request and a
	               cancellation over the coming two weeks
	in-house:      Guests checked in today, one already checked out
	peak-season:   Deluxe rooms at a 1.5x seasonal rate for the next month

HOW SCENARIOS WORK:
 1. Reset the store (when a reset function is configured)
 2. Import the room catalog via factory.ParseCatalog
 3. Create bookings relative to today through the BookingService

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-week"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.
	Bookings pay with sandbox tokens, so load scenarios against the
	payment sandbox.

SEE ALSO:
  - handlers.go: Handler
  - factory/catalog.go: Catalog JSON
*/
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler, today time.Time) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "city-hotel",
			Name:        "City Hotel",
			Description: "Six rooms across three types, one under maintenance, no bookings",
		},
		load: loadCityHotel,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "busy-week",
			Name:        "Busy Week",
			Description: "Paid bookings, a pending request and a cancellation over the next two weeks",
		},
		load: loadBusyWeek,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "in-house",
			Name:        "In-House Guests",
			Description: "Guests checked in today, one departure awaiting cleaning",
		},
		load: loadInHouse,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "peak-season",
			Name:        "Peak Season",
			Description: "Deluxe rooms at 1.5x for the next 30 days with bookings inside the season",
		},
		load: loadPeakSeason,
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req, false); err != nil {
		writeDomainError(w, err, nil)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeDomainError(w, &hotel.NotFoundError{Kind: "scenario", ID: req.ScenarioID}, nil)
		return
	}
	if err := h.LoadScenarioByID(r.Context(), s.ID); err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": s.ID,
	})
}

// LoadScenarioByID resets the store and loads the named scenario.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	s, ok := findScenario(id)
	if !ok {
		return &hotel.NotFoundError{Kind: "scenario", ID: id}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Reset != nil {
		if err := h.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset store: %w", err)
		}
	}
	today := generic.StartOfDay(h.Service.Now())
	if err := s.load(ctx, h, today); err != nil {
		return fmt.Errorf("failed to load scenario %s: %w", id, err)
	}
	h.currentScenario = id
	log.Printf("[Scenarios] Loaded %s", id)
	return nil
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// CATALOG
// =============================================================================

const cityHotelCatalog = `{
	"currency": "USD",
	"rooms": [
		{"id": "101", "type": "standard", "capacity": 2, "base_price": "100.00"},
		{"id": "102", "type": "standard", "capacity": 2, "base_price": "100.00"},
		{"id": "201", "type": "deluxe", "capacity": 3, "base_price": "150.00"},
		{"id": "202", "type": "deluxe", "capacity": 3, "base_price": "150.00"},
		{"id": "301", "type": "suite", "capacity": 4, "base_price": "320.00"},
		{"id": "401", "type": "standard", "capacity": 2, "base_price": "90.00", "status": "maintenance"}
	]
}`

func importCatalog(ctx context.Context, h *Handler, catalog string) error {
	rooms, err := factory.ParseCatalog([]byte(catalog), h.Service.Policy().Currency)
	if err != nil {
		return err
	}
	return factory.ImportRooms(ctx, h.Store, rooms, h.Service.Policy().Currency)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadCityHotel(ctx context.Context, h *Handler, _ time.Time) error {
	return importCatalog(ctx, h, cityHotelCatalog)
}

func loadBusyWeek(ctx context.Context, h *Handler, today time.Time) error {
	if err := importCatalog(ctx, h, cityHotelCatalog); err != nil {
		return err
	}
	svc := h.Service

	// Paid, a week out
	if _, err := svc.CreateBooking(ctx, demoBooking("101", today, 7, 10, "grace@example.com", "Grace Hopper")); err != nil {
		return err
	}
	// Pending request awaiting the front desk
	if _, err := svc.CreateBookingRequest(ctx, demoBooking("102", today, 3, 5, "alan@example.com", "Alan Turing")); err != nil {
		return err
	}
	// Paid, inside the cancellation fee window
	if _, err := svc.CreateBooking(ctx, demoBooking("201", today, 2, 4, "ada@example.com", "Ada Lovelace")); err != nil {
		return err
	}
	// Booked then cancelled with full refund
	res, err := svc.CreateBooking(ctx, demoBooking("301", today, 14, 16, "edsger@example.com", "Edsger Dijkstra"))
	if err != nil {
		return err
	}
	_, err = svc.CancelBooking(ctx, res.BookingNumber, res.ConfirmationCode, "conference moved")
	return err
}

func loadInHouse(ctx context.Context, h *Handler, today time.Time) error {
	if err := importCatalog(ctx, h, cityHotelCatalog); err != nil {
		return err
	}
	svc := h.Service

	for _, b := range []struct {
		room, email, name string
		nights            int
		checkOut          bool
	}{
		{"101", "grace@example.com", "Grace Hopper", 2, false},
		{"201", "barbara@example.com", "Barbara Liskov", 3, false},
		{"202", "ken@example.com", "Ken Thompson", 1, true},
	} {
		res, err := svc.CreateBooking(ctx, demoBooking(b.room, today, 0, b.nights, b.email, b.name))
		if err != nil {
			return err
		}
		if _, err := svc.CheckIn(ctx, res.ID); err != nil {
			return err
		}
		if b.checkOut {
			if _, err := svc.CheckOut(ctx, res.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadPeakSeason(ctx context.Context, h *Handler, today time.Time) error {
	from := today.Format(time.DateOnly)
	to := today.AddDate(0, 0, 30).Format(time.DateOnly)
	catalog := fmt.Sprintf(`{
	"currency": "USD",
	"rooms": [
		{"id": "101", "type": "standard", "capacity": 2, "base_price": "100.00"},
		{"id": "201", "type": "deluxe", "capacity": 3, "base_price": "150.00",
		 "seasons": [{"name": "peak", "from": %[1]q, "to": %[2]q, "multiplier": "1.5"}]},
		{"id": "202", "type": "deluxe", "capacity": 3, "base_price": "150.00",
		 "seasons": [{"name": "peak", "from": %[1]q, "to": %[2]q, "multiplier": "1.5"}]}
	]
}`, from, to)
	if err := importCatalog(ctx, h, catalog); err != nil {
		return err
	}

	svc := h.Service
	if _, err := svc.CreateBooking(ctx, demoBooking("201", today, 5, 8, "grace@example.com", "Grace Hopper")); err != nil {
		return err
	}
	_, err := svc.CreateBooking(ctx, demoBooking("202", today, 10, 12, "linus@example.com", "Linus Torvalds"))
	return err
}

func demoBooking(room string, today time.Time, fromDay, toDay int, email, name string) hotel.BookingRequest {
	return hotel.BookingRequest{
		Guest:        hotel.Guest{Email: email, Name: name},
		RoomID:       hotel.RoomID(room),
		CheckIn:      today.AddDate(0, 0, fromDay),
		CheckOut:     today.AddDate(0, 0, toDay),
		Occupancy:    hotel.Occupancy{Adults: 2},
		PaymentToken: "tok_visa",
	}
}
