/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:    Unique ID per request for tracing
  2. Logger:       Request logging
  3. Recoverer:    Panic recovery (500 instead of crash)
  4. CORS:         Cross-origin requests for the front desk UI
  5. Authenticate: Verifies a bearer token when one is sent

ROUTE GROUPS:
  /healthz              Liveness
  /api/rooms/*          Public availability search
  /api/bookings/*       Public booking, lookup and cancellation
  /api/admin/*          Staff operations (staff or admin role)
  /api/admin/rooms, /api/admin/reports
                        Catalog and reports (admin role)
  /api/scenarios/*      Demo data (load requires admin role)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token verification and role checks
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultOrigins are allowed by CORS when none are configured.
var DefaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, auth *Auth, origins ...string) *chi.Mux {
	if len(origins) == 0 {
		origins = DefaultOrigins
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(auth.Authenticate)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Availability routes
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/available", h.SearchAvailability)
			r.Get("/{id}/availability", h.RoomAvailability)
		})

		// Guest booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Post("/requests", h.CreateBookingRequest)
			r.Get("/{number}", h.GetBooking)
			r.Post("/{number}/cancel", h.CancelBooking)
		})

		// Staff routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(RoleStaff, RoleAdmin))

			r.Route("/reservations", func(r chi.Router) {
				r.Get("/", h.ListReservations)
				r.Get("/{id}", h.GetReservation)
				r.Post("/{id}/confirm", h.Confirm)
				r.Post("/{id}/check-in", h.CheckIn)
				r.Post("/{id}/check-out", h.CheckOut)
				r.Post("/{id}/no-show", h.MarkNoShow)
			})
			r.Get("/guests/{email}", h.GuestProfile)
			r.Post("/housekeeping/run", h.RunHousekeeping)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(RoleAdmin))

				r.Get("/rooms", h.ListRooms)
				r.Post("/rooms", h.SaveRoom)
				r.Get("/rooms/{id}", h.GetRoom)
				r.Put("/rooms/{id}/status", h.UpdateRoomStatus)
				r.Get("/reports/revenue", h.RevenueReport)
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.With(RequireRole(RoleAdmin)).Post("/load", h.LoadScenario)
		})
	})

	return r
}
