/*
Package hotel implements the booking engine for hotel rooms.

PURPOSE:
  Allocates rooms to time-bounded reservations without double-booking,
  prices stays deterministically, enforces the cancellation-fee policy,
  and aggregates revenue over time windows. Built on the generic package
  (money, half-open intervals, error kinds).

KEY CONCEPTS:
  Room:        A bookable resource with capacity, base price and seasons
  Reservation: A claim on a room for [CheckIn, CheckOut) with a frozen price
  Status:      Lifecycle state (pending → confirmed → checked_in → checked_out)
  Blocking:    Statuses that occupy the calendar (confirmed, checked_in)

CENTRAL INVARIANT:
  For any room, blocking reservations have pairwise-disjoint intervals.
  Upheld by the room lock around check-then-write in the lifecycle
  manager, and re-validated by the store (trigger, exclusion constraint,
  or in-transaction scan).

FILES:
  types.go:        Room, Guest, Reservation and their enums
  store.go:        Persistence contract
  errors.go:       Structured errors
  availability.go: Conflict detection and bulk search
  pricing.go:      Nightly rate, tax, total
  cancellation.go: Fee tiers and eligibility
  lifecycle.go:    BookingService state machine
  reporting.go:    Revenue aggregation
  codes.go:        Booking number and confirmation code generation

SEE ALSO:
  - generic/: Value types and error kinds
  - hotel/store/: In-memory store
  - store/sqlite, store/postgres: SQL stores
*/
package hotel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/loyalty"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RoomID string

type ReservationID string

type RoomType string

const (
	RoomStandard RoomType = "standard"
	RoomDeluxe   RoomType = "deluxe"
	RoomSuite    RoomType = "suite"
)

// =============================================================================
// ROOM - Catalog entry
// =============================================================================

// RoomStatus is the operational status of a room. It is advisory: the
// reservation calendar decides availability, status only excludes rooms
// that cannot be sold right now.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomOutOfOrder  RoomStatus = "out_of_order"
	RoomMaintenance RoomStatus = "maintenance"
)

func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomOutOfOrder, RoomMaintenance:
		return true
	}
	return false
}

// SeasonalRate overrides the base price on the days From..To inclusive.
type SeasonalRate struct {
	Name       string       `json:"name"`
	From       time.Time    `json:"from"`
	To         time.Time    `json:"to"`
	Multiplier generic.Rate `json:"multiplier"`
}

func (s SeasonalRate) Range() generic.DateRange {
	return generic.DateRange{From: s.From, To: s.To}
}

type Room struct {
	ID            RoomID         `json:"id"`
	Number        string         `json:"number"`
	Type          RoomType       `json:"type"`
	Capacity      int            `json:"capacity"`
	BasePrice     generic.Money  `json:"base_price"`
	Seasons       []SeasonalRate `json:"seasons,omitempty"`
	Active        bool           `json:"active"`
	Status        RoomStatus     `json:"status"`
	NeedsCleaning bool           `json:"needs_cleaning"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Sellable reports whether the room may take new reservations at all,
// independent of its calendar.
func (r Room) Sellable() bool {
	return r.Active && r.Status == RoomAvailable
}

// Validate checks catalog invariants. Seasons of one room must not share
// a day, otherwise the rate for that day would be ambiguous.
func (r Room) Validate() error {
	if strings.TrimSpace(string(r.ID)) == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	if r.Capacity < 1 {
		return &ValidationError{Field: "capacity", Reason: "must be at least 1"}
	}
	if !r.BasePrice.IsPositive() {
		return &ValidationError{Field: "base_price", Reason: "must be positive"}
	}
	if r.Status != "" && !r.Status.IsValid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", r.Status)}
	}
	return ValidateSeasons(r.Seasons)
}

// ValidateSeasons rejects inverted ranges, non-positive multipliers and
// overlapping ranges.
func ValidateSeasons(seasons []SeasonalRate) error {
	sorted := make([]SeasonalRate, len(seasons))
	copy(sorted, seasons)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From.Before(sorted[j].From) })

	for i, s := range sorted {
		if _, err := generic.NewDateRange(s.From, s.To); err != nil {
			return &ValidationError{Field: "seasons", Reason: fmt.Sprintf("season %q: %v", s.Name, err)}
		}
		if !s.Multiplier.IsPositive() {
			return &ValidationError{Field: "seasons", Reason: fmt.Sprintf("season %q: multiplier must be positive", s.Name)}
		}
		if i > 0 && sorted[i-1].Range().Overlaps(s.Range()) {
			return &ValidationError{Field: "seasons",
				Reason: fmt.Sprintf("season %q overlaps %q", s.Name, sorted[i-1].Name)}
		}
	}
	return nil
}

// =============================================================================
// GUEST - Party making the reservation
// =============================================================================

// Guest is the contact snapshot stored on a reservation.
type Guest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// NormalizedEmail is the key guests are stored under.
func (g Guest) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(g.Email))
}

// GuestProfile carries the statistics updated on paid confirmations.
type GuestProfile struct {
	Guest
	Stats loyalty.Stats `json:"stats"`
}

// =============================================================================
// RESERVATION
// =============================================================================

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// BlockingStatuses occupy the room calendar.
var BlockingStatuses = []Status{StatusConfirmed, StatusCheckedIn}

// RevenueStatuses count towards revenue reports.
var RevenueStatuses = []Status{StatusConfirmed, StatusCheckedIn, StatusCheckedOut}

func (s Status) Blocking() bool { return s == StatusConfirmed || s == StatusCheckedIn }

func (s Status) Terminal() bool {
	return s == StatusCheckedOut || s == StatusCancelled || s == StatusNoShow
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentRefunded      PaymentStatus = "refunded"
	PaymentFailed        PaymentStatus = "failed"
)

// Pricing is the snapshot frozen at creation. It is never recomputed from
// current catalog prices.
type Pricing struct {
	NightlyRate generic.Money `json:"nightly_rate"`
	Nights      int           `json:"nights"`
	Subtotal    generic.Money `json:"subtotal"`
	TaxRate     generic.Rate  `json:"tax_rate"`
	Tax         generic.Money `json:"tax"`
	Fees        generic.Money `json:"fees"`
	Discounts   generic.Money `json:"discounts"`
	Total       generic.Money `json:"total"`
	Season      string        `json:"season,omitempty"`
}

// Cancellation is populated only when a reservation is cancelled.
type Cancellation struct {
	Reason      string        `json:"reason,omitempty"`
	At          time.Time     `json:"at"`
	HoursNotice float64       `json:"hours_notice"`
	Fee         generic.Money `json:"fee"`
	Refund      generic.Money `json:"refund"`
}

// Occupancy is the party size.
type Occupancy struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

func (o Occupancy) Total() int { return o.Adults + o.Children }

type Reservation struct {
	ID               ReservationID `json:"id"`
	BookingNumber    string        `json:"booking_number"`
	ConfirmationCode string        `json:"confirmation_code"`
	RoomID           RoomID        `json:"room_id"`
	RoomType         RoomType      `json:"room_type"`
	Guest            Guest         `json:"guest"`
	CheckIn          time.Time     `json:"check_in"`
	CheckOut         time.Time     `json:"check_out"`
	Occupancy        Occupancy     `json:"occupancy"`
	SpecialRequests  string        `json:"special_requests,omitempty"`
	Pricing          Pricing       `json:"pricing"`
	Status           Status        `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentRef       string        `json:"payment_ref,omitempty"`
	Cancellation     *Cancellation `json:"cancellation,omitempty"`
	CheckedInAt      *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt     *time.Time    `json:"checked_out_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Version          int           `json:"version"`
}

func (r Reservation) Stay() generic.Interval {
	return generic.Interval{Start: r.CheckIn, End: r.CheckOut}
}

// touch records a mutation. Called by the lifecycle manager before every
// update so the store can compare against the previous version.
func (r *Reservation) touch(now time.Time) {
	r.Version++
	r.UpdatedAt = now
}
