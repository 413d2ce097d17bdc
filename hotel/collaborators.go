package hotel

import (
	"context"
	"time"

	"github.com/warp/booking-engine/generic"
)

// =============================================================================
// EXTERNAL COLLABORATORS - Consumed, not implemented, by the engine
// =============================================================================

// Locker serializes check-then-write on a single room. Implementations:
// lock.Local (one process) and lock.Redis (many instances).
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// PaymentProcessor captures and refunds money. Errors are normal rejections.
type PaymentProcessor interface {
	Capture(ctx context.Context, amount generic.Money, token string) (ref string, err error)
	Refund(ctx context.Context, ref string, amount generic.Money) error
}

// Notifier is told about transitions after they commit. Failures are
// logged by the caller and never undo the transition.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

type EventType string

const (
	EventRequested  EventType = "booking.requested"
	EventConfirmed  EventType = "booking.confirmed"
	EventCancelled  EventType = "booking.cancelled"
	EventCheckedIn  EventType = "booking.checked_in"
	EventCheckedOut EventType = "booking.checked_out"
	EventNoShow     EventType = "booking.no_show"
)

// Event is the payload handed to a Notifier.
type Event struct {
	Type          EventType      `json:"type"`
	ReservationID ReservationID  `json:"reservation_id"`
	BookingNumber string         `json:"booking_number"`
	RoomID        RoomID         `json:"room_id"`
	Guest         Guest          `json:"guest"`
	CheckIn       time.Time      `json:"check_in"`
	CheckOut      time.Time      `json:"check_out"`
	Total         generic.Money  `json:"total"`
	Fee           *generic.Money `json:"fee,omitempty"`
	Refund        *generic.Money `json:"refund,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

func newEvent(t EventType, r Reservation, at time.Time) Event {
	e := Event{
		Type:          t,
		ReservationID: r.ID,
		BookingNumber: r.BookingNumber,
		RoomID:        r.RoomID,
		Guest:         r.Guest,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		Total:         r.Pricing.Total,
		OccurredAt:    at,
	}
	if r.Cancellation != nil {
		fee, refund := r.Cancellation.Fee, r.Cancellation.Refund
		e.Fee, e.Refund = &fee, &refund
	}
	return e
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }

// unavailablePayments rejects every call. Used when no processor is configured.
type unavailablePayments struct{}

func (unavailablePayments) Capture(context.Context, generic.Money, string) (string, error) {
	return "", errNoProcessor
}

func (unavailablePayments) Refund(context.Context, string, generic.Money) error {
	return errNoProcessor
}
