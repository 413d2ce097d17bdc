package hotel

import (
	"fmt"

	"github.com/warp/booking-engine/generic"
)

// =============================================================================
// STRUCTURED ERRORS - Carry booking context, unwrap to generic kinds
// =============================================================================

// ValidationError reports malformed input. Returned before storage is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return generic.ErrValidation }

// NotFoundError reports a missing room or reservation.
type NotFoundError struct {
	Kind string // "room", "reservation", "guest"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return generic.ErrNotFound }

// UnavailableError reports that a room cannot take the requested stay,
// either because of an overlapping blocking reservation or because the
// room is not sellable. Races lost at the storage layer surface as this
// error too.
type UnavailableError struct {
	RoomID RoomID
	Stay   generic.Interval
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("room %s not available for %s: %s", e.RoomID, e.Stay, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return generic.ErrConflict }

// TransitionError reports a failed lifecycle guard.
type TransitionError struct {
	ReservationID ReservationID
	From          Status
	To            Status
	Reason        string
}

func (e *TransitionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("reservation %s: cannot move from %s to %s", e.ReservationID, e.From, e.To)
	}
	return fmt.Sprintf("reservation %s: cannot move from %s to %s: %s", e.ReservationID, e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() error { return generic.ErrInvalidTransition }

// CancellationWindowError reports a cancellation attempted too close to check-in.
type CancellationWindowError struct {
	BookingNumber string
	HoursNotice   float64
	MinHours      float64
}

func (e *CancellationWindowError) Error() string {
	return fmt.Sprintf("booking %s: cancellation requires more than %.0fh notice, %.1fh left",
		e.BookingNumber, e.MinHours, e.HoursNotice)
}

func (e *CancellationWindowError) Unwrap() error { return generic.ErrCancellationWindowClosed }

// PaymentError reports a declined or failed capture. The reservation it
// belongs to stays pending.
type PaymentError struct {
	BookingNumber string
	Amount        generic.Money
	Err           error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("booking %s: payment of %s failed: %v", e.BookingNumber, e.Amount, e.Err)
}

func (e *PaymentError) Unwrap() []error { return []error{generic.ErrPaymentFailed, e.Err} }

// RefundError reports a failed refund. The cancellation was not recorded.
type RefundError struct {
	BookingNumber string
	Amount        generic.Money
	Err           error
}

func (e *RefundError) Error() string {
	return fmt.Sprintf("booking %s: refund of %s failed: %v", e.BookingNumber, e.Amount, e.Err)
}

func (e *RefundError) Unwrap() []error { return []error{generic.ErrRefundFailed, e.Err} }
