/*
lifecycle.go - Booking lifecycle manager

PURPOSE:
  Orchestrates every reservation transition: creation, confirmation,
  check-in, check-out, cancellation and no-show. Each operation calls
  the availability checker, pricing engine and cancellation policy in
  sequence and persists the result atomically.

STATE MACHINE:
  ┌─────────┐  confirm   ┌───────────┐  check-in  ┌────────────┐  check-out  ┌─────────────┐
  │ pending │ ─────────▶ │ confirmed │ ─────────▶ │ checked_in │ ──────────▶ │ checked_out │
  └─────────┘            └───────────┘            └────────────┘             └─────────────┘
       │                       │
       ├──── cancel ───────────┤──▶ cancelled
       └──── no-show ──────────┴──▶ no_show

  A guard failure returns a TransitionError (or a more specific kind)
  and writes nothing.

CREATE FLOW (room lock held throughout):
  1. Validate input (no storage access)
  2. In one transaction: load room, check occupancy, check calendar,
     price, reserve codes, insert pending
  3. Capture payment under a timeout
  4. In one transaction: re-check calendar, confirm, mark paid, credit
     guest loyalty
  Capture failure leaves the reservation pending with payment failed.
  If confirmation loses a race after capture, the capture is refunded.

CANCEL FLOW:
  1. Match confirmation code, apply eligibility guard
  2. Split total into fee and refund by notice
  3. Request refund (if money was captured); failure aborts here
  4. Persist cancellation

EXPLICIT STEPS:
  Version and UpdatedAt are bumped by the manager (Reservation.touch)
  before every write. Stores compare versions; they never derive fields.

SEE ALSO:
  - availability.go, pricing.go, cancellation.go
  - collaborators.go: Locker, PaymentProcessor, Notifier
*/
package hotel

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/loyalty"
)

var errNoProcessor = errors.New("no payment processor configured")

// =============================================================================
// BOOKING SERVICE
// =============================================================================

type BookingService struct {
	store    TxStore
	locker   Locker
	payments PaymentProcessor
	notifier Notifier
	loyalty  loyalty.Program
	policy   Policy
	codes    CodeGenerator
	now      func() time.Time
	newID    func() ReservationID
}

type Option func(*BookingService)

func WithPayments(p PaymentProcessor) Option { return func(s *BookingService) { s.payments = p } }
func WithNotifier(n Notifier) Option         { return func(s *BookingService) { s.notifier = n } }
func WithPolicy(p Policy) Option             { return func(s *BookingService) { s.policy = p } }
func WithLoyalty(p loyalty.Program) Option   { return func(s *BookingService) { s.loyalty = p } }
func WithCodes(g CodeGenerator) Option       { return func(s *BookingService) { s.codes = g } }

// WithClock replaces time.Now. Tests pin the clock to exercise fee tiers.
func WithClock(now func() time.Time) Option { return func(s *BookingService) { s.now = now } }

func NewBookingService(store TxStore, locker Locker, opts ...Option) *BookingService {
	s := &BookingService{
		store:    store,
		locker:   locker,
		payments: unavailablePayments{},
		notifier: nopNotifier{},
		loyalty:  loyalty.DefaultProgram(),
		policy:   DefaultPolicy(),
		codes:    RandomCodes{},
		now:      time.Now,
		newID:    func() ReservationID { return ReservationID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) Policy() Policy { return s.policy }

// Now is the service clock.
func (s *BookingService) Now() time.Time { return s.now() }

// Checker returns an availability checker over the same store.
func (s *BookingService) Checker() *Checker { return NewChecker(s.store) }

// Quote prices a stay without reserving anything. The figure is what
// CreateBooking would charge right now, barring a policy change.
func (s *BookingService) Quote(ctx context.Context, roomID RoomID, checkIn, checkOut time.Time) (Pricing, error) {
	stay, err := generic.NewInterval(checkIn.UTC(), checkOut.UTC())
	if err != nil {
		return Pricing{}, &ValidationError{Field: "check_out", Reason: err.Error()}
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return Pricing{}, err
	}
	return s.policy.pricer().Price(room, stay, Extras{}, s.now())
}

// =============================================================================
// REQUESTS
// =============================================================================

// BookingRequest is the input to both creation operations.
type BookingRequest struct {
	Guest           Guest
	RoomID          RoomID
	CheckIn         time.Time
	CheckOut        time.Time
	Occupancy       Occupancy
	SpecialRequests string
	Extras          Extras
	PaymentToken    string
}

// Validate checks everything that does not need storage. Check-in may be
// today but not on an earlier calendar day.
func (r BookingRequest) Validate(now time.Time) error {
	if strings.TrimSpace(r.Guest.Name) == "" {
		return &ValidationError{Field: "guest.name", Reason: "required"}
	}
	if _, err := mail.ParseAddress(r.Guest.Email); err != nil {
		return &ValidationError{Field: "guest.email", Reason: "must be a valid address"}
	}
	if strings.TrimSpace(string(r.RoomID)) == "" {
		return &ValidationError{Field: "room_id", Reason: "required"}
	}
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return &ValidationError{Field: "dates", Reason: "check_in and check_out are required"}
	}
	if !r.CheckOut.After(r.CheckIn) {
		return &ValidationError{Field: "check_out", Reason: "must be after check_in"}
	}
	if generic.StartOfDay(r.CheckIn).Before(generic.StartOfDay(now)) {
		return &ValidationError{Field: "check_in", Reason: "must not be in the past"}
	}
	if r.Occupancy.Adults < 1 {
		return &ValidationError{Field: "adults", Reason: "at least one adult is required"}
	}
	if r.Occupancy.Children < 0 {
		return &ValidationError{Field: "children", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// CREATION
// =============================================================================

// CreateBookingRequest records a pending, unpaid reservation.
func (s *BookingService) CreateBookingRequest(ctx context.Context, req BookingRequest) (Reservation, error) {
	req.PaymentToken = ""
	return s.create(ctx, req, false)
}

// CreateBooking records a reservation and captures payment. On capture
// failure the pending reservation is returned together with a PaymentError.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (Reservation, error) {
	if strings.TrimSpace(req.PaymentToken) == "" {
		return Reservation{}, &ValidationError{Field: "payment_token", Reason: "required"}
	}
	return s.create(ctx, req, true)
}

func (s *BookingService) create(ctx context.Context, req BookingRequest, pay bool) (Reservation, error) {
	now := s.now()

	// 1. Validate before touching storage
	if err := req.Validate(now); err != nil {
		return Reservation{}, err
	}
	stay := generic.Interval{Start: req.CheckIn.UTC(), End: req.CheckOut.UTC()}

	// 2. Serialize check-then-write on this room
	return s.withRoomLock(ctx, req.RoomID, func() (Reservation, EventType, error) {
		// 3. Check, price and insert as pending
		res, err := s.insertPending(ctx, req, stay, now)
		if err != nil {
			return Reservation{}, "", err
		}
		log.Printf("[Booking] %s requested: room %s %s total %s", res.BookingNumber, res.RoomID, stay, res.Pricing.Total)

		if !pay {
			return res, EventRequested, nil
		}

		// 4. Capture and confirm while still holding the lock
		return s.captureAndConfirm(ctx, res, req.PaymentToken)
	})
}

func (s *BookingService) insertPending(ctx context.Context, req BookingRequest, stay generic.Interval, now time.Time) (Reservation, error) {
	var lastErr error
	for attempt := 1; attempt <= s.policy.CodeAttempts; attempt++ {
		number, code, err := s.codes.Generate()
		if err != nil {
			return Reservation{}, err
		}

		var res Reservation
		err = s.store.WithTx(ctx, func(tx Store) error {
			room, err := tx.GetRoom(ctx, req.RoomID)
			if err != nil {
				return err
			}
			if room.BasePrice.Currency != s.policy.Currency {
				return &ValidationError{Field: "room_id",
					Reason: fmt.Sprintf("room %s is priced in %s, bookings are taken in %s", room.ID, room.BasePrice.Currency, s.policy.Currency)}
			}
			if req.Occupancy.Total() > room.Capacity {
				return &ValidationError{Field: "occupancy",
					Reason: fmt.Sprintf("%d guests exceed room capacity %d", req.Occupancy.Total(), room.Capacity)}
			}
			if err := ensureAvailable(ctx, tx, room, stay); err != nil {
				return err
			}
			pricing, err := s.policy.pricer().Price(room, stay, req.Extras, now)
			if err != nil {
				return err
			}

			taken, err := tx.CodesExist(ctx, number, code)
			if err != nil {
				return err
			}
			if taken {
				return generic.ErrDuplicateCode
			}

			guest := req.Guest
			guest.Email = guest.NormalizedEmail()
			res = Reservation{
				ID:               s.newID(),
				BookingNumber:    number,
				ConfirmationCode: code,
				RoomID:           room.ID,
				RoomType:         room.Type,
				Guest:            guest,
				CheckIn:          stay.Start,
				CheckOut:         stay.End,
				Occupancy:        req.Occupancy,
				SpecialRequests:  strings.TrimSpace(req.SpecialRequests),
				Pricing:          pricing,
				Status:           StatusPending,
				PaymentStatus:    PaymentPending,
				CreatedAt:        now,
				UpdatedAt:        now,
				Version:          1,
			}
			return tx.InsertReservation(ctx, res)
		})
		if errors.Is(err, generic.ErrDuplicateCode) {
			lastErr = err
			log.Printf("[Booking] code collision on attempt %d, regenerating", attempt)
			continue
		}
		if err != nil {
			return Reservation{}, s.writeError(req.RoomID, stay, err)
		}
		return res, nil
	}
	return Reservation{}, fmt.Errorf("failed to allocate booking number after %d attempts: %w",
		s.policy.CodeAttempts, lastErr)
}

// =============================================================================
// CONFIRMATION
// =============================================================================

// Confirm moves a pending reservation to confirmed. With a payment token
// the total is captured first; without one the booking is confirmed
// unpaid and earns no loyalty credit.
func (s *BookingService) Confirm(ctx context.Context, id ReservationID, paymentToken string) (Reservation, error) {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	return s.withRoomLock(ctx, current.RoomID, func() (Reservation, EventType, error) {
		// Re-read under the lock
		r, err := s.store.GetReservation(ctx, id)
		if err != nil {
			return Reservation{}, "", err
		}
		if r.Status != StatusPending {
			return Reservation{}, "", &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusConfirmed}
		}
		if !s.now().Before(r.CheckOut) {
			return Reservation{}, "", &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusConfirmed,
				Reason: "stay has already ended"}
		}
		// Fail before charging anyone
		if err := ensureCalendarFree(ctx, s.store, r.RoomID, r.Stay()); err != nil {
			return Reservation{}, "", err
		}

		if strings.TrimSpace(paymentToken) != "" {
			return s.captureAndConfirm(ctx, r, paymentToken)
		}

		confirmed, err := s.confirm(ctx, r, "", false)
		if err != nil {
			return Reservation{}, "", err
		}
		log.Printf("[Booking] %s confirmed manually (unpaid)", confirmed.BookingNumber)
		return confirmed, EventConfirmed, nil
	})
}

// captureAndConfirm must be called with the room lock held. The returned
// event is empty unless the booking was confirmed.
func (s *BookingService) captureAndConfirm(ctx context.Context, res Reservation, token string) (Reservation, EventType, error) {
	ref, err := s.capture(ctx, res.Pricing.Total, token)
	if err != nil {
		log.Printf("[Booking] %s payment failed: %v", res.BookingNumber, err)
		failed, uerr := s.updatePayment(ctx, res.ID, PaymentFailed, "")
		if uerr != nil {
			log.Printf("[Booking] %s could not record payment failure: %v", res.BookingNumber, uerr)
			failed = res
		}
		return failed, "", &PaymentError{BookingNumber: res.BookingNumber, Amount: res.Pricing.Total, Err: err}
	}

	confirmed, err := s.confirm(ctx, res, ref, true)
	if err != nil {
		// Compensate: refund the capture, the room was not secured
		if ref != "" {
			if rerr := s.refund(ctx, ref, res.Pricing.Total); rerr != nil {
				log.Printf("[Booking] CRITICAL: %s captured %s (ref %s) but confirm failed and refund failed: %v",
					res.BookingNumber, res.Pricing.Total, ref, rerr)
			} else if _, uerr := s.updatePayment(ctx, res.ID, PaymentRefunded, ref); uerr != nil {
				log.Printf("[Booking] %s refunded but status not recorded: %v", res.BookingNumber, uerr)
			}
		}
		return Reservation{}, "", err
	}

	log.Printf("[Booking] %s confirmed, payment %s", confirmed.BookingNumber, ref)
	return confirmed, EventConfirmed, nil
}

// confirm re-checks the calendar and writes the confirmation. Paid
// confirmations credit guest loyalty in the same transaction.
func (s *BookingService) confirm(ctx context.Context, pending Reservation, ref string, paid bool) (Reservation, error) {
	var out Reservation
	err := s.store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetReservation(ctx, pending.ID)
		if err != nil {
			return err
		}
		if r.Status != StatusPending {
			return &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusConfirmed}
		}
		if err := ensureCalendarFree(ctx, tx, r.RoomID, r.Stay()); err != nil {
			return err
		}

		prev := r.Version
		r.Status = StatusConfirmed
		if paid {
			r.PaymentStatus = PaymentPaid
			r.PaymentRef = ref
		}
		r.touch(s.now())
		if err := tx.UpdateReservation(ctx, r, prev); err != nil {
			return err
		}
		if paid {
			if err := s.recordStay(ctx, tx, r); err != nil {
				return fmt.Errorf("failed to update guest statistics: %w", err)
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return Reservation{}, s.writeError(pending.RoomID, pending.Stay(), err)
	}
	return out, nil
}

func (s *BookingService) recordStay(ctx context.Context, tx Store, r Reservation) error {
	email := r.Guest.NormalizedEmail()
	profile, err := tx.GetGuest(ctx, email)
	if err != nil && !errors.Is(err, generic.ErrNotFound) {
		return err
	}
	profile.Guest = r.Guest
	profile.Email = email
	profile.Stats = s.loyalty.RecordStay(profile.Stats, r.Pricing.Total)
	return tx.SaveGuest(ctx, profile)
}

func (s *BookingService) updatePayment(ctx context.Context, id ReservationID, status PaymentStatus, ref string) (Reservation, error) {
	var out Reservation
	err := s.store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		prev := r.Version
		r.PaymentStatus = status
		if ref != "" {
			r.PaymentRef = ref
		}
		r.touch(s.now())
		if err := tx.UpdateReservation(ctx, r, prev); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// =============================================================================
// CHECK-IN / CHECK-OUT / NO-SHOW
// =============================================================================

// CheckIn moves a confirmed reservation to checked_in and marks the room
// occupied. The room write is best-effort; housekeeping reconciles it.
func (s *BookingService) CheckIn(ctx context.Context, id ReservationID) (Reservation, error) {
	r, err := s.transition(ctx, id, StatusCheckedIn, func(r *Reservation, now time.Time) error {
		if r.Status != StatusConfirmed {
			return &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusCheckedIn}
		}
		r.CheckedInAt = &now
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	s.setRoomStatus(ctx, r.RoomID, RoomOccupied, false)
	s.notify(EventCheckedIn, r)
	return r, nil
}

// CheckOut moves a checked_in reservation to checked_out and releases the
// room for cleaning.
func (s *BookingService) CheckOut(ctx context.Context, id ReservationID) (Reservation, error) {
	r, err := s.transition(ctx, id, StatusCheckedOut, func(r *Reservation, now time.Time) error {
		if r.Status != StatusCheckedIn {
			return &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusCheckedOut}
		}
		r.CheckedOutAt = &now
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	s.setRoomStatus(ctx, r.RoomID, RoomAvailable, true)
	s.notify(EventCheckedOut, r)
	return r, nil
}

// MarkNoShow closes a pending or confirmed reservation whose guest never
// arrived. Allowed once check-in plus the grace period has passed. No
// money is refunded.
func (s *BookingService) MarkNoShow(ctx context.Context, id ReservationID) (Reservation, error) {
	r, err := s.transition(ctx, id, StatusNoShow, func(r *Reservation, now time.Time) error {
		if r.Status != StatusPending && r.Status != StatusConfirmed {
			return &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusNoShow}
		}
		if now.Before(r.CheckIn.Add(s.policy.NoShowGrace)) {
			return &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusNoShow,
				Reason: "grace period after check-in has not elapsed"}
		}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	s.notify(EventNoShow, r)
	return r, nil
}

// SweepNoShows marks every overdue pending or confirmed reservation as
// no-show. Individual failures are logged and skipped.
func (s *BookingService) SweepNoShows(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.policy.NoShowGrace)
	due, _, err := s.store.ListReservations(ctx, ReservationFilter{
		Statuses:  []Status{StatusPending, StatusConfirmed},
		CheckInTo: cutoff,
		Sort:      SortCheckInAsc,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue reservations: %w", err)
	}

	marked := 0
	for _, r := range due {
		if _, err := s.MarkNoShow(ctx, r.ID); err != nil {
			log.Printf("[Booking] no-show sweep skipped %s: %v", r.BookingNumber, err)
			continue
		}
		marked++
	}
	return marked, nil
}

// transition applies guard and status change under the room lock, in one
// transaction, with an optimistic version check.
func (s *BookingService) transition(ctx context.Context, id ReservationID, to Status, guard func(r *Reservation, now time.Time) error) (Reservation, error) {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	release, err := s.lockRoom(ctx, current.RoomID)
	if err != nil {
		return Reservation{}, err
	}
	defer release()

	now := s.now()
	var out Reservation
	err = s.store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		prev := r.Version
		if err := guard(&r, now); err != nil {
			return err
		}
		r.Status = to
		r.touch(now)
		if err := tx.UpdateReservation(ctx, r, prev); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return Reservation{}, s.writeError(current.RoomID, current.Stay(), err)
	}
	log.Printf("[Booking] %s %s -> %s", out.BookingNumber, current.Status, to)
	return out, nil
}

func (s *BookingService) setRoomStatus(ctx context.Context, id RoomID, status RoomStatus, needsCleaning bool) {
	if err := s.store.UpdateRoomStatus(ctx, id, status, needsCleaning, s.now()); err != nil {
		log.Printf("[Booking] room %s status -> %s not recorded (housekeeping will reconcile): %v", id, status, err)
	}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// CancellationResult is returned by CancelBooking.
type CancellationResult struct {
	Reservation Reservation   `json:"reservation"`
	Fee         generic.Money `json:"fee"`
	Refund      generic.Money `json:"refund"`
	Status      Status        `json:"status"`
}

// CancelBooking cancels by booking number and confirmation code. A wrong
// code is reported as not found, like GetBooking. A refund of exactly
// total - fee is requested before anything is written.
func (s *BookingService) CancelBooking(ctx context.Context, bookingNumber, confirmationCode, reason string) (CancellationResult, error) {
	found, err := s.store.GetReservationByNumber(ctx, bookingNumber)
	if err != nil {
		return CancellationResult{}, err
	}
	if !codesMatch(found.ConfirmationCode, confirmationCode) {
		return CancellationResult{}, &NotFoundError{Kind: "reservation", ID: bookingNumber}
	}

	var result CancellationResult
	_, err = s.withRoomLock(ctx, found.RoomID, func() (Reservation, EventType, error) {
		r, err := s.store.GetReservation(ctx, found.ID)
		if err != nil {
			return Reservation{}, "", err
		}
		now := s.now()

		// 1. Eligibility
		if err := CheckCancellable(r, now, s.policy.MinCancelNotice); err != nil {
			return Reservation{}, "", err
		}

		// 2. Fee split. Pending bookings cost nothing; only captured money is refunded.
		notice := r.CheckIn.Sub(now)
		currency := r.Pricing.Total.Currency
		fee, refund := generic.Zero(currency), generic.Zero(currency)
		if r.Status == StatusConfirmed {
			fee, refund = s.policy.Fees.Split(r.Pricing.Total, notice)
		}
		if r.PaymentStatus != PaymentPaid {
			refund = generic.Zero(currency)
		}

		// 3. Refund before the reservation is marked cancelled
		if refund.IsPositive() {
			if err := s.refund(ctx, r.PaymentRef, refund); err != nil {
				log.Printf("[Booking] %s refund of %s failed: %v", r.BookingNumber, refund, err)
				return Reservation{}, "", &RefundError{BookingNumber: r.BookingNumber, Amount: refund, Err: err}
			}
		}

		// 4. Persist
		prev := r.Version
		r.Status = StatusCancelled
		r.Cancellation = &Cancellation{
			Reason:      strings.TrimSpace(reason),
			At:          now,
			HoursNotice: notice.Hours(),
			Fee:         fee,
			Refund:      refund,
		}
		switch {
		case refund.IsPositive() && fee.IsZero():
			r.PaymentStatus = PaymentRefunded
		case refund.IsPositive():
			r.PaymentStatus = PaymentPartiallyPaid
		}
		r.touch(now)

		err = s.store.WithTx(ctx, func(tx Store) error {
			return tx.UpdateReservation(ctx, r, prev)
		})
		if err != nil {
			if refund.IsPositive() {
				log.Printf("[Booking] CRITICAL: %s refunded %s but cancellation not recorded: %v",
					r.BookingNumber, refund, err)
			}
			return Reservation{}, "", fmt.Errorf("failed to record cancellation: %w", err)
		}

		log.Printf("[Booking] %s cancelled: fee %s refund %s", r.BookingNumber, fee, refund)
		result = CancellationResult{Reservation: r, Fee: fee, Refund: refund, Status: r.Status}
		return r, EventCancelled, nil
	})
	if err != nil {
		return CancellationResult{}, err
	}
	return result, nil
}

// =============================================================================
// READS
// =============================================================================

// Access describes how a caller may read a booking. A matching
// confirmation code is enough; otherwise the caller must be privileged.
type Access struct {
	ConfirmationCode string
	Privileged       bool
}

// GetBooking returns the reservation for bookingNumber. A wrong code is
// reported as not found so codes cannot be guessed.
func (s *BookingService) GetBooking(ctx context.Context, bookingNumber string, access Access) (Reservation, error) {
	if !access.Privileged && access.ConfirmationCode == "" {
		return Reservation{}, fmt.Errorf("booking lookup without confirmation code: %w", generic.ErrUnauthorized)
	}
	r, err := s.store.GetReservationByNumber(ctx, bookingNumber)
	if err != nil {
		return Reservation{}, err
	}
	if !access.Privileged && !codesMatch(r.ConfirmationCode, access.ConfirmationCode) {
		return Reservation{}, &NotFoundError{Kind: "reservation", ID: bookingNumber}
	}
	return r, nil
}

func (s *BookingService) GetReservation(ctx context.Context, id ReservationID) (Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// MaxPageSize bounds a single ListBookings page.
const MaxPageSize = 200

// ListBookings returns one page of reservations and the total match count.
func (s *BookingService) ListBookings(ctx context.Context, f ReservationFilter) ([]Reservation, int, error) {
	for _, st := range f.Statuses {
		if !st.IsValid() {
			return nil, 0, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", st)}
		}
	}
	if !f.Sort.IsValid() {
		return nil, 0, &ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort %q", f.Sort)}
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, 0, &ValidationError{Field: "page", Reason: "must not be negative"}
	}
	if f.Limit == 0 || f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if !f.CheckInFrom.IsZero() && !f.CheckInTo.IsZero() && f.CheckInTo.Before(f.CheckInFrom) {
		return nil, 0, &ValidationError{Field: "to", Reason: "must not be before from"}
	}
	return s.store.ListReservations(ctx, f)
}

// GuestProfile returns loyalty statistics for a guest.
func (s *BookingService) GuestProfile(ctx context.Context, email string) (GuestProfile, error) {
	return s.store.GetGuest(ctx, Guest{Email: email}.NormalizedEmail())
}

// =============================================================================
// HELPERS
// =============================================================================

func roomLockKey(id RoomID) string { return "room:" + string(id) }

// lockRoom reports a wait that ran out as a retryable conflict. Other
// locker failures pass through unchanged.
func (s *BookingService) lockRoom(ctx context.Context, id RoomID) (func(), error) {
	release, err := s.locker.Acquire(ctx, roomLockKey(id))
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("room %s is busy: %w: %w", id, generic.ErrConflict, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock room %s: %w", id, err)
	}
	return release, nil
}

// withRoomLock runs fn under the room lock and sends the event fn returns
// once the lock has been released. An empty event sends nothing.
func (s *BookingService) withRoomLock(ctx context.Context, id RoomID, fn func() (Reservation, EventType, error)) (Reservation, error) {
	res, event, err := func() (Reservation, EventType, error) {
		release, err := s.lockRoom(ctx, id)
		if err != nil {
			return Reservation{}, "", err
		}
		defer release()
		return fn()
	}()
	if event != "" {
		s.notify(event, res)
	}
	return res, err
}

func (s *BookingService) capture(ctx context.Context, amount generic.Money, token string) (string, error) {
	if !amount.IsPositive() {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.policy.PaymentTimeout)
	defer cancel()
	return s.payments.Capture(ctx, amount, token)
}

func (s *BookingService) refund(ctx context.Context, ref string, amount generic.Money) error {
	if ref == "" {
		return errors.New("no payment reference to refund")
	}
	ctx, cancel := context.WithTimeout(ctx, s.policy.PaymentTimeout)
	defer cancel()
	return s.payments.Refund(ctx, ref, amount)
}

// notify runs after commit on a fresh context so a cancelled request
// cannot suppress it. Failures are logged and swallowed.
func (s *BookingService) notify(t EventType, r Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), s.policy.NotifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, newEvent(t, r, s.now())); err != nil {
		log.Printf("[Booking] notification %s for %s failed: %v", t, r.BookingNumber, err)
	}
}

// writeError maps storage-level overlap to the same error a normal
// availability conflict produces.
func (s *BookingService) writeError(roomID RoomID, stay generic.Interval, err error) error {
	if errors.Is(err, generic.ErrOverlap) {
		return &UnavailableError{RoomID: roomID, Stay: stay, Reason: "a concurrent booking took the room"}
	}
	return err
}

func ensureCalendarFree(ctx context.Context, store Store, roomID RoomID, stay generic.Interval) error {
	blocking, err := store.ListBlocking(ctx, roomID, stay)
	if err != nil {
		return fmt.Errorf("failed to load reservations: %w", err)
	}
	for _, b := range blocking {
		if b.Status.Blocking() && b.Stay().Overlaps(stay) {
			return &UnavailableError{RoomID: roomID, Stay: stay, Reason: "overlaps booking " + b.BookingNumber}
		}
	}
	return nil
}

func codesMatch(stored, given string) bool {
	given = strings.ToUpper(strings.TrimSpace(given))
	return given != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
