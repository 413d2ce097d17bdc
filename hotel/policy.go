package hotel

import (
	"fmt"
	"time"

	"github.com/warp/booking-engine/generic"
)

// =============================================================================
// POLICY - Tunable rules of the engine
// =============================================================================

// SeasonBasis selects which date decides the seasonal rate.
type SeasonBasis string

const (
	// SeasonBasisStay evaluates seasons on the check-in date.
	SeasonBasisStay SeasonBasis = "stay"
	// SeasonBasisBooking evaluates seasons on the booking date, so a summer
	// stay booked in winter pays the winter rate.
	SeasonBasisBooking SeasonBasis = "booking"
)

func ParseSeasonBasis(s string) (SeasonBasis, error) {
	switch SeasonBasis(s) {
	case "", SeasonBasisStay:
		return SeasonBasisStay, nil
	case SeasonBasisBooking:
		return SeasonBasisBooking, nil
	}
	return "", fmt.Errorf("unknown season basis %q", s)
}

// Policy holds every rate, window and timeout the BookingService applies.
type Policy struct {
	Currency    generic.Currency
	TaxRate     generic.Rate
	SeasonBasis SeasonBasis
	Fees        FeeSchedule

	// MinCancelNotice: confirmed bookings may only be cancelled with more
	// notice than this.
	MinCancelNotice time.Duration

	// NoShowGrace is how long after check-in a booking may be marked no-show.
	NoShowGrace time.Duration

	PaymentTimeout time.Duration
	NotifyTimeout  time.Duration

	// CodeAttempts bounds booking-number regeneration on collision.
	CodeAttempts int
}

func DefaultPolicy() Policy {
	return Policy{
		Currency:        generic.USD,
		TaxRate:         generic.Percent(12),
		SeasonBasis:     SeasonBasisStay,
		Fees:            DefaultFeeSchedule(),
		MinCancelNotice: 24 * time.Hour,
		NoShowGrace:     24 * time.Hour,
		PaymentTimeout:  10 * time.Second,
		NotifyTimeout:   3 * time.Second,
		CodeAttempts:    5,
	}
}

func (p Policy) Validate() error {
	if p.Currency == "" {
		return &ValidationError{Field: "currency", Reason: "required"}
	}
	if p.TaxRate.Value.IsNegative() {
		return &ValidationError{Field: "tax_rate", Reason: "must not be negative"}
	}
	if _, err := ParseSeasonBasis(string(p.SeasonBasis)); err != nil {
		return &ValidationError{Field: "season_basis", Reason: err.Error()}
	}
	if err := p.Fees.Validate(); err != nil {
		return err
	}
	if p.MinCancelNotice < 0 || p.NoShowGrace < 0 {
		return &ValidationError{Field: "windows", Reason: "must not be negative"}
	}
	if p.PaymentTimeout <= 0 {
		return &ValidationError{Field: "payment_timeout", Reason: "must be positive"}
	}
	if p.CodeAttempts < 1 {
		return &ValidationError{Field: "code_attempts", Reason: "must be at least 1"}
	}
	return nil
}

func (p Policy) pricer() Pricer {
	return Pricer{TaxRate: p.TaxRate, Basis: p.SeasonBasis}
}
