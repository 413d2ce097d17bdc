package hotel

import (
	"sort"
	"time"

	"github.com/warp/booking-engine/generic"
)

// =============================================================================
// CANCELLATION FEES
// =============================================================================

// FeeTier charges Share of the total when notice is strictly more than MoreThan.
type FeeTier struct {
	MoreThan time.Duration `json:"more_than"`
	Share    generic.Rate  `json:"share"`
}

// FeeSchedule maps notice before check-in to a fee. Tiers are evaluated
// from the longest notice down; Otherwise applies when none matches.
type FeeSchedule struct {
	Tiers     []FeeTier    `json:"tiers"`
	Otherwise generic.Rate `json:"otherwise"`
}

// DefaultFeeSchedule: more than 48h free, more than 24h 25%, else 50%.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Tiers: []FeeTier{
			{MoreThan: 48 * time.Hour, Share: generic.Percent(0)},
			{MoreThan: 24 * time.Hour, Share: generic.Percent(25)},
		},
		Otherwise: generic.Percent(50),
	}
}

func (s FeeSchedule) Validate() error {
	for _, t := range s.Tiers {
		if !validShare(t.Share) {
			return &ValidationError{Field: "fees", Reason: "share must be between 0 and 1"}
		}
	}
	if !validShare(s.Otherwise) {
		return &ValidationError{Field: "fees", Reason: "share must be between 0 and 1"}
	}
	return nil
}

func validShare(r generic.Rate) bool {
	return !r.Value.IsNegative() && !r.Value.GreaterThan(generic.Percent(100).Value)
}

// Share returns the fraction of the total kept for the given notice.
func (s FeeSchedule) Share(notice time.Duration) generic.Rate {
	tiers := make([]FeeTier, len(s.Tiers))
	copy(tiers, s.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MoreThan > tiers[j].MoreThan })

	for _, t := range tiers {
		if notice > t.MoreThan {
			return t.Share
		}
	}
	return s.Otherwise
}

// Fee returns the fee for total at the given notice, rounded to the cent.
func (s FeeSchedule) Fee(total generic.Money, notice time.Duration) generic.Money {
	return total.Mul(s.Share(notice)).Round()
}

// Split returns fee and refund; refund = total - fee.
func (s FeeSchedule) Split(total generic.Money, notice time.Duration) (fee, refund generic.Money) {
	fee = s.Fee(total, notice)
	return fee, total.Sub(fee)
}

// CancellationFee applies the default schedule to a notice in hours.
func CancellationFee(total generic.Money, hoursUntilCheckIn float64) generic.Money {
	return DefaultFeeSchedule().Fee(total, time.Duration(hoursUntilCheckIn*float64(time.Hour)))
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

// CheckCancellable applies the eligibility guard. Pending bookings can be
// cancelled until check-in. Confirmed bookings need more than
// minNotice before check-in.
func CheckCancellable(r Reservation, now time.Time, minNotice time.Duration) error {
	notice := r.CheckIn.Sub(now)
	switch r.Status {
	case StatusPending:
		if notice <= 0 {
			return &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusCancelled,
				Reason: "check-in time has passed"}
		}
		return nil
	case StatusConfirmed:
		if notice <= minNotice {
			return &CancellationWindowError{
				BookingNumber: r.BookingNumber,
				HoursNotice:   notice.Hours(),
				MinHours:      minNotice.Hours(),
			}
		}
		return nil
	default:
		return &TransitionError{ReservationID: r.ID, From: r.Status, To: StatusCancelled}
	}
}
