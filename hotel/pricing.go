/*
pricing.go - Nightly rate, tax and total for a stay

PURPOSE:
  Computes the pricing snapshot frozen onto a reservation at creation.
  Price is a pure function: the same room snapshot, stay, extras and
  evaluation instant always yield the same total to the cent.

FORMULA:
  nights      = ceil((checkOut - checkIn) / 24h), at least 1
  nightlyRate = base * multiplier   if exactly one season contains the basis date
              = base                otherwise
  subtotal    = nightlyRate * nights
  tax         = subtotal * taxRate
  total       = round(subtotal + tax + fees - discounts)

  Only the total is rounded (banker's, 2dp). Subtotal and tax keep full
  precision in the snapshot and render with two decimals.

SEASON BASIS:
  stay:    the check-in date decides the season
  booking: the instant the price is computed decides the season

EXAMPLE:
  base 100, 3 nights, tax 12%:
    subtotal 300, tax 36, total 336
*/
package hotel

import (
	"time"

	"github.com/warp/booking-engine/generic"
)

// Extras are optional adjustments applied after tax.
type Extras struct {
	Fees      generic.Money `json:"fees"`
	Discounts generic.Money `json:"discounts"`
}

type Pricer struct {
	TaxRate generic.Rate
	Basis   SeasonBasis
}

// Price computes the snapshot for room over stay. now is only consulted
// when Basis is SeasonBasisBooking.
func (p Pricer) Price(room Room, stay generic.Interval, extras Extras, now time.Time) (Pricing, error) {
	nights := stay.Nights()
	if nights < 1 {
		return Pricing{}, &ValidationError{Field: "check_out", Reason: "must be after check_in"}
	}
	currency := room.BasePrice.Currency
	if err := sameCurrency(currency, extras.Fees, extras.Discounts); err != nil {
		return Pricing{}, err
	}
	if extras.Fees.IsNegative() {
		return Pricing{}, &ValidationError{Field: "fees", Reason: "must not be negative"}
	}
	if extras.Discounts.IsNegative() {
		return Pricing{}, &ValidationError{Field: "discounts", Reason: "must not be negative"}
	}

	basisDate := stay.Start
	if p.Basis == SeasonBasisBooking {
		basisDate = now
	}

	nightly := room.BasePrice
	seasonName := ""
	if season, ok := SeasonFor(room.Seasons, basisDate); ok {
		nightly = room.BasePrice.Mul(season.Multiplier)
		seasonName = season.Name
	}

	fees := generic.Zero(currency).Add(extras.Fees)
	discounts := generic.Zero(currency).Add(extras.Discounts)

	subtotal := nightly.MulInt(nights)
	tax := subtotal.Mul(p.TaxRate)
	total := subtotal.Add(tax).Add(fees).Sub(discounts).Round()

	if total.IsNegative() {
		return Pricing{}, &ValidationError{Field: "discounts", Reason: "exceed the amount due"}
	}

	return Pricing{
		NightlyRate: nightly,
		Nights:      nights,
		Subtotal:    subtotal,
		TaxRate:     p.TaxRate,
		Tax:         tax,
		Fees:        fees,
		Discounts:   discounts,
		Total:       total,
		Season:      seasonName,
	}, nil
}

// SeasonFor returns the season containing date. Zero or several matches
// mean no override applies.
func SeasonFor(seasons []SeasonalRate, date time.Time) (SeasonalRate, bool) {
	var match SeasonalRate
	found := 0
	for _, s := range seasons {
		if s.Range().Contains(date) {
			match = s
			found++
		}
	}
	return match, found == 1
}

func sameCurrency(c generic.Currency, amounts ...generic.Money) error {
	for _, m := range amounts {
		if m.Currency != "" && m.Currency != c {
			return &ValidationError{Field: "currency", Reason: "extras must be in " + string(c)}
		}
	}
	return nil
}
