/*
Package factory provides JSON to Go conversion for the booking engine.

PURPOSE:
  Converts JSON definitions into hotel.Policy and hotel.Room values. This
  enables rate and catalog configuration without code changes: revenue
  managers edit JSON, the factory builds validated Go structs.

WHY JSON?
  - Non-developers can modify tax, fee tiers and rooms
  - Easy integration with an admin UI
  - Version control for catalog and policy definitions

POLICY JSON SCHEMA:
  Every field is optional; missing fields keep hotel.DefaultPolicy values.
  {
    "currency": "USD",
    "tax_percent": 12,
    "season_basis": "stay",
    "min_cancel_notice_hours": 24,
    "no_show_grace_hours": 24,
    "payment_timeout_seconds": 10,
    "cancellation_fees": [
      {"more_than_hours": 48, "percent": 0},
      {"more_than_hours": 24, "percent": 25}
    ],
    "otherwise_percent": 50
  }

USAGE:
  factory := NewPolicyFactory()
  policy, err := factory.ParsePolicy(jsonString)

  svc := hotel.NewBookingService(store, locker, hotel.WithPolicy(policy))

SEE ALSO:
  - hotel/policy.go: Policy type definition
  - hotel/cancellation.go: FeeSchedule
  - factory/catalog.go: Room catalog import
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a policy.
type PolicyJSON struct {
	Currency              string           `json:"currency,omitempty"`
	TaxPercent            *decimal.Decimal `json:"tax_percent,omitempty"`
	SeasonBasis           string           `json:"season_basis,omitempty"`
	MinCancelNoticeHours  *float64         `json:"min_cancel_notice_hours,omitempty"`
	NoShowGraceHours      *float64         `json:"no_show_grace_hours,omitempty"`
	PaymentTimeoutSeconds *float64         `json:"payment_timeout_seconds,omitempty"`
	CancellationFees      []FeeTierJSON    `json:"cancellation_fees,omitempty"`
	OtherwisePercent      *decimal.Decimal `json:"otherwise_percent,omitempty"`
}

// FeeTierJSON charges Percent of the total when notice exceeds MoreThanHours.
type FeeTierJSON struct {
	MoreThanHours float64         `json:"more_than_hours"`
	Percent       decimal.Decimal `json:"percent"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to hotel.Policy.
type PolicyFactory struct {
	// Base supplies values for fields the JSON omits.
	Base hotel.Policy
}

// NewPolicyFactory creates a factory that overlays JSON on the default policy.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{Base: hotel.DefaultPolicy()}
}

// ParsePolicy parses a JSON string into a validated Policy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (hotel.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return hotel.Policy{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to hotel.Policy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (hotel.Policy, error) {
	p := f.Base

	if pj.Currency != "" {
		p.Currency = generic.Currency(pj.Currency)
	}
	if pj.TaxPercent != nil {
		p.TaxRate = percent(*pj.TaxPercent)
	}
	if pj.SeasonBasis != "" {
		basis, err := hotel.ParseSeasonBasis(pj.SeasonBasis)
		if err != nil {
			return hotel.Policy{}, err
		}
		p.SeasonBasis = basis
	}
	if pj.MinCancelNoticeHours != nil {
		p.MinCancelNotice = hours(*pj.MinCancelNoticeHours)
	}
	if pj.NoShowGraceHours != nil {
		p.NoShowGrace = hours(*pj.NoShowGraceHours)
	}
	if pj.PaymentTimeoutSeconds != nil {
		p.PaymentTimeout = time.Duration(*pj.PaymentTimeoutSeconds * float64(time.Second))
	}

	// Fee tiers replace the default schedule as a whole
	if len(pj.CancellationFees) > 0 {
		p.Fees = hotel.FeeSchedule{Otherwise: p.Fees.Otherwise}
		for _, t := range pj.CancellationFees {
			p.Fees.Tiers = append(p.Fees.Tiers, hotel.FeeTier{
				MoreThan: hours(t.MoreThanHours),
				Share:    percent(t.Percent),
			})
		}
	}
	if pj.OtherwisePercent != nil {
		p.Fees.Otherwise = percent(*pj.OtherwisePercent)
	}

	if err := p.Validate(); err != nil {
		return hotel.Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// ToJSON converts a Policy to PolicyJSON.
func (f *PolicyFactory) ToJSON(p hotel.Policy) PolicyJSON {
	tax := p.TaxRate.Value.Shift(2)
	otherwise := p.Fees.Otherwise.Value.Shift(2)
	notice := p.MinCancelNotice.Hours()
	grace := p.NoShowGrace.Hours()
	timeout := p.PaymentTimeout.Seconds()

	pj := PolicyJSON{
		Currency:              string(p.Currency),
		TaxPercent:            &tax,
		SeasonBasis:           string(p.SeasonBasis),
		MinCancelNoticeHours:  &notice,
		NoShowGraceHours:      &grace,
		PaymentTimeoutSeconds: &timeout,
		OtherwisePercent:      &otherwise,
	}
	for _, t := range p.Fees.Tiers {
		pj.CancellationFees = append(pj.CancellationFees, FeeTierJSON{
			MoreThanHours: t.MoreThan.Hours(),
			Percent:       t.Share.Value.Shift(2),
		})
	}
	return pj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func percent(d decimal.Decimal) generic.Rate {
	return generic.Rate{Value: d.Shift(-2)}
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
