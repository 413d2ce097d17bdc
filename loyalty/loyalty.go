/*
Package loyalty tracks guest statistics and loyalty tiers.

PURPOSE:
  A guest earns credit only when a stay is actually paid for. Each paid
  confirmation adds one stay, adds the total to lifetime spend, awards
  points and may promote the guest to a higher tier. Pending requests
  never earn anything.

TIERS:
  bronze:   Default
  silver:   3 stays or 1,000 lifetime spend
  gold:     10 stays or 5,000 lifetime spend
  platinum: 25 stays or 15,000 lifetime spend

POINTS:
  10 points per whole currency unit spent, multiplied by the bonus of the
  tier the guest held before the stay (silver 1.1x, gold 1.25x,
  platinum 1.5x). Fractions are truncated.

EXAMPLE:
  program := loyalty.DefaultProgram()
  stats = program.RecordStay(stats, generic.NewMoney("336", generic.USD))
  // stats.Stays == 1, stats.Points == 3360, stats.Tier == bronze

SEE ALSO:
  - hotel/lifecycle.go: Calls RecordStay on paid confirmation
*/
package loyalty

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/generic"
)

// =============================================================================
// TIERS
// =============================================================================

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case "", TierBronze:
		return TierBronze, nil
	case TierSilver, TierGold, TierPlatinum:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown loyalty tier %q", s)
}

// Threshold promotes a guest to Tier once either bound is reached.
type Threshold struct {
	Tier     Tier            `json:"tier"`
	MinStays int             `json:"min_stays"`
	MinSpend decimal.Decimal `json:"min_spend"`
	Bonus    decimal.Decimal `json:"bonus"`
}

// =============================================================================
// STATS
// =============================================================================

// Stats is what the engine remembers about a guest.
type Stats struct {
	Stays         int           `json:"stays"`
	LifetimeSpend generic.Money `json:"lifetime_spend"`
	Points        int64         `json:"points"`
	Tier          Tier          `json:"tier"`
}

// =============================================================================
// PROGRAM
// =============================================================================

type Program struct {
	PointsPerUnit int64
	// Thresholds ordered from lowest to highest tier.
	Thresholds []Threshold
}

func DefaultProgram() Program {
	return Program{
		PointsPerUnit: 10,
		Thresholds: []Threshold{
			{Tier: TierSilver, MinStays: 3, MinSpend: decimal.NewFromInt(1000), Bonus: decimal.RequireFromString("1.1")},
			{Tier: TierGold, MinStays: 10, MinSpend: decimal.NewFromInt(5000), Bonus: decimal.RequireFromString("1.25")},
			{Tier: TierPlatinum, MinStays: 25, MinSpend: decimal.NewFromInt(15000), Bonus: decimal.RequireFromString("1.5")},
		},
	}
}

// TierFor returns the highest tier whose threshold is met.
func (p Program) TierFor(stays int, spend generic.Money) Tier {
	tier := TierBronze
	for _, t := range p.Thresholds {
		if stays >= t.MinStays || spend.Value.GreaterThanOrEqual(t.MinSpend) {
			tier = t.Tier
		}
	}
	return tier
}

func (p Program) bonus(tier Tier) decimal.Decimal {
	for _, t := range p.Thresholds {
		if t.Tier == tier {
			return t.Bonus
		}
	}
	return decimal.NewFromInt(1)
}

// PointsFor computes the points earned for a paid amount at the given tier.
func (p Program) PointsFor(amount generic.Money, tier Tier) int64 {
	if !amount.IsPositive() {
		return 0
	}
	pts := amount.Value.Floor().
		Mul(decimal.NewFromInt(p.PointsPerUnit)).
		Mul(p.bonus(tier)).
		Truncate(0)
	return pts.IntPart()
}

// RecordStay returns stats updated for one paid stay of the given amount.
// The input is not modified.
func (p Program) RecordStay(s Stats, paid generic.Money) Stats {
	if s.Tier == "" {
		s.Tier = TierBronze
	}
	earned := p.PointsFor(paid, s.Tier)

	s.Stays++
	s.LifetimeSpend = s.LifetimeSpend.Add(paid)
	s.Points += earned
	s.Tier = p.TierFor(s.Stays, s.LifetimeSpend)
	return s
}
