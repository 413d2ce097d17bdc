/*
Package generic provides the domain-agnostic building blocks of the booking engine.

PURPOSE:
  This package contains the value types every other package leans on:
  money that never drifts, half-open time intervals that decide overlap,
  and the error kinds the whole engine reports. It knows nothing about
  rooms or reservations.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A fixed-point decimal amount with a currency (e.g., 336.00 USD)
  - Currency: ISO-4217 code
  - Rate: A dimensionless decimal multiplier (tax rate, seasonal multiplier, fee share)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal, never float64, for every amount
  2. Late rounding: Intermediate results stay exact, only totals are rounded
  3. Type Safety: Money carries its currency so mixed-currency math panics early

USAGE:
  rate := generic.NewMoney("100", generic.USD)
  subtotal := rate.MulInt(3)                    // 300
  tax := subtotal.Mul(generic.MustRate("0.12")) // 36
  total := subtotal.Add(tax).Round()            // 336.00

SEE ALSO:
  - interval.go: Half-open stay intervals and calendar-day helpers
  - errors.go: Error kinds shared by all packages
*/
package generic

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY
// =============================================================================

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// =============================================================================
// MONEY - Fixed-point amount with currency
// =============================================================================

// Money is an exact decimal amount. The zero value is 0 with no currency,
// which adds cleanly to any currency.
type Money struct {
	Value    decimal.Decimal
	Currency Currency
}

// NewMoney parses a decimal string. Invalid input yields zero, so callers
// validating user input should use ParseMoney.
func NewMoney(value string, currency Currency) Money {
	return Money{Value: MustParseDecimal(value), Currency: currency}
}

// ParseMoney parses a decimal string and reports malformed input.
func ParseMoney(value string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return Money{Value: d, Currency: currency}, nil
}

func NewMoneyFromInt(value int64, currency Currency) Money {
	return Money{Value: decimal.NewFromInt(value), Currency: currency}
}

func Zero(currency Currency) Money { return Money{Value: decimal.Zero, Currency: currency} }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (m Money) Add(o Money) Money { return Money{Value: m.Value.Add(o.Value), Currency: m.merge(o)} }
func (m Money) Sub(o Money) Money { return Money{Value: m.Value.Sub(o.Value), Currency: m.merge(o)} }
func (m Money) Mul(r Rate) Money  { return Money{Value: m.Value.Mul(r.Value), Currency: m.Currency} }
func (m Money) MulInt(n int) Money {
	return Money{Value: m.Value.Mul(decimal.NewFromInt(int64(n))), Currency: m.Currency}
}
func (m Money) DivInt(n int) Money {
	if n == 0 {
		return Zero(m.Currency)
	}
	return Money{Value: m.Value.Div(decimal.NewFromInt(int64(n))), Currency: m.Currency}
}
func (m Money) Neg() Money              { return Money{Value: m.Value.Neg(), Currency: m.Currency} }
func (m Money) IsZero() bool            { return m.Value.IsZero() }
func (m Money) IsNegative() bool        { return m.Value.IsNegative() }
func (m Money) IsPositive() bool        { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool      { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }

// Round applies banker's rounding to two decimal places.
func (m Money) Round() Money {
	return Money{Value: m.Value.RoundBank(2), Currency: m.Currency}
}

// String renders the amount with two decimals, e.g. "336.00 USD".
func (m Money) String() string {
	if m.Currency == "" {
		return m.Value.StringFixed(2)
	}
	return m.Value.StringFixed(2) + " " + string(m.Currency)
}

func (m Money) merge(o Money) Currency {
	switch {
	case m.Currency == "":
		return o.Currency
	case o.Currency == "" || o.Currency == m.Currency:
		return m.Currency
	default:
		panic(fmt.Sprintf("currency mismatch: %s vs %s", m.Currency, o.Currency))
	}
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency,omitempty"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Value.StringFixed(2), Currency: m.Currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return err
	}
	m.Value, m.Currency = d, raw.Currency
	return nil
}

// =============================================================================
// RATE - Dimensionless multiplier
// =============================================================================

type Rate struct {
	Value decimal.Decimal
}

func MustRate(s string) Rate { return Rate{Value: MustParseDecimal(s)} }

func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	return Rate{Value: d}, nil
}

// Percent builds a rate from a whole percentage (25 -> 0.25).
func Percent(p int64) Rate { return Rate{Value: decimal.New(p, -2)} }

func (r Rate) IsZero() bool     { return r.Value.IsZero() }
func (r Rate) IsPositive() bool { return r.Value.IsPositive() }
func (r Rate) String() string   { return r.Value.String() }

func (r Rate) MarshalJSON() ([]byte, error) { return json.Marshal(r.Value.String()) }

func (r *Rate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare numbers are accepted too: 0.12
		s = string(data)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	r.Value = d
	return nil
}
