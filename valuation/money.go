/*
Package valuation prices a collection.

PURPOSE:
  Given a collection snapshot and a PriceMap (card id to market price per
  copy), compute the collection's total value, its most valuable cards, a
  per-set breakdown, price statistics and a price-tier histogram.

PRECISION:
  Prices arrive as float64 from catalog sources and are converted to
  decimal.Decimal on entry. All sums are carried at full precision and
  rounded once, to cents, half away from zero:

    total = round2( Σ price(e.CardID) × e.Quantity )

  Rounding each line first would drift on large collections.

UNPRICED CARDS:
  A card is unpriced when it is absent from the PriceMap or its price is
  zero, negative, NaN or infinite. Unpriced entries contribute nothing to
  value and are counted separately.

SEE ALSO:
  - value.go: CalculateValue, MostValuable, ValueBySet
  - stats.go: average, median, range and coverage
  - tiers.go: price tier ladder
*/
package valuation

import (
	"encoding/json"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/warp/card-ledger/card"
)

// =============================================================================
// PRICES
// =============================================================================

// PriceMap maps a card id to its market price for one copy.
type PriceMap map[card.ID]float64

// Lookup returns the usable price for id.
func (p PriceMap) Lookup(id card.ID) (decimal.Decimal, bool) {
	price, ok := p[id]
	if !ok {
		return decimal.Zero, false
	}
	return toPrice(price)
}

func toPrice(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// cents rounds half away from zero to two decimal places.
func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// =============================================================================
// MONEY
// =============================================================================

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = money.USD

// Money is an amount in a currency, rounded to the currency's minor unit.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney rounds amount to the currency's fraction digits.
func NewMoney(amount decimal.Decimal, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	m := Money{Currency: currency}
	m.Amount = amount.Round(int32(m.currency().Fraction))
	return m
}

// IsKnownCurrency reports whether code is an ISO 4217 code go-money can format.
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

func (m Money) currency() money.Currency {
	// money.New never returns a nil currency
	return *money.New(0, m.Currency).Currency()
}

// String formats the amount with the currency's symbol and separators,
// e.g. "$1,234.50".
func (m Money) String() string {
	cur := m.currency()
	minor := m.Amount.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.Round(0).IntPart())
}

// Float64 returns the amount as a float for display layers.
func (m Money) Float64() float64 {
	return m.Amount.InexactFloat64()
}

// MarshalJSON renders {"amount": 90.00, "currency": "USD", "display": "$90.00"}.
func (m Money) MarshalJSON() ([]byte, error) {
	cur := m.currency()
	return json.Marshal(struct {
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
		Display  string      `json:"display"`
	}{
		Amount:   json.Number(m.Amount.StringFixed(int32(cur.Fraction))),
		Currency: m.Currency,
		Display:  m.String(),
	})
}
