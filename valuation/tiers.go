package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/warp/card-ledger/collection"
)

// Tier is a named unit-price bucket.
type Tier string

const (
	TierBulk     Tier = "bulk"
	TierCommon   Tier = "common"
	TierValuable Tier = "valuable"
	TierChase    Tier = "chase"
	TierPremium  Tier = "premium"
)

// TierBound is one rung of the ladder. A price belongs to the first rung
// whose Below it is under; Premium has no upper bound.
type TierBound struct {
	Tier  Tier            `json:"tier"`
	Below decimal.Decimal `json:"below"`
}

var ladder = []TierBound{
	{TierBulk, decimal.RequireFromString("0.50")},
	{TierCommon, decimal.RequireFromString("2.00")},
	{TierValuable, decimal.RequireFromString("10.00")},
	{TierChase, decimal.RequireFromString("50.00")},
}

// Tiers lists every tier from cheapest to most expensive.
func Tiers() []Tier {
	return []Tier{TierBulk, TierCommon, TierValuable, TierChase, TierPremium}
}

// Ladder returns a copy of the tier thresholds, excluding the open-ended
// premium tier.
func Ladder() []TierBound {
	return append([]TierBound(nil), ladder...)
}

// TierFor returns the tier of a unit price. ok is false for unpriced values.
func TierFor(price float64) (Tier, bool) {
	d, ok := toPrice(price)
	if !ok {
		return "", false
	}
	return tierOf(d), true
}

func tierOf(price decimal.Decimal) Tier {
	for _, b := range ladder {
		if price.LessThan(b.Below) {
			return b.Tier
		}
	}
	return TierPremium
}

// CountByTier sums quantities of priced entries per tier. Every tier is
// present in the result, with zero when empty.
func CountByTier(c collection.Collection, prices PriceMap) map[Tier]int {
	counts := make(map[Tier]int, len(ladder)+1)
	for _, t := range Tiers() {
		counts[t] = 0
	}
	for _, e := range c {
		if price, ok := prices.Lookup(e.CardID); ok {
			counts[tierOf(price)] += e.Quantity
		}
	}
	return counts
}
