package valuation

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
)

// DefaultTopLimit is the MostValuable list length when limit is not positive.
const DefaultTopLimit = 10

// =============================================================================
// TOTAL VALUE
// =============================================================================

// Value is the priced total of a collection. ValuedCount and UnvaluedCount
// count entries; TotalCount counts copies.
type Value struct {
	TotalValue    decimal.Decimal `json:"total_value"`
	ValuedCount   int             `json:"valued_count"`
	UnvaluedCount int             `json:"unvalued_count"`
	TotalCount    int             `json:"total_count"`
}

// Total returns TotalValue as Money.
func (v Value) Total(currency string) Money {
	return NewMoney(v.TotalValue, currency)
}

// CalculateValue sums price × quantity over every priced entry.
func CalculateValue(c collection.Collection, prices PriceMap) Value {
	var v Value
	sum := decimal.Zero
	for _, e := range c {
		v.TotalCount += e.Quantity
		price, ok := prices.Lookup(e.CardID)
		if !ok {
			v.UnvaluedCount++
			continue
		}
		v.ValuedCount++
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	v.TotalValue = cents(sum)
	return v
}

// =============================================================================
// MOST VALUABLE
// =============================================================================

// CardData is display metadata plus price for one card.
type CardData struct {
	Name     string  `json:"name"`
	SetName  string  `json:"set_name"`
	ImageURL string  `json:"image_url"`
	Rarity   string  `json:"rarity"`
	Price    float64 `json:"price"`
}

// CardDataMap maps card ids to their catalog data.
type CardDataMap map[card.ID]CardData

// Prices extracts the PriceMap from catalog data.
func (m CardDataMap) Prices() PriceMap {
	prices := make(PriceMap, len(m))
	for id, d := range m {
		prices[id] = d.Price
	}
	return prices
}

// RankedCard is one entry joined with its catalog data and value.
type RankedCard struct {
	collection.Entry
	Name       string          `json:"name"`
	SetName    string          `json:"set_name"`
	ImageURL   string          `json:"image_url"`
	Rarity     string          `json:"rarity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// MostValuable ranks priced entries by unit price × quantity, highest first.
// Entries of equal value keep their collection order. Unpriced entries are
// left out.
func MostValuable(c collection.Collection, cards CardDataMap, limit int) []RankedCard {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	type candidate struct {
		card  RankedCard
		exact decimal.Decimal
	}
	candidates := make([]candidate, 0, len(c))
	for _, e := range c {
		data := cards[e.CardID]
		price, ok := toPrice(data.Price)
		if !ok {
			continue
		}
		exact := price.Mul(decimal.NewFromInt(int64(e.Quantity)))
		candidates = append(candidates, candidate{
			card: RankedCard{
				Entry:      e,
				Name:       data.Name,
				SetName:    data.SetName,
				ImageURL:   data.ImageURL,
				Rarity:     data.Rarity,
				UnitPrice:  price,
				TotalValue: cents(exact),
			},
			exact: exact,
		})
	}

	// Rank on the unrounded line value; rounding is for display only.
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return b.exact.Cmp(a.exact)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	ranked := make([]RankedCard, len(candidates))
	for i, cand := range candidates {
		ranked[i] = cand.card
	}
	return ranked
}

// =============================================================================
// VALUE BY SET
// =============================================================================

// SetValue is the priced total of one set.
type SetValue struct {
	SetID       string          `json:"set_id"`
	SetName     string          `json:"set_name"`
	Value       decimal.Decimal `json:"value"`
	ValuedCount int             `json:"valued_count"`
	Quantity    int             `json:"quantity"`
}

// ValueBySet partitions c by set and prices each set. Sets are ordered by
// value descending, then set id ascending. setNames may be nil; a missing
// name falls back to the set id.
func ValueBySet(c collection.Collection, prices PriceMap, setNames map[string]string) []SetValue {
	sums := make(map[string]decimal.Decimal)
	index := make(map[string]int)
	var sets []SetValue

	for _, e := range c {
		setID := card.ExtractSetID(e.CardID)
		i, ok := index[setID]
		if !ok {
			name := setNames[setID]
			if name == "" {
				name = setID
			}
			i = len(sets)
			index[setID] = i
			sets = append(sets, SetValue{SetID: setID, SetName: name})
			sums[setID] = decimal.Zero
		}
		sets[i].Quantity += e.Quantity
		if price, ok := prices.Lookup(e.CardID); ok {
			sets[i].ValuedCount++
			sums[setID] = sums[setID].Add(price.Mul(decimal.NewFromInt(int64(e.Quantity))))
		}
	}

	for i := range sets {
		sets[i].Value = cents(sums[sets[i].SetID])
	}
	slices.SortFunc(sets, func(a, b SetValue) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.SetID, b.SetID)
	})
	return sets
}
