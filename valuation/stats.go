package valuation

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/warp/card-ledger/collection"
)

// Stats describes the price distribution of a collection. Pointer fields
// are nil when no entry is priced.
type Stats struct {
	Average  *decimal.Decimal `json:"average"`
	Median   *decimal.Decimal `json:"median"`
	Min      *decimal.Decimal `json:"min"`
	Max      *decimal.Decimal `json:"max"`
	Coverage decimal.Decimal  `json:"coverage"`
}

// Statistics computes Stats for c.
//
// Average is the unrounded total value divided by the number of priced
// entries. Median is taken over unit prices repeated by quantity, so three
// copies of a card put its price in the sample three times. Coverage is the percentage of
// entries that are priced.
func Statistics(c collection.Collection, prices PriceMap) Stats {
	var s Stats

	s.Coverage = decimal.Zero
	if len(c) == 0 {
		return s
	}

	value := CalculateValue(c, prices)
	s.Coverage = cents(decimal.NewFromInt(int64(value.ValuedCount)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(len(c)))))
	if value.ValuedCount == 0 {
		return s
	}

	var (
		lines []pricedLine
		sum   = decimal.Zero
	)
	for _, e := range c {
		price, ok := prices.Lookup(e.CardID)
		if !ok {
			continue
		}
		lines = append(lines, pricedLine{price: price, quantity: e.Quantity})
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	slices.SortStableFunc(lines, func(a, b pricedLine) int { return a.price.Cmp(b.price) })

	avg := cents(sum.Div(decimal.NewFromInt(int64(value.ValuedCount))))
	med := cents(median(lines))
	lo := cents(lines[0].price)
	hi := cents(lines[len(lines)-1].price)

	s.Average, s.Median, s.Min, s.Max = &avg, &med, &lo, &hi
	return s
}

// pricedLine is one priced entry: its unit price stands for quantity copies.
type pricedLine struct {
	price    decimal.Decimal
	quantity int
}

// median expects lines sorted by price, non-empty, with positive quantities.
// It finds the middle copy (or the two middle copies) by walking the running
// quantity total instead of expanding the sample.
func median(lines []pricedLine) decimal.Decimal {
	var n int64
	for _, l := range lines {
		n += int64(l.quantity)
	}
	if n%2 == 1 {
		return copyAt(lines, n/2)
	}
	return copyAt(lines, n/2-1).Add(copyAt(lines, n/2)).Div(decimal.NewFromInt(2))
}

// copyAt returns the price of the copy at zero-based position pos.
func copyAt(lines []pricedLine, pos int64) decimal.Decimal {
	var seen int64
	for _, l := range lines {
		seen += int64(l.quantity)
		if pos < seen {
			return l.price
		}
	}
	return lines[len(lines)-1].price
}
