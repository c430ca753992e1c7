package trade_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/trade"
	"pgregory.net/rapid"
)

func lineGen() *rapid.Generator[trade.Line] {
	return rapid.Custom(func(t *rapid.T) trade.Line {
		return trade.Line{
			CardID:   card.ID(fmt.Sprintf("sv1-%d", rapid.IntRange(1, 4).Draw(t, "num"))),
			Quantity: rapid.IntRange(1, 5).Draw(t, "qty"),
			Variant:  rapid.SampledFrom([]card.Variant{"", card.VariantNormal, card.VariantHolofoil}).Draw(t, "variant"),
		}
	})
}

func TestProperty_NormalizeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOfN(lineGen(), 0, 10).Draw(t, "lines")

		once := trade.Normalize(lines)
		twice := trade.Normalize(once)

		if !assert.ObjectsAreEqual(once, twice) {
			t.Fatalf("normalize not idempotent: %v vs %v", once, twice)
		}
		if len(trade.FindDuplicates(once)) != 0 {
			t.Fatalf("normalized lines still contain duplicates: %v", once)
		}
	})
}

func TestProperty_ValidTradeConservesQuantity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var c collection.Collection
		for _, l := range rapid.SliceOfN(lineGen(), 0, 8).Draw(t, "owned") {
			c, _, _ = collection.Add(c, l.CardID, l.Quantity, l.Variant)
		}
		p := trade.Proposal{
			Received: rapid.SliceOfN(lineGen(), 0, 4).Draw(t, "received"),
		}
		for i, e := range c {
			if rapid.Bool().Draw(t, fmt.Sprintf("give%d", i)) {
				p.Given = append(p.Given, trade.Line{
					CardID:   e.CardID,
					Quantity: rapid.IntRange(1, e.Quantity).Draw(t, fmt.Sprintf("giveQty%d", i)),
					Variant:  e.Variant,
				})
			}
		}
		if len(p.Given) == 0 && len(p.Received) == 0 {
			return
		}
		if r := trade.Validate(c, p); !r.Valid {
			t.Fatalf("owned lines rejected: %v", r.Errors)
		}

		want := make(map[collection.Key]int)
		for _, e := range c {
			want[e.Key()] += e.Quantity
		}
		for _, l := range p.Given {
			want[collection.Key{CardID: l.CardID, Variant: card.NormalizeVariant(l.Variant)}] -= l.Quantity
		}
		for _, l := range p.Received {
			want[collection.Key{CardID: l.CardID, Variant: card.NormalizeVariant(l.Variant)}] += l.Quantity
		}
		for k, q := range want {
			if q <= 0 {
				delete(want, k)
			}
		}

		got := make(map[collection.Key]int)
		for _, e := range trade.Apply(c, p) {
			got[e.Key()] += e.Quantity
		}

		if !assert.ObjectsAreEqual(want, got) {
			t.Fatalf("quantity not conserved: want %v, got %v", want, got)
		}
	})
}
