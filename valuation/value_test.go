package valuation_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/valuation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func entry(id string, qty int, v card.Variant) collection.Entry {
	return collection.Entry{CardID: card.ID(id), Quantity: qty, Variant: v}
}

// =============================================================================
// CALCULATE VALUE
// =============================================================================

func TestCalculateValue_Holofoil(t *testing.T) {
	// GIVEN: Two holofoil sv1-50 at 45.00
	// WHEN: Valuing the collection
	// THEN: 90.00 total, one valued entry, none unvalued

	v := valuation.CalculateValue(
		collection.Collection{entry("sv1-50", 2, card.VariantHolofoil)},
		valuation.PriceMap{"sv1-50": 45.00},
	)

	assertDecimal(t, "90.00", v.TotalValue)
	assert.Equal(t, 1, v.ValuedCount)
	assert.Equal(t, 0, v.UnvaluedCount)
	assert.Equal(t, 2, v.TotalCount)
}

func TestCalculateValue_UnpricedEntries(t *testing.T) {
	c := collection.Collection{
		entry("sv1-1", 1, ""),
		entry("sv1-2", 1, ""),
		entry("sv1-3", 1, ""),
		entry("sv1-4", 1, ""),
		entry("sv1-5", 3, ""),
	}
	prices := valuation.PriceMap{
		"sv1-2": 0,
		"sv1-3": math.NaN(),
		"sv1-4": -1,
		"sv1-5": 0.10,
	}

	v := valuation.CalculateValue(c, prices)

	assertDecimal(t, "0.30", v.TotalValue)
	assert.Equal(t, 1, v.ValuedCount)
	assert.Equal(t, 4, v.UnvaluedCount)
}

func TestCalculateValue_RoundsOnceAtTheEnd(t *testing.T) {
	// 3 × 0.005 rounded per line would be 3 × 0.01 = 0.03
	c := collection.Collection{
		entry("sv1-1", 1, ""),
		entry("sv1-2", 1, ""),
		entry("sv1-3", 1, ""),
	}
	prices := valuation.PriceMap{"sv1-1": 0.005, "sv1-2": 0.005, "sv1-3": 0.005}

	assertDecimal(t, "0.02", valuation.CalculateValue(c, prices).TotalValue)
}

func TestCalculateValue_Empty(t *testing.T) {
	v := valuation.CalculateValue(nil, nil)
	assert.True(t, v.TotalValue.IsZero())
	assert.Zero(t, v.TotalCount)
}

// =============================================================================
// MOST VALUABLE
// =============================================================================

func TestMostValuable_StableOrder(t *testing.T) {
	c := collection.Collection{
		entry("sv1-1", 1, ""),
		entry("sv1-2", 2, ""),
		entry("sv1-3", 1, card.VariantHolofoil),
		entry("sv1-4", 1, ""),
		entry("sv1-5", 4, ""),
	}
	cards := valuation.CardDataMap{
		"sv1-1": {Name: "A", Price: 10},
		"sv1-2": {Name: "B", Price: 5},
		"sv1-3": {Name: "C", Price: 20},
		"sv1-5": {Name: "E", Price: 0.25},
	}

	top := valuation.MostValuable(c, cards, 3)

	require.Len(t, top, 3)
	assert.Equal(t, "C", top[0].Name)
	assert.Equal(t, "A", top[1].Name, "ties keep collection order")
	assert.Equal(t, "B", top[2].Name)
	assertDecimal(t, "10", top[2].TotalValue)
	assertDecimal(t, "5", top[2].UnitPrice)
	assert.Equal(t, card.VariantHolofoil, top[0].Variant)
}

func TestMostValuable_RanksOnUnroundedValue(t *testing.T) {
	// GIVEN: Two lines that both display as 1.00
	c := collection.Collection{entry("sv1-1", 1, ""), entry("sv1-2", 1, "")}
	cards := valuation.CardDataMap{
		"sv1-1": {Name: "Lower", Price: 1.001},
		"sv1-2": {Name: "Higher", Price: 1.004},
	}

	// WHEN: Ranking
	top := valuation.MostValuable(c, cards, 2)

	// THEN: The larger exact value wins, the output is still rounded
	require.Len(t, top, 2)
	assert.Equal(t, "Higher", top[0].Name)
	assert.Equal(t, "Lower", top[1].Name)
	assertDecimal(t, "1.00", top[0].TotalValue)
}

func TestMostValuable_DefaultLimit(t *testing.T) {
	var c collection.Collection
	cards := valuation.CardDataMap{}
	for i := 1; i <= 15; i++ {
		id := card.ID("sv1-" + string(rune('a'+i)))
		c = append(c, collection.Entry{CardID: id, Quantity: 1, Variant: card.VariantNormal})
		cards[id] = valuation.CardData{Price: float64(i)}
	}

	assert.Len(t, valuation.MostValuable(c, cards, 0), valuation.DefaultTopLimit)
}

// =============================================================================
// VALUE BY SET
// =============================================================================

func TestValueBySet(t *testing.T) {
	c := collection.Collection{
		entry("sv1-1", 2, ""),
		entry("base1-4", 1, card.VariantFirstEditionHolo),
		entry("sv1-2", 1, ""),
		entry("sv2-1", 1, ""),
		entry("sv3-1", 1, ""),
	}
	prices := valuation.PriceMap{
		"sv1-1":   1.25,
		"base1-4": 300,
		"sv2-1":   3.50,
		"sv3-1":   3.50,
	}

	sets := valuation.ValueBySet(c, prices, map[string]string{"base1": "Base Set"})

	require.Len(t, sets, 4)
	assert.Equal(t, "base1", sets[0].SetID)
	assert.Equal(t, "Base Set", sets[0].SetName)
	assertDecimal(t, "300", sets[0].Value)

	assert.Equal(t, "sv2", sets[1].SetID, "equal values order by set id")
	assert.Equal(t, "sv3", sets[2].SetID)

	assert.Equal(t, "sv1", sets[3].SetID)
	assert.Equal(t, "sv1", sets[3].SetName)
	assertDecimal(t, "2.50", sets[3].Value)
	assert.Equal(t, 1, sets[3].ValuedCount)
	assert.Equal(t, 3, sets[3].Quantity)
}

// =============================================================================
// MONEY
// =============================================================================

func TestMoney_Format(t *testing.T) {
	m := valuation.NewMoney(dec("1234.505"), "USD")
	assertDecimal(t, "1234.51", m.Amount)
	assert.Equal(t, "$1,234.51", m.String())

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 1234.51, "currency": "USD", "display": "$1,234.51"}`, string(raw))
}

func TestMoney_DefaultsCurrency(t *testing.T) {
	v := valuation.Value{TotalValue: dec("90")}
	m := v.Total("")
	assert.Equal(t, valuation.DefaultCurrency, m.Currency)
	assert.Equal(t, "$90.00", m.String())
}

func TestIsKnownCurrency(t *testing.T) {
	assert.True(t, valuation.IsKnownCurrency("EUR"))
	assert.False(t, valuation.IsKnownCurrency("XXQ"))
}
