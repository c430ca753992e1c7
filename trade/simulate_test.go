package trade_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/trade"
)

func TestSimulate_GiveAndReceive(t *testing.T) {
	c := trade.Simulate(owned(),
		[]trade.Line{line("sv1-2", 1, card.VariantHolofoil)},
		[]trade.Line{line("sv5-1", 2, "")},
	)

	e, _ := collection.Find(c, "sv1-2", card.VariantHolofoil)
	assert.Equal(t, 3, e.Quantity)
	e, ok := collection.Find(c, "sv5-1", card.VariantNormal)
	require.True(t, ok)
	assert.Equal(t, 2, e.Quantity)
}

func TestSimulate_GivingLastCopyRemovesEntry(t *testing.T) {
	c := trade.Simulate(owned(), []trade.Line{line("sv1-1", 1, "")}, nil)
	_, ok := collection.Find(c, "sv1-1", card.VariantNormal)
	assert.False(t, ok)
}

func TestSimulate_SameCardBothSidesNetsOut(t *testing.T) {
	// GIVEN: One normal sv1-1
	// WHEN: Giving it and receiving it back in the same trade
	// THEN: The entry survives with quantity 1

	c := trade.Simulate(owned(),
		[]trade.Line{line("sv1-1", 1, "")},
		[]trade.Line{line("sv1-1", 1, "")},
	)
	e, ok := collection.Find(c, "sv1-1", card.VariantNormal)
	require.True(t, ok)
	assert.Equal(t, 1, e.Quantity)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	c := owned()
	trade.Apply(c, trade.Proposal{
		Given:    []trade.Line{line("sv1-2", 4, card.VariantHolofoil)},
		Received: []trade.Line{line("sv1-1", 2, "")},
	})
	assert.Equal(t, owned(), c)
}

// =============================================================================
// NORMALIZE / DUPLICATES
// =============================================================================

func TestFindDuplicates(t *testing.T) {
	dups := trade.FindDuplicates([]trade.Line{
		line("sv1-1", 1, ""),
		line("sv1-2", 1, ""),
		line("sv1-1", 2, card.VariantNormal),
		line("sv1-1", 1, card.VariantHolofoil),
	})

	require.Len(t, dups, 1)
	assert.Equal(t, card.ID("sv1-1"), dups[0].CardID)
	assert.Equal(t, card.VariantNormal, dups[0].Variant)
	assert.Equal(t, []int{0, 2}, dups[0].Indexes)
	assert.Equal(t, 3, dups[0].TotalQuantity)
}

func TestNormalize_KeepsFirstMetadata(t *testing.T) {
	first := line("sv1-1", 1, "")
	first.Name = "Sprigatito"
	second := line("sv1-1", 4, card.VariantNormal)
	second.Name = "ignored"

	out := trade.Normalize([]trade.Line{first, line("sv1-2", 1, ""), second})

	require.Len(t, out, 2)
	assert.Equal(t, "Sprigatito", out[0].Name)
	assert.Equal(t, 5, out[0].Quantity)
	assert.Equal(t, card.VariantNormal, out[0].Variant)
	assert.Equal(t, card.ID("sv1-2"), out[1].CardID)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize(t *testing.T) {
	s := trade.Summarize(trade.Proposal{
		Given: []trade.Line{line("sv1-1", 2, ""), line("sv1-1", 1, card.VariantHolofoil)},
		Received: []trade.Line{
			line("sv2-1", 1, ""),
		},
	})
	assert.Equal(t, trade.Summary{
		GivenTotal:     3,
		GivenUnique:    1,
		ReceivedTotal:  1,
		ReceivedUnique: 1,
		NetChange:      -2,
		Kind:           trade.KindTrade,
	}, s)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		p    trade.Proposal
		want string
	}{
		{
			name: "trade with partner",
			p: trade.Proposal{
				Given:    []trade.Line{line("sv1-1", 2, "")},
				Received: []trade.Line{line("sv2-1", 1, "")},
				Partner:  " Alex ",
			},
			want: "Traded 2 cards for 1 card with Alex",
		},
		{
			name: "gift",
			p:    trade.Proposal{Received: []trade.Line{line("sv2-1", 3, "")}, Partner: "Sam"},
			want: "Received 3 cards as a gift from Sam",
		},
		{
			name: "anonymous donation",
			p:    trade.Proposal{Given: []trade.Line{line("sv2-1", 1, "")}},
			want: "Gave away 1 card",
		},
		{
			name: "empty",
			p:    trade.Proposal{},
			want: "Empty trade",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trade.Describe(tt.p))
		})
	}
}
