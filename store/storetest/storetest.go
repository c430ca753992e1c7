// Package storetest is a conformance suite every store.TxStore must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/store"
	"github.com/warp/card-ledger/trade"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.TxStore

// Run exercises the full store.TxStore contract against stores built by
// newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.TxStore)
	}{
		{"LoadUnknownCollector", testLoadUnknown},
		{"SaveAndLoad", testSaveAndLoad},
		{"SaveReplaces", testSaveReplaces},
		{"SaveRejectsBadInput", testSaveRejects},
		{"Collectors", testCollectors},
		{"TxCommit", testTxCommit},
		{"TxRollback", testTxRollback},
		{"Trades", testTrades},
		{"DuplicateTrade", testDuplicateTrade},
		{"Milestones", testMilestones},
		{"ValueSnapshots", testValueSnapshots},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore(t)
			t.Cleanup(func() { st.Close() })
			tt.fn(t, st)
		})
	}
}

var errAbort = errors.New("abort")

func sample() collection.Collection {
	return collection.Collection{
		{CardID: "sv1-25", Quantity: 3, Variant: card.VariantNormal},
		{CardID: "base1-4", Quantity: 1, Variant: card.VariantFirstEditionHolo},
		{CardID: "sv1-25", Quantity: 1, Variant: card.VariantHolofoil},
	}
}

func testLoadUnknown(t *testing.T, st store.TxStore) {
	// GIVEN: an empty store
	// WHEN: loading a collector that never saved
	got, err := st.Load(context.Background(), "nobody")

	// THEN: the collection is empty, not an error
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testSaveAndLoad(t *testing.T, st store.TxStore) {
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "ash", sample()))

	got, err := st.Load(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, sample(), got, "order and variants survive a round trip")

	other, err := st.Load(ctx, "misty")
	require.NoError(t, err)
	assert.Empty(t, other, "collections are per collector")
}

func testSaveReplaces(t *testing.T, st store.TxStore) {
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, "ash", sample()))

	smaller := collection.Collection{{CardID: "base1-4", Quantity: 2, Variant: card.VariantNormal}}
	require.NoError(t, st.Save(ctx, "ash", smaller))

	got, err := st.Load(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, smaller, got)

	require.NoError(t, st.Save(ctx, "ash", collection.Collection{}))
	got, err = st.Load(ctx, "ash")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testSaveRejects(t *testing.T, st store.TxStore) {
	ctx := context.Background()

	err := st.Save(ctx, "  ", sample())
	assert.ErrorIs(t, err, store.ErrInvalidCollectorID)

	dup := collection.Collection{
		{CardID: "sv1-25", Quantity: 1, Variant: card.VariantNormal},
		{CardID: "sv1-25", Quantity: 2, Variant: card.VariantNormal},
	}
	err = st.Save(ctx, "ash", dup)
	assert.ErrorIs(t, err, collection.ErrDuplicateEntry)

	got, err := st.Load(ctx, "ash")
	require.NoError(t, err)
	assert.Empty(t, got, "a rejected save writes nothing")
}

func testCollectors(t *testing.T, st store.TxStore) {
	ctx := context.Background()

	ids, err := st.Collectors(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, st.Save(ctx, "brock", sample()))
	require.NoError(t, st.Save(ctx, "misty", sample()))
	require.NoError(t, st.Save(ctx, "brock", collection.Collection{}))

	ids, err = st.Collectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.CollectorID{"brock", "misty"}, ids)
}

func testTxCommit(t *testing.T, st store.TxStore) {
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx store.Store) error {
		c, err := tx.Load(ctx, "ash")
		if err != nil {
			return err
		}
		c, _, err = collection.Add(c, "sv1-25", 2, card.VariantNormal)
		if err != nil {
			return err
		}
		if err := tx.Save(ctx, "ash", c); err != nil {
			return err
		}
		return tx.MarkCelebrated(ctx, "ash", "first_card", time.Now())
	})
	require.NoError(t, err)

	got, err := st.Load(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, collection.Collection{{CardID: "sv1-25", Quantity: 2, Variant: card.VariantNormal}}, got)

	done, err := st.CelebratedMilestones(ctx, "ash")
	require.NoError(t, err)
	assert.True(t, done["first_card"])
}

func testTxRollback(t *testing.T, st store.TxStore) {
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, "ash", sample()))

	// WHEN: a transaction writes everything and then fails
	err := st.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Save(ctx, "ash", collection.Collection{}); err != nil {
			return err
		}
		if err := tx.AppendTrade(ctx, record("t-1", "ash", time.Now())); err != nil {
			return err
		}
		if err := tx.MarkCelebrated(ctx, "ash", "milestone_10", time.Now()); err != nil {
			return err
		}
		return errAbort
	})

	// THEN: the error comes back unchanged and nothing was written
	assert.ErrorIs(t, err, errAbort)

	got, err := st.Load(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	trades, err := st.Trades(ctx, "ash", 0)
	require.NoError(t, err)
	assert.Empty(t, trades)

	done, err := st.CelebratedMilestones(ctx, "ash")
	require.NoError(t, err)
	assert.Empty(t, done)

	// the aborted trade id is free again
	require.NoError(t, st.AppendTrade(ctx, record("t-1", "ash", time.Now())))
}

func record(id string, collector store.CollectorID, at time.Time) store.TradeRecord {
	return store.TradeRecord{
		ID:          id,
		CollectorID: collector,
		Given:       []trade.Line{{CardID: "sv1-25", Quantity: 1, Variant: card.VariantNormal}},
		Received:    []trade.Line{{CardID: "base1-4", Quantity: 2, Variant: card.VariantHolofoil, Name: "Charizard"}},
		Partner:     "Gary",
		Summary: trade.Summary{
			GivenTotal: 1, GivenUnique: 1,
			ReceivedTotal: 2, ReceivedUnique: 1,
			NetChange: 1, Kind: trade.KindTrade,
		},
		Description: "Traded 1 card for 2 cards with Gary",
		ExecutedAt:  at,
	}
}

func testTrades(t *testing.T, st store.TxStore) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"t-1", "t-2", "t-3"} {
		require.NoError(t, st.AppendTrade(ctx, record(id, "ash", base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, st.AppendTrade(ctx, record("t-9", "misty", base)))

	all, err := st.Trades(ctx, "ash", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t-3", all[0].ID, "newest first")
	assert.Equal(t, "t-1", all[2].ID)

	want := record("t-3", "ash", base.Add(2*time.Hour))
	got := all[0]
	assert.True(t, want.ExecutedAt.Equal(got.ExecutedAt))
	got.ExecutedAt = want.ExecutedAt
	assert.Equal(t, want, got)

	limited, err := st.Trades(ctx, "ash", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "t-3", limited[0].ID)
	assert.Equal(t, "t-2", limited[1].ID)

	none, err := st.Trades(ctx, "brock", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDuplicateTrade(t *testing.T, st store.TxStore) {
	ctx := context.Background()
	require.NoError(t, st.AppendTrade(ctx, record("t-1", "ash", time.Now())))

	err := st.AppendTrade(ctx, record("t-1", "ash", time.Now()))
	assert.ErrorIs(t, err, store.ErrDuplicateTrade)

	all, err := st.Trades(ctx, "ash", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testMilestones(t *testing.T, st store.TxStore) {
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.MarkCelebrated(ctx, "ash", "first_card", now))
	require.NoError(t, st.MarkCelebrated(ctx, "ash", "first_card", now.Add(time.Hour)))
	require.NoError(t, st.MarkCelebrated(ctx, "ash", "milestone_10", now))
	require.NoError(t, st.MarkCelebrated(ctx, "misty", "milestone_50", now))

	done, err := st.CelebratedMilestones(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"first_card": true, "milestone_10": true}, done)

	none, err := st.CelebratedMilestones(ctx, "brock")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testValueSnapshots(t *testing.T, st store.TxStore) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, v := range []string{"10.50", "12.00", "9.99"} {
		require.NoError(t, st.SaveValueSnapshot(ctx, store.ValueSnapshot{
			CollectorID:   "ash",
			TotalValue:    decimal.RequireFromString(v),
			Currency:      "USD",
			ValuedCount:   i + 1,
			UnvaluedCount: 1,
			TotalCount:    i + 2,
			TakenAt:       base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}

	err := st.SaveValueSnapshot(ctx, store.ValueSnapshot{CollectorID: ""})
	assert.ErrorIs(t, err, store.ErrInvalidCollectorID)

	all, err := st.ValueSnapshots(ctx, "ash", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].TotalValue.Equal(decimal.RequireFromString("10.50")), "oldest first")
	assert.True(t, all[2].TotalValue.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, all[2].TakenAt.Equal(base.Add(48*time.Hour)))
	assert.Equal(t, "USD", all[2].Currency)
	assert.Equal(t, 3, all[2].ValuedCount)
	assert.Equal(t, 4, all[2].TotalCount)

	latest, err := st.ValueSnapshots(ctx, "ash", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.True(t, latest[0].TotalValue.Equal(decimal.RequireFromString("12.00")))
	assert.True(t, latest[1].TotalValue.Equal(decimal.RequireFromString("9.99")))

	none, err := st.ValueSnapshots(ctx, "misty", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
