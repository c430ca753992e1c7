package collection_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func entry(id string, qty int, v card.Variant) collection.Entry {
	return collection.Entry{CardID: card.ID(id), Quantity: qty, Variant: v}
}

func sample() collection.Collection {
	return collection.Collection{
		entry("sv1-1", 3, card.VariantNormal),
		entry("sv1-1", 1, card.VariantHolofoil),
		entry("sv2-10", 2, card.VariantNormal),
	}
}

// =============================================================================
// ADD
// =============================================================================

func TestAdd_NewThenExisting(t *testing.T) {
	// GIVEN: An empty collection
	// WHEN: Adding sv1-1 once, then three more copies
	// THEN: One entry with quantity 4; second add is not new

	c, isNew, err := collection.Add(nil, "sv1-1", 1, card.VariantNormal)
	require.NoError(t, err)
	assert.True(t, isNew)

	c, isNew, err = collection.Add(c, "sv1-1", 3, card.VariantNormal)
	require.NoError(t, err)
	assert.False(t, isNew)

	require.Len(t, c, 1)
	assert.Equal(t, 4, c[0].Quantity)
}

func TestAdd_DefaultsVariant(t *testing.T) {
	c, _, err := collection.Add(nil, "sv1-1", 1, "")
	require.NoError(t, err)

	c, isNew, err := collection.Add(c, "sv1-1", 1, card.VariantNormal)
	require.NoError(t, err)

	assert.False(t, isNew, "omitted variant and normal are the same key")
	require.Len(t, c, 1)
	assert.Equal(t, card.VariantNormal, c[0].Variant)
	assert.Equal(t, 2, c[0].Quantity)
}

func TestAdd_DifferentVariantIsSeparateEntry(t *testing.T) {
	c, _, _ := collection.Add(nil, "sv1-1", 1, card.VariantNormal)
	c, isNew, err := collection.Add(c, "sv1-1", 1, card.VariantHolofoil)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Len(t, c, 2)
}

func TestAdd_RejectsBadInput(t *testing.T) {
	base := sample()

	_, _, err := collection.Add(base, "sv1", 1, card.VariantNormal)
	assert.ErrorIs(t, err, collection.ErrInvalidCardID)

	_, _, err = collection.Add(base, "sv1-1", 1, "shiny")
	assert.ErrorIs(t, err, collection.ErrInvalidVariant)

	out, _, err := collection.Add(base, "sv1-1", 0, card.VariantNormal)
	assert.ErrorIs(t, err, collection.ErrInvalidQuantity)
	assert.True(t, collection.IsClientError(err))
	assert.Equal(t, base, out)
}

// =============================================================================
// REMOVE
// =============================================================================

func TestRemove_SingleVariant(t *testing.T) {
	c, n := collection.Remove(sample(), "sv1-1", card.VariantHolofoil)
	assert.Equal(t, 1, n)
	assert.Len(t, c, 2)

	_, ok := collection.Find(c, "sv1-1", card.VariantHolofoil)
	assert.False(t, ok)
}

func TestRemove_Missing(t *testing.T) {
	c, n := collection.Remove(sample(), "sv9-9", card.VariantNormal)
	assert.Equal(t, 0, n)
	assert.Equal(t, sample(), c)
}

func TestRemoveAll_EveryVariant(t *testing.T) {
	c, n := collection.RemoveAll(sample(), "sv1-1")
	assert.Equal(t, 2, n)
	require.Len(t, c, 1)
	assert.Equal(t, card.ID("sv2-10"), c[0].CardID)
}

// =============================================================================
// UPDATE / INCREMENT / DECREMENT
// =============================================================================

func TestUpdateQuantity(t *testing.T) {
	c, err := collection.UpdateQuantity(sample(), "sv1-1", 7, card.VariantNormal)
	require.NoError(t, err)
	e, _ := collection.Find(c, "sv1-1", card.VariantNormal)
	assert.Equal(t, 7, e.Quantity)
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	c, err := collection.UpdateQuantity(sample(), "sv1-1", 0, card.VariantNormal)
	require.NoError(t, err)
	_, ok := collection.Find(c, "sv1-1", card.VariantNormal)
	assert.False(t, ok)
	assert.Len(t, c, 2)
}

func TestUpdateQuantity_NotFound(t *testing.T) {
	c, err := collection.UpdateQuantity(sample(), "sv1-1", 5, card.VariantReverseHolofoil)

	var nf *collection.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, card.ID("sv1-1"), nf.CardID)
	assert.Equal(t, card.VariantReverseHolofoil, nf.Variant)
	assert.True(t, collection.IsNotFound(err))
	assert.Equal(t, sample(), c)
}

func TestIncrement_CreatesMissingEntry(t *testing.T) {
	c, err := collection.Increment(sample(), "sv3-5", "")
	require.NoError(t, err)
	e, ok := collection.Find(c, "sv3-5", card.VariantNormal)
	require.True(t, ok)
	assert.Equal(t, 1, e.Quantity)
}

func TestDecrement(t *testing.T) {
	c, err := collection.Decrement(sample(), "sv1-1", card.VariantNormal)
	require.NoError(t, err)
	e, _ := collection.Find(c, "sv1-1", card.VariantNormal)
	assert.Equal(t, 2, e.Quantity)
}

func TestDecrement_LastCopyRemovesEntry(t *testing.T) {
	c, err := collection.Decrement(sample(), "sv1-1", card.VariantHolofoil)
	require.NoError(t, err)
	_, ok := collection.Find(c, "sv1-1", card.VariantHolofoil)
	assert.False(t, ok)
}

func TestDecrement_MissingLeavesCollectionUnchanged(t *testing.T) {
	c, err := collection.Decrement(sample(), "sv7-7", card.VariantNormal)
	assert.ErrorIs(t, err, collection.ErrEntryNotFound)
	assert.Equal(t, sample(), c)
}

// =============================================================================
// BATCH
// =============================================================================

func TestRemoveMany_ClampsAtZero(t *testing.T) {
	c := collection.RemoveMany(sample(), []collection.Entry{
		entry("sv1-1", 5, card.VariantNormal),
		entry("sv2-10", 1, ""),
		entry("sv9-9", 1, card.VariantNormal),
	})

	_, ok := collection.Find(c, "sv1-1", card.VariantNormal)
	assert.False(t, ok)
	e, _ := collection.Find(c, "sv2-10", card.VariantNormal)
	assert.Equal(t, 1, e.Quantity)
	assert.Len(t, c, 2)
}

func TestAddMany_SkipsNonPositive(t *testing.T) {
	c := collection.AddMany(nil, []collection.Entry{
		entry("sv1-1", 0, card.VariantNormal),
		entry("sv1-2", 2, ""),
	})
	require.Len(t, c, 1)
	assert.Equal(t, card.VariantNormal, c[0].Variant)
}

func TestAdd_RejectsQuantityOverflow(t *testing.T) {
	// GIVEN: An entry already at the largest int
	c, _, err := collection.Add(nil, "sv1-1", math.MaxInt, "")
	require.NoError(t, err)

	// WHEN: Adding two more copies
	out, isNew, err := collection.Add(c, "sv1-1", 2, "")

	// THEN: The add is refused and the quantity is untouched
	assert.ErrorIs(t, err, collection.ErrInvalidQuantity)
	assert.False(t, isNew)
	require.Len(t, out, 1)
	assert.Equal(t, math.MaxInt, out[0].Quantity)
	assert.NoError(t, collection.Validate(out))
}

func TestAddMany_SaturatesInsteadOfOverflowing(t *testing.T) {
	c := collection.AddMany(collection.Collection{entry("sv1-1", math.MaxInt-1, card.VariantNormal)},
		[]collection.Entry{entry("sv1-1", 5, "")})

	require.Len(t, c, 1)
	assert.Equal(t, math.MaxInt, c[0].Quantity)
	assert.NoError(t, collection.Validate(c))
}

// =============================================================================
// NON-MUTATION
// =============================================================================

func TestOperations_DoNotMutateInput(t *testing.T) {
	ops := map[string]func(collection.Collection){
		"add":       func(c collection.Collection) { collection.Add(c, "sv1-1", 2, card.VariantNormal) },
		"remove":    func(c collection.Collection) { collection.Remove(c, "sv1-1", card.VariantNormal) },
		"removeAll": func(c collection.Collection) { collection.RemoveAll(c, "sv1-1") },
		"update":    func(c collection.Collection) { collection.UpdateQuantity(c, "sv1-1", 9, card.VariantNormal) },
		"updateZero": func(c collection.Collection) {
			collection.UpdateQuantity(c, "sv1-1", 0, card.VariantNormal)
		},
		"increment":  func(c collection.Collection) { collection.Increment(c, "sv1-1", card.VariantNormal) },
		"decrement":  func(c collection.Collection) { collection.Decrement(c, "sv1-1", card.VariantNormal) },
		"addMany":    func(c collection.Collection) { collection.AddMany(c, sample()) },
		"removeMany": func(c collection.Collection) { collection.RemoveMany(c, sample()) },
		"merge":      func(c collection.Collection) { collection.Merge(c, sample()) },
		"sort":       func(c collection.Collection) { collection.Sort(c, collection.SortByQuantity, collection.Descending) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			input := sample()
			op(input)
			assert.Equal(t, sample(), input)
		})
	}
}

// =============================================================================
// SNAPSHOT VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	assert.NoError(t, collection.Validate(sample()))

	dup := append(sample(), entry("sv1-1", 1, ""))
	err := collection.Validate(dup)
	assert.ErrorIs(t, err, collection.ErrDuplicateEntry)

	var entryErr *collection.EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, 3, entryErr.Index)

	assert.ErrorIs(t, collection.Validate(collection.Collection{entry("sv1-1", 0, "")}), collection.ErrInvalidQuantity)
	assert.ErrorIs(t, collection.Validate(collection.Collection{entry("bad", 1, "")}), collection.ErrInvalidCardID)
}
