/*
Package collection provides the collection ledger: the per-collector record
of which cards are owned, in which print variant, and how many.

PURPOSE:
  A collection is an ordered list of entries keyed by (card ID, variant).
  Every operation in this package is a pure transformation: it takes a
  snapshot and returns a newly allocated snapshot. Persistence and
  concurrency belong to the store layer (see store/store.go), which wraps
  each read-modify-write in a transaction.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: one (card, variant, quantity) record
  - Collection: the ordered entry list of one collector
  - Key: the compound uniqueness key

CRITICAL INVARIANTS:
  1. UNIQUE KEY: at most one entry per (CardID, Variant)
  2. POSITIVE: Quantity > 0; reaching zero removes the entry
  3. VALUE SEMANTICS: inputs are never mutated

USAGE:
  c, isNew, err := collection.Add(nil, "sv1-1", 3, card.VariantNormal)
  c, err = collection.Decrement(c, "sv1-1", card.VariantNormal)
  own := collection.Ownership(c, "sv1-1")

SEE ALSO:
  - ledger.go: mutation operations
  - query.go: ownership, stats, grouping and comparison
  - sort.go: ordering helpers
*/
package collection

import "github.com/warp/card-ledger/card"

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one (card, variant, quantity) record.
type Entry struct {
	CardID   card.ID      `json:"card_id"`
	Quantity int          `json:"quantity"`
	Variant  card.Variant `json:"variant"`
}

// Key returns the compound uniqueness key of the entry.
func (e Entry) Key() Key {
	return Key{CardID: e.CardID, Variant: card.NormalizeVariant(e.Variant)}
}

// Key is the (card, variant) pair that must be unique within a collection.
type Key struct {
	CardID  card.ID
	Variant card.Variant
}

// =============================================================================
// COLLECTION
// =============================================================================

// Collection is the ordered entry list of a single collector. Order is
// insertion order and carries no meaning beyond display.
type Collection []Entry

// Clone returns an independent copy. A nil collection clones to an empty,
// non-nil one so callers can always range and append.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// indexOf returns the position of the entry with the given key, or -1.
func (c Collection) indexOf(k Key) int {
	for i, e := range c {
		if e.CardID == k.CardID && card.NormalizeVariant(e.Variant) == k.Variant {
			return i
		}
	}
	return -1
}

// Find returns the entry for (id, variant) if present.
func Find(c Collection, id card.ID, v card.Variant) (Entry, bool) {
	i := c.indexOf(Key{CardID: id, Variant: card.NormalizeVariant(v)})
	if i < 0 {
		return Entry{}, false
	}
	return c[i], true
}

// without returns a copy of c with position i removed.
func (c Collection) without(i int) Collection {
	out := make(Collection, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...)
}
