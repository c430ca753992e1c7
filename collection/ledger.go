/*
ledger.go - Mutation operations over a collection snapshot

PURPOSE:
  Add, remove and re-count entries. Every function returns a new Collection
  and leaves its input untouched, so a snapshot read from storage can be
  shared by concurrent readers while one writer computes the next state.

CRITICAL INVARIANTS:
  1. UNIQUE KEY: an Add on an existing (card, variant) increases quantity
     instead of appending a second entry
  2. NO ZERO ROWS: any operation that would leave quantity <= 0 removes the
     entry instead
  3. DEFAULT VARIANT: "" is normalised to card.VariantNormal on entry

EXAMPLE FLOW:
  1. Add sv1-1 x1 normal       -> [{sv1-1 1 normal}]        isNew=true
  2. Add sv1-1 x3 normal       -> [{sv1-1 4 normal}]        isNew=false
  3. Decrement sv1-1 normal    -> [{sv1-1 3 normal}]
  4. UpdateQuantity sv1-1 0    -> []

SEE ALSO:
  - types.go: Entry / Collection
  - trade/simulate.go: AddMany / RemoveMany applied to trades
*/
package collection

import (
	"fmt"
	"math"

	"github.com/warp/card-ledger/card"
)

// =============================================================================
// SINGLE-ENTRY MUTATIONS
// =============================================================================

// Add adds quantity copies of (id, variant). isNew reports whether a new
// entry was appended rather than an existing one increased.
func Add(c Collection, id card.ID, quantity int, v card.Variant) (Collection, bool, error) {
	v = card.NormalizeVariant(v)
	if err := checkKey(id, v); err != nil {
		return c.Clone(), false, err
	}
	if !card.IsValidQuantity(quantity) {
		return c.Clone(), false, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	out := c.Clone()
	if i := out.indexOf(Key{CardID: id, Variant: v}); i >= 0 {
		if quantity > math.MaxInt-out[i].Quantity {
			return c.Clone(), false, fmt.Errorf("%w: %d more copies of %s would overflow %d",
				ErrInvalidQuantity, quantity, id, out[i].Quantity)
		}
		out[i].Quantity += quantity
		return out, false, nil
	}
	return append(out, Entry{CardID: id, Quantity: quantity, Variant: v}), true, nil
}

// Remove deletes the single (id, variant) entry and reports how many entries
// were removed (0 or 1).
func Remove(c Collection, id card.ID, v card.Variant) (Collection, int) {
	i := c.indexOf(Key{CardID: id, Variant: card.NormalizeVariant(v)})
	if i < 0 {
		return c.Clone(), 0
	}
	return c.without(i), 1
}

// RemoveAll deletes every entry for id regardless of variant.
func RemoveAll(c Collection, id card.ID) (Collection, int) {
	out := make(Collection, 0, len(c))
	for _, e := range c {
		if e.CardID != id {
			out = append(out, e)
		}
	}
	return out, len(c) - len(out)
}

// UpdateQuantity overwrites the quantity of an existing entry. A quantity of
// zero or less removes the entry.
func UpdateQuantity(c Collection, id card.ID, quantity int, v card.Variant) (Collection, error) {
	v = card.NormalizeVariant(v)
	i := c.indexOf(Key{CardID: id, Variant: v})
	if i < 0 {
		return c.Clone(), &NotFoundError{CardID: id, Variant: v}
	}
	if quantity <= 0 {
		return c.without(i), nil
	}
	out := c.Clone()
	out[i].Quantity = quantity
	return out, nil
}

// Increment adds one copy, creating the entry when it does not exist.
func Increment(c Collection, id card.ID, v card.Variant) (Collection, error) {
	out, _, err := Add(c, id, 1, v)
	return out, err
}

// Decrement removes one copy. A missing entry is reported as not found and
// the collection is returned unchanged; reaching zero removes the entry.
func Decrement(c Collection, id card.ID, v card.Variant) (Collection, error) {
	v = card.NormalizeVariant(v)
	i := c.indexOf(Key{CardID: id, Variant: v})
	if i < 0 {
		return c.Clone(), &NotFoundError{CardID: id, Variant: v}
	}
	if c[i].Quantity <= 1 {
		return c.without(i), nil
	}
	out := c.Clone()
	out[i].Quantity--
	return out, nil
}

// =============================================================================
// BATCH MUTATIONS
// =============================================================================

// AddMany applies each entry as an Add. Entries with a non-positive quantity
// are skipped, and a sum that would overflow int saturates at math.MaxInt.
// Identifiers are not validated here: callers (trade simulation) validate
// lines before applying them.
func AddMany(c Collection, entries []Entry) Collection {
	out := c.Clone()
	for _, e := range entries {
		if e.Quantity <= 0 {
			continue
		}
		k := e.Key()
		if i := out.indexOf(k); i >= 0 {
			out[i].Quantity = addSaturating(out[i].Quantity, e.Quantity)
			continue
		}
		out = append(out, Entry{CardID: k.CardID, Quantity: e.Quantity, Variant: k.Variant})
	}
	return out
}

// RemoveMany subtracts each entry's quantity from the matching entry,
// dropping entries that reach zero. Missing entries are ignored; ownership is
// checked by trade validation, not here.
func RemoveMany(c Collection, entries []Entry) Collection {
	out := c.Clone()
	for _, e := range entries {
		if e.Quantity <= 0 {
			continue
		}
		i := out.indexOf(e.Key())
		if i < 0 {
			continue
		}
		if out[i].Quantity <= e.Quantity {
			out = out.without(i)
			continue
		}
		out[i].Quantity -= e.Quantity
	}
	return out
}

// =============================================================================
// SNAPSHOT VALIDATION
// =============================================================================

// Validate checks a snapshot (typically one loaded from storage) against the
// ledger invariants and returns the first violation found.
func Validate(c Collection) error {
	seen := make(map[Key]bool, len(c))
	for i, e := range c {
		if err := checkKey(e.CardID, card.NormalizeVariant(e.Variant)); err != nil {
			return &EntryError{Index: i, Entry: e, Err: err}
		}
		if !card.IsValidQuantity(e.Quantity) {
			return &EntryError{Index: i, Entry: e, Err: ErrInvalidQuantity}
		}
		k := e.Key()
		if seen[k] {
			return &EntryError{Index: i, Entry: e, Err: ErrDuplicateEntry}
		}
		seen[k] = true
	}
	return nil
}

func addSaturating(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}
