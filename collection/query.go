/*
query.go - Read-only views over a collection snapshot

PURPOSE:
  Ownership lookups, summary statistics, grouping and collection-to-
  collection comparison. None of these functions modify their input.

GROUPING:
  GroupByCardID collapses every variant of a card into one record with a
  per-variant breakdown. CountBySet aggregates per set ID (the part of the
  card ID before the first '-').

COMPARISON:
  SharedCardIDs and UniqueCardIDs work on distinct card IDs and ignore
  variants. Merge works on full (card, variant) keys.

SEE ALSO:
  - ledger.go: mutation operations
  - valuation/: value-based views over the same snapshot
*/
package collection

import "github.com/warp/card-ledger/card"

// =============================================================================
// OWNERSHIP
// =============================================================================

// OwnershipInfo summarises how many copies of one card are owned.
type OwnershipInfo struct {
	Owned         bool                 `json:"owned"`
	TotalQuantity int                  `json:"total_quantity"`
	Variants      map[card.Variant]int `json:"variants"`
}

// Ownership sums the quantities of every variant of id.
func Ownership(c Collection, id card.ID) OwnershipInfo {
	info := OwnershipInfo{Variants: make(map[card.Variant]int)}
	for _, e := range c {
		if e.CardID != id {
			continue
		}
		info.TotalQuantity += e.Quantity
		info.Variants[card.NormalizeVariant(e.Variant)] += e.Quantity
	}
	info.Owned = info.TotalQuantity > 0
	return info
}

// =============================================================================
// STATISTICS
// =============================================================================

// Summary holds headline counts for a collection.
type Summary struct {
	TotalCards    int `json:"total_cards"`    // sum of quantities
	UniqueEntries int `json:"unique_entries"` // number of entries
	UniqueCards   int `json:"unique_cards"`   // distinct card IDs
	SetsStarted   int `json:"sets_started"`   // distinct set IDs
}

// Stats computes headline counts.
func Stats(c Collection) Summary {
	cards := make(map[card.ID]bool)
	sets := make(map[string]bool)
	s := Summary{UniqueEntries: len(c)}
	for _, e := range c {
		s.TotalCards += e.Quantity
		cards[e.CardID] = true
		sets[card.ExtractSetID(e.CardID)] = true
	}
	s.UniqueCards = len(cards)
	s.SetsStarted = len(sets)
	return s
}

// TotalCards is the sum of all quantities. Milestones are measured against it.
func TotalCards(c Collection) int {
	total := 0
	for _, e := range c {
		total += e.Quantity
	}
	return total
}

// =============================================================================
// GROUPING
// =============================================================================

// CardGroup is every variant of one card collapsed into a single record.
type CardGroup struct {
	CardID        card.ID              `json:"card_id"`
	TotalQuantity int                  `json:"total_quantity"`
	Variants      map[card.Variant]int `json:"variants"`
}

// GroupByCardID groups entries by card, in order of first appearance.
func GroupByCardID(c Collection) []CardGroup {
	index := make(map[card.ID]int)
	var groups []CardGroup
	for _, e := range c {
		i, ok := index[e.CardID]
		if !ok {
			i = len(groups)
			index[e.CardID] = i
			groups = append(groups, CardGroup{CardID: e.CardID, Variants: make(map[card.Variant]int)})
		}
		groups[i].TotalQuantity += e.Quantity
		groups[i].Variants[card.NormalizeVariant(e.Variant)] += e.Quantity
	}
	return groups
}

// SetCount aggregates entries belonging to one set.
type SetCount struct {
	SetID    string `json:"set_id"`
	Entries  int    `json:"entries"`
	Quantity int    `json:"quantity"`
}

// CountBySet aggregates entry count and quantity per set ID, in order of
// first appearance.
func CountBySet(c Collection) []SetCount {
	index := make(map[string]int)
	var counts []SetCount
	for _, e := range c {
		set := card.ExtractSetID(e.CardID)
		i, ok := index[set]
		if !ok {
			i = len(counts)
			index[set] = i
			counts = append(counts, SetCount{SetID: set})
		}
		counts[i].Entries++
		counts[i].Quantity += e.Quantity
	}
	return counts
}

// FilterBySet returns the entries whose card belongs to setID.
func FilterBySet(c Collection, setID string) Collection {
	out := make(Collection, 0)
	for _, e := range c {
		if card.ExtractSetID(e.CardID) == setID {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// COMPARISON
// =============================================================================

// CardIDs returns the distinct card IDs in order of first appearance.
func CardIDs(c Collection) []card.ID {
	seen := make(map[card.ID]bool)
	var ids []card.ID
	for _, e := range c {
		if !seen[e.CardID] {
			seen[e.CardID] = true
			ids = append(ids, e.CardID)
		}
	}
	return ids
}

// SharedCardIDs returns the distinct card IDs present in both collections,
// in a's order.
func SharedCardIDs(a, b Collection) []card.ID {
	inB := make(map[card.ID]bool)
	for _, e := range b {
		inB[e.CardID] = true
	}
	shared := make([]card.ID, 0)
	for _, id := range CardIDs(a) {
		if inB[id] {
			shared = append(shared, id)
		}
	}
	return shared
}

// UniqueCardIDs returns the distinct card IDs in a that b does not contain.
func UniqueCardIDs(a, b Collection) []card.ID {
	inB := make(map[card.ID]bool)
	for _, e := range b {
		inB[e.CardID] = true
	}
	unique := make([]card.ID, 0)
	for _, id := range CardIDs(a) {
		if !inB[id] {
			unique = append(unique, id)
		}
	}
	return unique
}

// Merge unions two collections. Quantities are summed where (card, variant)
// appears in both; other entries are kept as they are.
func Merge(a, b Collection) Collection {
	return AddMany(a, b)
}
