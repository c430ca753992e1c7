package trade

import (
	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
)

// Duplicate describes one (card, variant) that appears on more than one line
// of the same side.
type Duplicate struct {
	CardID        card.ID      `json:"card_id"`
	Variant       card.Variant `json:"variant"`
	Indexes       []int        `json:"indexes"`
	TotalQuantity int          `json:"total_quantity"`
}

// FindDuplicates returns every key that appears on two or more lines, in
// order of first appearance.
func FindDuplicates(lines []Line) []Duplicate {
	seen := make(map[collection.Key]int)
	var groups []Duplicate

	for i, l := range lines {
		k := lineKey(l)
		if gi, ok := seen[k]; ok {
			groups[gi].Indexes = append(groups[gi].Indexes, i)
			groups[gi].TotalQuantity += l.Quantity
			continue
		}
		seen[k] = len(groups)
		groups = append(groups, Duplicate{
			CardID:        k.CardID,
			Variant:       k.Variant,
			Indexes:       []int{i},
			TotalQuantity: l.Quantity,
		})
	}

	var dups []Duplicate
	for _, g := range groups {
		if len(g.Indexes) > 1 {
			dups = append(dups, g)
		}
	}
	return dups
}

// Normalize combines lines sharing a (card, variant) key by summing their
// quantities. The first occurrence keeps its position and display metadata,
// and the variant is made explicit. Normalize(Normalize(x)) == Normalize(x).
func Normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	pos := make(map[collection.Key]int, len(lines))

	for _, l := range lines {
		k := lineKey(l)
		if i, ok := pos[k]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		l.Variant = k.Variant
		pos[k] = len(out)
		out = append(out, l)
	}
	return out
}

func lineKey(l Line) collection.Key {
	return collection.Key{CardID: l.CardID, Variant: card.NormalizeVariant(l.Variant)}
}
