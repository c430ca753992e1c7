package trade

import (
	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
)

// Simulate applies a trade to c and returns the resulting collection.
// Removals happen before additions, so a card that is both given and received
// nets out correctly. Ownership is not re-checked: run Validate first.
func Simulate(c collection.Collection, given, received []Line) collection.Collection {
	return collection.AddMany(collection.RemoveMany(c, toEntries(given)), toEntries(received))
}

// Apply is Simulate for a whole proposal.
func Apply(c collection.Collection, p Proposal) collection.Collection {
	return Simulate(c, p.Given, p.Received)
}

func toEntries(lines []Line) []collection.Entry {
	entries := make([]collection.Entry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, collection.Entry{
			CardID:   l.CardID,
			Quantity: l.Quantity,
			Variant:  card.NormalizeVariant(l.Variant),
		})
	}
	return entries
}
