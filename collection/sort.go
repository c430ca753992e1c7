package collection

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/warp/card-ledger/card"
)

// SortKey selects the ordering used by Sort.
type SortKey string

const (
	SortByCardID    SortKey = "card_id"
	SortByQuantity  SortKey = "quantity"
	SortBySetNumber SortKey = "set_number"
)

// Order is the sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseSortKey maps a user-supplied key to a SortKey, defaulting to set order.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByCardID, SortByQuantity, SortBySetNumber:
		return SortKey(s)
	default:
		return SortBySetNumber
	}
}

// Sort returns a sorted copy of c. Every key falls back to card ID and then
// variant so the order is total and deterministic.
func Sort(c Collection, key SortKey, order Order) Collection {
	out := c.Clone()
	primary := compareBy(key)
	slices.SortStableFunc(out, func(a, b Entry) int {
		r := primary(a, b)
		if r == 0 {
			r = cmp.Compare(a.CardID, b.CardID)
		}
		if r == 0 {
			r = cmp.Compare(a.Variant, b.Variant)
		}
		if order == Descending {
			return -r
		}
		return r
	})
	return out
}

func compareBy(key SortKey) func(a, b Entry) int {
	switch key {
	case SortByQuantity:
		return func(a, b Entry) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case SortBySetNumber:
		return compareSetNumber
	default:
		return func(a, b Entry) int { return 0 }
	}
}

func compareSetNumber(a, b Entry) int {
	if r := cmp.Compare(card.ExtractSetID(a.CardID), card.ExtractSetID(b.CardID)); r != 0 {
		return r
	}
	return cmp.Compare(cardNumber(a.CardID), cardNumber(b.CardID))
}

// cardNumber parses the number part; non-numeric numbers ("GG01", "4-a")
// sort as 0.
func cardNumber(id card.ID) int {
	n, err := strconv.Atoi(card.ExtractCardNumber(id))
	if err != nil {
		return 0
	}
	return n
}
