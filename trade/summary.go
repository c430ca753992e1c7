package trade

import (
	"fmt"
	"strings"

	"github.com/warp/card-ledger/card"
)

// Kind classifies a proposal by which sides are populated.
type Kind string

const (
	KindTrade    Kind = "trade"
	KindGift     Kind = "gift"
	KindDonation Kind = "donation"
	KindEmpty    Kind = "empty"
)

// Summary holds per-side counts of a proposal. Unique counts distinct card
// ids regardless of variant.
type Summary struct {
	GivenTotal     int  `json:"given_total"`
	GivenUnique    int  `json:"given_unique"`
	ReceivedTotal  int  `json:"received_total"`
	ReceivedUnique int  `json:"received_unique"`
	NetChange      int  `json:"net_change"`
	Kind           Kind `json:"kind"`
}

// Summarize counts both sides of p.
func Summarize(p Proposal) Summary {
	s := Summary{
		GivenTotal:     totalQuantity(p.Given),
		GivenUnique:    uniqueCards(p.Given),
		ReceivedTotal:  totalQuantity(p.Received),
		ReceivedUnique: uniqueCards(p.Received),
	}
	s.NetChange = s.ReceivedTotal - s.GivenTotal

	switch {
	case len(p.Given) == 0 && len(p.Received) == 0:
		s.Kind = KindEmpty
	case len(p.Given) == 0:
		s.Kind = KindGift
	case len(p.Received) == 0:
		s.Kind = KindDonation
	default:
		s.Kind = KindTrade
	}
	return s
}

// Describe renders a one-line activity log entry for p.
func Describe(p Proposal) string {
	s := Summarize(p)
	partner := strings.TrimSpace(p.Partner)

	switch s.Kind {
	case KindGift:
		if partner == "" {
			return fmt.Sprintf("Received %s as a gift", cards(s.ReceivedTotal))
		}
		return fmt.Sprintf("Received %s as a gift from %s", cards(s.ReceivedTotal), partner)
	case KindDonation:
		if partner == "" {
			return fmt.Sprintf("Gave away %s", cards(s.GivenTotal))
		}
		return fmt.Sprintf("Gave away %s to %s", cards(s.GivenTotal), partner)
	case KindTrade:
		with := ""
		if partner != "" {
			with = " with " + partner
		}
		return fmt.Sprintf("Traded %s for %s%s", cards(s.GivenTotal), cards(s.ReceivedTotal), with)
	default:
		return "Empty trade"
	}
}

func cards(n int) string {
	if n == 1 {
		return "1 card"
	}
	return fmt.Sprintf("%d cards", n)
}

func totalQuantity(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func uniqueCards(lines []Line) int {
	seen := make(map[card.ID]struct{}, len(lines))
	for _, l := range lines {
		seen[l.CardID] = struct{}{}
	}
	return len(seen)
}
