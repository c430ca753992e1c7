/*
Package trade validates and simulates card trades against a collection.

PURPOSE:
  A trade is a list of cards given away and a list of cards received,
  optionally labelled with the trading partner's name. Before a trade is
  executed it is validated against the collector's current ledger; once
  valid, Simulate computes the resulting ledger.

TRADE FLOW:
  ┌──────────────────────────────────────────────────────────────┐
  │                                                              │
  │  Proposal ──▶ Validate ──▶ Report.Valid? ──▶ Simulate ──▶ new │
  │                  │              │                collection  │
  │                  ▼              ▼                            │
  │             errors[]        warnings[]                       │
  │          (not executable)  (gift/donation/duplicates)       │
  │                                                              │
  └──────────────────────────────────────────────────────────────┘

ERROR REPORTING:
  Validation never stops at the first problem. Every failing line is
  reported with its side, index, requested and available quantity so a
  caller can render one actionable message per line.

ATOMICITY:
  Nothing here touches storage. Callers run Validate and Simulate inside a
  single store transaction (see service/service.go ExecuteTrade).

SEE ALSO:
  - validate.go: Validator and Limits
  - normalize.go: duplicate line detection and combination
  - simulate.go: applying a trade to a collection
  - summary.go: counts and activity-log text
*/
package trade

import "github.com/warp/card-ledger/card"

// =============================================================================
// PROPOSAL
// =============================================================================

// Line is one card + quantity + variant request on one side of a trade.
// Name, SetName and ImageURL are display metadata and never affect
// validation.
type Line struct {
	CardID   card.ID      `json:"card_id"`
	Quantity int          `json:"quantity"`
	Variant  card.Variant `json:"variant,omitempty"`
	Name     string       `json:"name,omitempty"`
	SetName  string       `json:"set_name,omitempty"`
	ImageURL string       `json:"image_url,omitempty"`
}

// Proposal is a trade to validate or execute.
type Proposal struct {
	Given    []Line `json:"cards_given"`
	Received []Line `json:"cards_received"`
	Partner  string `json:"trading_partner,omitempty"`
}

// Side names one half of a trade.
type Side string

const (
	SideGiven    Side = "given"
	SideReceived Side = "received"
	SideTrade    Side = "trade" // issue about the trade as a whole
)

// =============================================================================
// REPORT
// =============================================================================

// Code classifies a validation issue.
type Code string

const (
	// Errors - the trade cannot be executed.
	CodeEmptyTrade           Code = "empty_trade"
	CodeTooManyCards         Code = "too_many_cards"
	CodeInvalidCardEntry     Code = "invalid_card_entry"
	CodeNotOwned             Code = "not_owned"
	CodeInsufficientQuantity Code = "insufficient_quantity"
	CodePartnerNameTooLong   Code = "partner_name_too_long"

	// Warnings - the trade is valid but worth flagging.
	CodeGift           Code = "gift"
	CodeDonation       Code = "donation"
	CodeDuplicateLines Code = "duplicate_lines"
)

// Issue is one error or warning. Index is the line position on Side, or -1
// for issues about a whole side or the whole trade.
type Issue struct {
	Code      Code         `json:"code"`
	Side      Side         `json:"side"`
	Index     int          `json:"index"`
	CardID    card.ID      `json:"card_id,omitempty"`
	Variant   card.Variant `json:"variant,omitempty"`
	Requested int          `json:"requested,omitempty"`
	Available int          `json:"available"`
	Message   string       `json:"message"`
}

// Report collects every error and warning for one proposal.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// HasError reports whether an error with the given code was recorded.
func (r Report) HasError(code Code) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// HasWarning reports whether a warning with the given code was recorded.
func (r Report) HasWarning(code Code) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
