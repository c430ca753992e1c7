/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine types that
  already carry json tags (collection.Entry, trade.Report, ...) are returned
  as they are; the types here only exist where the HTTP shape differs.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Collection:
    AddCardRequest, UpdateQuantityRequest, CollectionResponse

  Value:
    ValueSnapshotDTO, TiersResponse

  Errors:
    ErrorResponse (with the trade report when a trade is rejected)

VALIDATION:
  Validation is done by the engines, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/store"
	"github.com/warp/card-ledger/trade"
	"github.com/warp/card-ledger/valuation"
)

// =============================================================================
// COLLECTION
// =============================================================================

// AddCardRequest adds copies of a card. Quantity defaults to 1 and Variant
// to normal.
type AddCardRequest struct {
	CardID   card.ID      `json:"card_id"`
	Quantity *int         `json:"quantity,omitempty"`
	Variant  card.Variant `json:"variant,omitempty"`
}

// UpdateQuantityRequest overwrites an entry's quantity.
type UpdateQuantityRequest struct {
	Quantity int          `json:"quantity"`
	Variant  card.Variant `json:"variant,omitempty"`
}

// CollectionResponse is a (possibly filtered and sorted) collection.
type CollectionResponse struct {
	CollectorID store.CollectorID     `json:"collector_id"`
	Entries     collection.Collection `json:"entries"`
	Stats       collection.Summary    `json:"stats"`
}

// CollectorsResponse lists known collectors.
type CollectorsResponse struct {
	Collectors []store.CollectorID `json:"collectors"`
}

// =============================================================================
// VALUE
// =============================================================================

// ValueSnapshotDTO is one point of a value history.
type ValueSnapshotDTO struct {
	Total         valuation.Money `json:"total"`
	ValuedCount   int             `json:"valued_count"`
	UnvaluedCount int             `json:"unvalued_count"`
	TotalCount    int             `json:"total_count"`
	TakenAt       string          `json:"taken_at"`
}

func toSnapshotDTO(s store.ValueSnapshot) ValueSnapshotDTO {
	return ValueSnapshotDTO{
		Total:         valuation.NewMoney(s.TotalValue, s.Currency),
		ValuedCount:   s.ValuedCount,
		UnvaluedCount: s.UnvaluedCount,
		TotalCount:    s.TotalCount,
		TakenAt:       s.TakenAt.UTC().Format(time.RFC3339),
	}
}

func toSnapshotDTOs(snaps []store.ValueSnapshot) []ValueSnapshotDTO {
	out := make([]ValueSnapshotDTO, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, toSnapshotDTO(s))
	}
	return out
}

// TiersResponse is the tier ladder with the collection's copy count per
// tier.
type TiersResponse struct {
	Ladder []valuation.TierBound  `json:"ladder"`
	Counts map[valuation.Tier]int `json:"counts"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Details string        `json:"details,omitempty"`
	Report  *trade.Report `json:"report,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
