/*
handlers.go - HTTP API handlers for the card ledger

PURPOSE:
  Exposes the ledger service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the service.

ENDPOINTS:
  Collection:
    GET    /api/collectors                                List collectors
    GET    /api/collectors/{id}/cards                     Collection (?set=&sort=&order=)
    POST   /api/collectors/{id}/cards                     Add copies of a card
    PUT    /api/collectors/{id}/cards/{cardID}            Set quantity
    DELETE /api/collectors/{id}/cards/{cardID}            Remove (?variant= for one variant)
    POST   /api/collectors/{id}/cards/{cardID}/increment  +1 (?variant=)
    POST   /api/collectors/{id}/cards/{cardID}/decrement  -1 (?variant=)
    GET    /api/collectors/{id}/cards/{cardID}/ownership  Per-variant ownership
    GET    /api/collectors/{id}/stats                     Totals
    GET    /api/collectors/{id}/groups                    Variants collapsed per card
    GET    /api/collectors/{id}/sets                      Entry and copy counts per set
    GET    /api/collectors/{id}/compare/{otherID}         Shared and unique cards

  Trades:
    POST   /api/collectors/{id}/trades/validate           Dry run
    POST   /api/collectors/{id}/trades                    Execute
    GET    /api/collectors/{id}/trades                    History (?limit=)

  Value:
    GET    /api/collectors/{id}/value                     Total, statistics, tiers
    GET    /api/collectors/{id}/value/top                 Most valuable (?limit=)
    GET    /api/collectors/{id}/value/sets                Value per set
    GET    /api/collectors/{id}/value/statistics          Price distribution
    GET    /api/collectors/{id}/value/tiers               Copies per price tier
    GET    /api/collectors/{id}/value/history             Snapshots (?limit=)
    POST   /api/collectors/{id}/value/snapshots           Take a snapshot now

  Activity:
    GET    /api/collectors/{id}/milestones                Progress and celebrated milestones
    GET    /api/collectors/{id}/activity                  Recent events (?limit=)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entry not found
  - 422: Trade rejected (body carries the full validation report)
  - 502: Price catalog unavailable
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/catalog"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/events"
	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/service"
	"github.com/warp/card-ledger/store"
	"github.com/warp/card-ledger/trade"
	"github.com/warp/card-ledger/valuation"
)

const maxListLimit = 1000

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *service.Service

	// Activity backs the activity feed. Nil disables the endpoint.
	Activity *events.Bus

	log logger.Logger
}

// NewHandler creates a handler over svc.
func NewHandler(svc *service.Service, activity *events.Bus, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{Service: svc, Activity: activity, log: log}
}

func collectorID(r *http.Request) store.CollectorID {
	return store.CollectorID(chi.URLParam(r, "id"))
}

func cardID(r *http.Request) card.ID {
	return card.ID(chi.URLParam(r, "cardID"))
}

func variantParam(r *http.Request) card.Variant {
	return card.Variant(r.URL.Query().Get("variant"))
}

// limitParam reads ?limit=, returning def when absent.
func limitParam(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxListLimit {
		return 0, errors.New("limit must be an integer between 0 and 1000")
	}
	return n, nil
}

// fail maps a service error onto a status code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	var rejected *store.RejectedError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Trade rejected",
			Details: err.Error(),
			Report:  &rejected.Report,
		})
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Card not found in collection", err)
	case store.IsClientError(err), errors.Is(err, collection.ErrDuplicateEntry):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, catalog.ErrCatalogUnavailable), errors.Is(err, catalog.ErrInvalidCatalog):
		h.log.Warn(r.Context(), "catalog error", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusBadGateway, "Price catalog unavailable", err)
	default:
		h.log.Error(r.Context(), message, logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// =============================================================================
// COLLECTION HANDLERS
// =============================================================================

// ListCollectors returns every collector with a saved collection.
func (h *Handler) ListCollectors(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Service.Collectors(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list collectors", err)
		return
	}
	writeJSON(w, http.StatusOK, CollectorsResponse{Collectors: ids})
}

// GetCollection returns the collection, optionally filtered to one set and
// sorted.
// GET /api/collectors/{id}/cards?set=sv1&sort=set&order=desc
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	id := collectorID(r)
	c, err := h.Service.Collection(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to load collection", err)
		return
	}

	q := r.URL.Query()
	if set := q.Get("set"); set != "" {
		c = collection.FilterBySet(c, set)
	}
	if sortBy := q.Get("sort"); sortBy != "" {
		order := collection.Ascending
		if q.Get("order") == string(collection.Descending) {
			order = collection.Descending
		}
		c = collection.Sort(c, collection.ParseSortKey(sortBy), order)
	}

	writeJSON(w, http.StatusOK, CollectionResponse{
		CollectorID: id,
		Entries:     c,
		Stats:       collection.Stats(c),
	})
}

// AddCard adds copies of a card. Responds 201 when a new entry was created.
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req AddCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	res, err := h.Service.AddCard(r.Context(), collectorID(r), req.CardID, quantity, req.Variant)
	if err != nil {
		h.fail(w, r, "Failed to add card", err)
		return
	}
	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// UpdateQuantity overwrites a quantity; zero removes the entry.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res, err := h.Service.UpdateQuantity(r.Context(), collectorID(r), cardID(r), req.Quantity, req.Variant)
	if err != nil {
		h.fail(w, r, "Failed to update quantity", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RemoveCard removes one variant, or every variant without ?variant=.
func (h *Handler) RemoveCard(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.RemoveCard(r.Context(), collectorID(r), cardID(r), variantParam(r))
	if err != nil {
		h.fail(w, r, "Failed to remove card", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Increment(r.Context(), collectorID(r), cardID(r), variantParam(r))
	if err != nil {
		h.fail(w, r, "Failed to increment", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Decrement(r.Context(), collectorID(r), cardID(r), variantParam(r))
	if err != nil {
		h.fail(w, r, "Failed to decrement", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetOwnership reports how many copies of a card are owned, per variant.
func (h *Handler) GetOwnership(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Collection(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to load collection", err)
		return
	}
	writeJSON(w, http.StatusOK, collection.Ownership(c, cardID(r)))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Collection(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to load collection", err)
		return
	}
	writeJSON(w, http.StatusOK, collection.Stats(c))
}

func (h *Handler) GetGroups(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Collection(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to load collection", err)
		return
	}
	writeJSON(w, http.StatusOK, collection.GroupByCardID(c))
}

func (h *Handler) GetSets(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Collection(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to load collection", err)
		return
	}
	writeJSON(w, http.StatusOK, collection.CountBySet(c))
}

// Compare reports the overlap between two collectors.
// GET /api/collectors/{id}/compare/{otherID}
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	other := store.CollectorID(chi.URLParam(r, "otherID"))
	cmp, err := h.Service.Compare(r.Context(), collectorID(r), other)
	if err != nil {
		h.fail(w, r, "Failed to compare collections", err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// =============================================================================
// TRADE HANDLERS
// =============================================================================

// ValidateTrade returns the validation report without applying the trade.
// An invalid trade is still a 200: the report is the answer.
func (h *Handler) ValidateTrade(w http.ResponseWriter, r *http.Request) {
	var p trade.Proposal
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	report, err := h.Service.ValidateTrade(r.Context(), collectorID(r), p)
	if err != nil {
		h.fail(w, r, "Failed to validate trade", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExecuteTrade validates and applies a trade atomically.
func (h *Handler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var p trade.Proposal
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res, err := h.Service.ExecuteTrade(r.Context(), collectorID(r), p)
	if err != nil {
		h.fail(w, r, "Failed to execute trade", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	trades, err := h.Service.Trades(r.Context(), collectorID(r), limit)
	if err != nil {
		h.fail(w, r, "Failed to list trades", err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// =============================================================================
// VALUE HANDLERS
// =============================================================================

func (h *Handler) GetValue(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Valuation(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to value collection", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) GetTopCards(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, valuation.DefaultTopLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	top, err := h.Service.TopCards(r.Context(), collectorID(r), limit)
	if err != nil {
		h.fail(w, r, "Failed to rank cards", err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (h *Handler) GetSetValues(w http.ResponseWriter, r *http.Request) {
	sets, err := h.Service.ValueBySet(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to value sets", err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Valuation(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to value collection", err)
		return
	}
	writeJSON(w, http.StatusOK, report.Statistics)
}

func (h *Handler) GetTiers(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Valuation(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to value collection", err)
		return
	}
	writeJSON(w, http.StatusOK, TiersResponse{Ladder: valuation.Ladder(), Counts: report.Tiers})
}

func (h *Handler) GetValueHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	history, err := h.Service.ValueHistory(r.Context(), collectorID(r), limit)
	if err != nil {
		h.fail(w, r, "Failed to load value history", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTOs(history))
}

func (h *Handler) TakeSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.SnapshotValue(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to take value snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotDTO(snap))
}

// =============================================================================
// MILESTONES & ACTIVITY
// =============================================================================

func (h *Handler) GetMilestones(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.MilestoneProgress(r.Context(), collectorID(r))
	if err != nil {
		h.fail(w, r, "Failed to load milestones", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GetActivity returns the collector's recent events from this process.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	if h.Activity == nil {
		writeError(w, http.StatusNotImplemented, "Activity feed disabled", nil)
		return
	}
	id := collectorID(r)
	if err := store.ValidateCollectorID(id); err != nil {
		h.fail(w, r, "Invalid collector", err)
		return
	}
	limit, err := limitParam(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Activity.Recent(string(id), limit))
}
