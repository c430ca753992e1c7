/*
Package catalog supplies card metadata and market prices to the ledger.

PURPOSE:
  The valuation engine is pure and takes a price map as input. A Source is
  where callers get that map: a static JSON file for local runs and tests,
  or a remote HTTP price API behind a per-instance rate limiter.

KEY TYPES:
  Source:     Prices / Cards / SetNames for a set of card ids
  Static:     in-memory catalog, optionally loaded from a JSON file
  HTTPSource: remote catalog client (http.go)

MISSING DATA:
  Unknown cards are omitted from the returned maps. A card without a
  usable price is reported with Price 0, which valuation treats as
  unpriced.

SEE ALSO:
  - valuation/value.go: PriceMap and CardDataMap consumers
*/
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/valuation"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrInvalidCatalog     = errors.New("invalid catalog data")
)

// Source resolves catalog data for card ids.
type Source interface {
	Prices(ctx context.Context, ids []card.ID) (valuation.PriceMap, error)
	Cards(ctx context.Context, ids []card.ID) (valuation.CardDataMap, error)
	SetNames(ctx context.Context) (map[string]string, error)
}

// Card is the wire and file shape of one catalog record.
type Card struct {
	ID       card.ID  `json:"id"`
	Name     string   `json:"name"`
	SetID    string   `json:"set_id,omitempty"`
	SetName  string   `json:"set_name,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Rarity   string   `json:"rarity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

func (c Card) data() valuation.CardData {
	d := valuation.CardData{
		Name:     c.Name,
		SetName:  c.SetName,
		ImageURL: c.ImageURL,
		Rarity:   c.Rarity,
	}
	if c.Price != nil {
		d.Price = *c.Price
	}
	return d
}

func (c Card) setID() string {
	if c.SetID != "" {
		return c.SetID
	}
	return card.ExtractSetID(c.ID)
}

// =============================================================================
// STATIC SOURCE
// =============================================================================

// Static serves a fixed catalog. It is safe for concurrent use because it
// is never modified after construction.
type Static struct {
	cards map[card.ID]Card
	sets  map[string]string
}

var _ Source = (*Static)(nil)

type staticFile struct {
	Sets  map[string]string `json:"sets"`
	Cards []Card            `json:"cards"`
}

// NewStatic builds a catalog from records and explicit set names. Set names
// not given explicitly are taken from the cards.
func NewStatic(cards []Card, sets map[string]string) *Static {
	s := &Static{
		cards: make(map[card.ID]Card, len(cards)),
		sets:  make(map[string]string, len(sets)),
	}
	for id, name := range sets {
		s.sets[id] = name
	}
	for _, c := range cards {
		s.cards[c.ID] = c
		if setID := c.setID(); setID != "" && c.SetName != "" {
			if _, ok := s.sets[setID]; !ok {
				s.sets[setID] = c.SetName
			}
		}
	}
	return s
}

// LoadStatic reads a catalog file of the form
//
//	{"sets": {"sv1": "Scarlet & Violet"}, "cards": [{"id": "sv1-25", "name": "Pikachu", "price": 1.25}]}
func LoadStatic(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	var f staticFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, path, err)
	}
	for i, c := range f.Cards {
		if !card.IsValidCardID(c.ID) {
			return nil, fmt.Errorf("%w: card %d has id %q", ErrInvalidCatalog, i, c.ID)
		}
	}
	return NewStatic(f.Cards, f.Sets), nil
}

func (s *Static) Prices(ctx context.Context, ids []card.ID) (valuation.PriceMap, error) {
	cards, err := s.Cards(ctx, ids)
	if err != nil {
		return nil, err
	}
	return cards.Prices(), nil
}

func (s *Static) Cards(_ context.Context, ids []card.ID) (valuation.CardDataMap, error) {
	out := make(valuation.CardDataMap, len(ids))
	for _, id := range ids {
		if c, ok := s.cards[id]; ok {
			out[id] = c.data()
		}
	}
	return out, nil
}

func (s *Static) SetNames(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s.sets))
	for id, name := range s.sets {
		out[id] = name
	}
	return out, nil
}
