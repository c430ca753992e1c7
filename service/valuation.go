package service

import (
	"context"
	"fmt"

	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/store"
	"github.com/warp/card-ledger/valuation"
)

// =============================================================================
// VALUATION
// =============================================================================

// ValuationReport is everything the valuation engine says about one
// collection at current catalog prices.
type ValuationReport struct {
	valuation.Value
	Total      valuation.Money        `json:"total"`
	Statistics valuation.Stats        `json:"statistics"`
	Tiers      map[valuation.Tier]int `json:"tiers"`
}

func (s *Service) priced(ctx context.Context, id store.CollectorID) (collection.Collection, valuation.PriceMap, error) {
	c, err := s.Collection(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	prices, err := s.catalog.Prices(ctx, collection.CardIDs(c))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prices: %w", err)
	}
	return c, prices, nil
}

// Valuation values the collector's collection.
func (s *Service) Valuation(ctx context.Context, id store.CollectorID) (ValuationReport, error) {
	c, prices, err := s.priced(ctx, id)
	if err != nil {
		return ValuationReport{}, err
	}
	v := valuation.CalculateValue(c, prices)
	return ValuationReport{
		Value:      v,
		Total:      v.Total(s.currency),
		Statistics: valuation.Statistics(c, prices),
		Tiers:      valuation.CountByTier(c, prices),
	}, nil
}

// TopCards returns the limit most valuable entries. limit <= 0 uses
// valuation.DefaultTopLimit.
func (s *Service) TopCards(ctx context.Context, id store.CollectorID, limit int) ([]valuation.RankedCard, error) {
	c, err := s.Collection(ctx, id)
	if err != nil {
		return nil, err
	}
	cards, err := s.catalog.Cards(ctx, collection.CardIDs(c))
	if err != nil {
		return nil, fmt.Errorf("failed to load card data: %w", err)
	}
	if limit <= 0 {
		limit = valuation.DefaultTopLimit
	}
	return valuation.MostValuable(c, cards, limit), nil
}

// ValueBySet breaks the collection's value down per set.
func (s *Service) ValueBySet(ctx context.Context, id store.CollectorID) ([]valuation.SetValue, error) {
	c, prices, err := s.priced(ctx, id)
	if err != nil {
		return nil, err
	}
	names, err := s.catalog.SetNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load set names: %w", err)
	}
	return valuation.ValueBySet(c, prices, names), nil
}

// =============================================================================
// VALUE HISTORY
// =============================================================================

// SnapshotValue values the collection now and appends it to the history.
func (s *Service) SnapshotValue(ctx context.Context, id store.CollectorID) (store.ValueSnapshot, error) {
	c, prices, err := s.priced(ctx, id)
	if err != nil {
		return store.ValueSnapshot{}, err
	}
	v := valuation.CalculateValue(c, prices)
	snap := store.ValueSnapshot{
		CollectorID:   id,
		TotalValue:    v.TotalValue,
		Currency:      s.currency,
		ValuedCount:   v.ValuedCount,
		UnvaluedCount: v.UnvaluedCount,
		TotalCount:    v.TotalCount,
		TakenAt:       s.now().UTC(),
	}
	if err := s.store.SaveValueSnapshot(ctx, snap); err != nil {
		return store.ValueSnapshot{}, err
	}
	s.metrics.RecordValueSnapshot()
	return snap, nil
}

// SnapshotAll snapshots every collector and returns how many succeeded.
// A failure for one collector is logged and does not stop the rest.
func (s *Service) SnapshotAll(ctx context.Context) (int, error) {
	ids, err := s.store.Collectors(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.SnapshotValue(ctx, id); err != nil {
			s.log.Error(ctx, "value snapshot failed",
				logger.String("collector_id", string(id)),
				logger.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// ValueHistory returns the latest limit snapshots, oldest first.
func (s *Service) ValueHistory(ctx context.Context, id store.CollectorID, limit int) ([]store.ValueSnapshot, error) {
	if err := store.ValidateCollectorID(id); err != nil {
		return nil, err
	}
	return s.store.ValueSnapshots(ctx, id, limit)
}
