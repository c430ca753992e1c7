package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/events"
	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/milestone"
	"github.com/warp/card-ledger/store"
	"github.com/warp/card-ledger/trade"
)

// =============================================================================
// TRADES
// =============================================================================

// TradeResult is a committed trade.
type TradeResult struct {
	Trade      store.TradeRecord      `json:"trade"`
	Report     trade.Report           `json:"report"`
	Collection collection.Collection  `json:"collection"`
	TotalCards int                    `json:"total_cards"`
	Milestones []milestone.Definition `json:"milestones"`
}

// ValidateTrade checks p against the collector's current collection
// without changing anything.
func (s *Service) ValidateTrade(ctx context.Context, id store.CollectorID, p trade.Proposal) (trade.Report, error) {
	c, err := s.Collection(ctx, id)
	if err != nil {
		return trade.Report{}, err
	}
	return s.validator.Validate(c, p), nil
}

// ExecuteTrade validates and applies p.
// This is TRANSACTIONAL:
//   - Validation runs against the snapshot read inside the transaction
//   - The new collection, the trade record and crossed milestones are
//     written together
//
// An invalid trade returns *store.RejectedError carrying the full report.
// Warnings (gift, donation, duplicate lines) do not block execution.
func (s *Service) ExecuteTrade(ctx context.Context, id store.CollectorID, p trade.Proposal) (TradeResult, error) {
	if err := store.ValidateCollectorID(id); err != nil {
		return TradeResult{}, err
	}

	p.Partner = strings.TrimSpace(p.Partner)
	var res TradeResult
	start := time.Now()
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		before, err := tx.Load(ctx, id)
		if err != nil {
			return err
		}

		report := s.validator.Validate(before, p)
		if !report.Valid {
			return &store.RejectedError{Report: report}
		}

		after := trade.Apply(before, p)
		if err := tx.Save(ctx, id, after); err != nil {
			return err
		}

		rec := store.TradeRecord{
			ID:          s.newID(),
			CollectorID: id,
			Given:       trade.Normalize(p.Given),
			Received:    trade.Normalize(p.Received),
			Partner:     p.Partner,
			Summary:     trade.Summarize(p),
			Description: trade.Describe(p),
			ExecutedAt:  s.now().UTC(),
		}
		if err := tx.AppendTrade(ctx, rec); err != nil {
			return err
		}

		reached, err := s.celebrate(ctx, tx, id, collection.TotalCards(before), collection.TotalCards(after))
		if err != nil {
			return err
		}

		res = TradeResult{
			Trade:      rec,
			Report:     report,
			Collection: after,
			TotalCards: collection.TotalCards(after),
			Milestones: reached,
		}
		return nil
	})
	s.metrics.ObserveTx(time.Since(start))

	if err != nil {
		var rejected *store.RejectedError
		if errors.As(err, &rejected) {
			codes := make([]string, 0, len(rejected.Report.Errors))
			for _, issue := range rejected.Report.Errors {
				codes = append(codes, string(issue.Code))
			}
			s.metrics.RecordTradeRejected(codes...)
			s.log.Info(ctx, "trade rejected",
				logger.String("collector_id", string(id)),
				logger.String("codes", strings.Join(codes, ",")))
		} else if !store.IsClientError(err) {
			s.log.Error(ctx, "trade failed",
				logger.String("collector_id", string(id)),
				logger.Error(err))
		}
		return TradeResult{}, err
	}

	s.metrics.RecordTradeExecuted()
	s.log.Info(ctx, "trade executed",
		logger.String("collector_id", string(id)),
		logger.String("trade_id", res.Trade.ID),
		logger.String("kind", string(res.Trade.Summary.Kind)),
		logger.Int("net_change", res.Trade.Summary.NetChange))
	s.publish(ctx, id, events.TypeTradeExecuted, events.TradeExecuted{
		TradeID:     res.Trade.ID,
		Partner:     res.Trade.Partner,
		Kind:        res.Trade.Summary.Kind,
		NetChange:   res.Trade.Summary.NetChange,
		Description: res.Trade.Description,
	})
	s.afterMilestones(ctx, id, res.Milestones)
	return res, nil
}

// Trades returns the collector's trade history, newest first. limit <= 0
// returns everything.
func (s *Service) Trades(ctx context.Context, id store.CollectorID, limit int) ([]store.TradeRecord, error) {
	if err := store.ValidateCollectorID(id); err != nil {
		return nil, err
	}
	return s.store.Trades(ctx, id, limit)
}
