/*
Package service runs ledger operations against persisted collections.

PURPOSE:
  The engines in collection, trade, valuation and milestone are pure. This
  package is the caller they assume: it opens one storage transaction per
  operation, feeds the snapshot to the engine, writes the result back and
  then tells the outside world (events, metrics, logs).

TRANSACTION SHAPE:
  Every mutation is one WithTx:

    1. Load the collector's snapshot
    2. Run the pure operation
    3. Save the new snapshot
    4. Record the trade and any newly crossed milestones
    5. Commit

  Events and metrics are emitted only after a successful commit.

ERRORS:
  Input problems surface as the engines' typed errors (collection.NotFoundError,
  collection.ErrInvalidQuantity, *store.RejectedError, ...) and are
  classified with store.IsClientError / store.IsNotFound by the HTTP layer.

SEE ALSO:
  - store/store.go: TxStore contract
  - api/handlers.go: HTTP surface over this package
*/
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/catalog"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/events"
	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/metrics"
	"github.com/warp/card-ledger/milestone"
	"github.com/warp/card-ledger/store"
	"github.com/warp/card-ledger/trade"
	"github.com/warp/card-ledger/valuation"
)

// Service is safe for concurrent use; serialization of writers to the same
// collector is the store's job.
type Service struct {
	store     store.TxStore
	catalog   catalog.Source
	events    events.Publisher
	metrics   *metrics.Manager
	log       logger.Logger
	validator *trade.Validator
	currency  string
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

func WithCatalog(src catalog.Source) Option {
	return func(s *Service) { s.catalog = src }
}

func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithTradeLimits(l trade.Limits) Option {
	return func(s *Service) { s.validator = trade.NewValidator(l) }
}

func WithCurrency(code string) Option {
	return func(s *Service) { s.currency = code }
}

// WithClock replaces time.Now for trade and milestone timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the random trade and event IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a service over st. Without options it has an empty catalog,
// drops events and logs nothing.
func New(st store.TxStore, opts ...Option) *Service {
	s := &Service{
		store:     st,
		catalog:   catalog.NewStatic(nil, nil),
		events:    events.Nop{},
		log:       logger.Nop(),
		validator: trade.NewValidator(trade.DefaultLimits()),
		currency:  valuation.DefaultCurrency,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Currency is the code valuations are reported in.
func (s *Service) Currency() string { return s.currency }

// =============================================================================
// COLLECTION READS
// =============================================================================

// Collection returns the collector's snapshot. Unknown collectors have an
// empty collection.
func (s *Service) Collection(ctx context.Context, id store.CollectorID) (collection.Collection, error) {
	if err := store.ValidateCollectorID(id); err != nil {
		return nil, err
	}
	return s.store.Load(ctx, id)
}

// Collectors lists every collector with a saved collection.
func (s *Service) Collectors(ctx context.Context) ([]store.CollectorID, error) {
	return s.store.Collectors(ctx)
}

// Comparison is the card-id overlap of two collections.
type Comparison struct {
	Shared []card.ID `json:"shared"`
	OnlyA  []card.ID `json:"only_a"`
	OnlyB  []card.ID `json:"only_b"`
}

// Compare reports which cards a and b have in common and which only one
// of them owns.
func (s *Service) Compare(ctx context.Context, a, b store.CollectorID) (Comparison, error) {
	ca, err := s.Collection(ctx, a)
	if err != nil {
		return Comparison{}, err
	}
	cb, err := s.Collection(ctx, b)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		Shared: collection.SharedCardIDs(ca, cb),
		OnlyA:  collection.UniqueCardIDs(ca, cb),
		OnlyB:  collection.UniqueCardIDs(cb, ca),
	}, nil
}

// =============================================================================
// COLLECTION MUTATIONS
// =============================================================================

// MutationResult is the outcome of a committed collection change.
type MutationResult struct {
	Collection collection.Collection  `json:"collection"`
	IsNew      bool                   `json:"is_new"`
	Removed    int                    `json:"removed,omitempty"`
	TotalCards int                    `json:"total_cards"`
	Milestones []milestone.Definition `json:"milestones"`
}

// AddCard adds quantity copies of a card.
func (s *Service) AddCard(ctx context.Context, id store.CollectorID, cardID card.ID, quantity int, v card.Variant) (MutationResult, error) {
	var isNew bool
	res, err := s.mutate(ctx, id, "add", func(c collection.Collection) (collection.Collection, error) {
		out, created, err := collection.Add(c, cardID, quantity, v)
		isNew = created
		return out, err
	})
	res.IsNew = isNew
	s.publishChange(ctx, id, "add", cardID, v, quantity, res, err)
	return res, err
}

// RemoveCard deletes the (card, variant) entry, or every variant of the
// card when v is empty. Removing nothing is a not-found error.
func (s *Service) RemoveCard(ctx context.Context, id store.CollectorID, cardID card.ID, v card.Variant) (MutationResult, error) {
	var removed int
	res, err := s.mutate(ctx, id, "remove", func(c collection.Collection) (collection.Collection, error) {
		var out collection.Collection
		if v == "" {
			out, removed = collection.RemoveAll(c, cardID)
		} else {
			out, removed = collection.Remove(c, cardID, v)
		}
		if removed == 0 {
			return nil, &collection.NotFoundError{CardID: cardID, Variant: v}
		}
		return out, nil
	})
	res.Removed = removed
	s.publishChange(ctx, id, "remove", cardID, v, 0, res, err)
	return res, err
}

// UpdateQuantity overwrites the quantity of an existing entry; zero or less
// removes it.
func (s *Service) UpdateQuantity(ctx context.Context, id store.CollectorID, cardID card.ID, quantity int, v card.Variant) (MutationResult, error) {
	res, err := s.mutate(ctx, id, "update", func(c collection.Collection) (collection.Collection, error) {
		return collection.UpdateQuantity(c, cardID, quantity, v)
	})
	s.publishChange(ctx, id, "update", cardID, v, quantity, res, err)
	return res, err
}

// Increment adds one copy, creating the entry if needed.
func (s *Service) Increment(ctx context.Context, id store.CollectorID, cardID card.ID, v card.Variant) (MutationResult, error) {
	res, err := s.mutate(ctx, id, "increment", func(c collection.Collection) (collection.Collection, error) {
		return collection.Increment(c, cardID, v)
	})
	s.publishChange(ctx, id, "increment", cardID, v, 1, res, err)
	return res, err
}

// Decrement removes one copy; the entry disappears at zero.
func (s *Service) Decrement(ctx context.Context, id store.CollectorID, cardID card.ID, v card.Variant) (MutationResult, error) {
	res, err := s.mutate(ctx, id, "decrement", func(c collection.Collection) (collection.Collection, error) {
		return collection.Decrement(c, cardID, v)
	})
	s.publishChange(ctx, id, "decrement", cardID, v, 1, res, err)
	return res, err
}

// mutate runs fn inside one transaction and records milestones crossed by
// the change. This is TRANSACTIONAL: if fn or any write fails, nothing is
// persisted. Callers publish the outcome with publishChange.
func (s *Service) mutate(ctx context.Context, id store.CollectorID, op string, fn func(collection.Collection) (collection.Collection, error)) (MutationResult, error) {
	if err := store.ValidateCollectorID(id); err != nil {
		return MutationResult{}, err
	}

	var res MutationResult
	start := time.Now()
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		before, err := tx.Load(ctx, id)
		if err != nil {
			return err
		}
		after, err := fn(before)
		if err != nil {
			return err
		}
		if err := tx.Save(ctx, id, after); err != nil {
			return err
		}
		reached, err := s.celebrate(ctx, tx, id, collection.TotalCards(before), collection.TotalCards(after))
		if err != nil {
			return err
		}
		res = MutationResult{
			Collection: after,
			TotalCards: collection.TotalCards(after),
			Milestones: reached,
		}
		return nil
	})
	s.metrics.ObserveTx(time.Since(start))
	if err != nil {
		return MutationResult{}, err
	}

	s.metrics.RecordMutation(op)
	return res, nil
}

func (s *Service) publishChange(ctx context.Context, id store.CollectorID, op string, cardID card.ID, v card.Variant, qty int, res MutationResult, err error) {
	if err != nil {
		if !store.IsClientError(err) && !store.IsNotFound(err) {
			s.log.Error(ctx, "collection update failed",
				logger.String("collector_id", string(id)),
				logger.String("op", op),
				logger.Error(err))
		}
		return
	}
	s.log.Debug(ctx, "collection updated",
		logger.String("collector_id", string(id)),
		logger.String("op", op),
		logger.String("card_id", string(cardID)),
		logger.Int("total_cards", res.TotalCards))
	s.publish(ctx, id, events.TypeCollectionChanged, events.CollectionChanged{
		Op:         op,
		CardID:     cardID,
		Variant:    v,
		Quantity:   qty,
		TotalCards: res.TotalCards,
	})
	s.afterMilestones(ctx, id, res.Milestones)
}

func (s *Service) publish(ctx context.Context, id store.CollectorID, t events.Type, payload any) {
	s.events.Publish(ctx, events.Event{
		ID:          s.newID(),
		Type:        t,
		CollectorID: string(id),
		At:          s.now().UTC(),
		Payload:     payload,
	})
}

// =============================================================================
// MILESTONES
// =============================================================================

// celebrate marks every milestone crossed between prev and next that has
// not been celebrated before, and returns those, lowest first.
func (s *Service) celebrate(ctx context.Context, tx store.Store, id store.CollectorID, prev, next int) ([]milestone.Definition, error) {
	crossed := milestone.AllCrossed(prev, next)
	if len(crossed) == 0 {
		return []milestone.Definition{}, nil
	}
	done, err := tx.CelebratedMilestones(ctx, id)
	if err != nil {
		return nil, err
	}
	fresh := milestone.Uncelebrated(crossed, done)
	if fresh == nil {
		fresh = []milestone.Definition{}
	}
	at := s.now()
	for _, d := range fresh {
		if err := tx.MarkCelebrated(ctx, id, d.Key, at); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

func (s *Service) afterMilestones(ctx context.Context, id store.CollectorID, reached []milestone.Definition) {
	for _, d := range reached {
		s.metrics.RecordMilestone(d.Key)
		s.log.Info(ctx, "milestone reached",
			logger.String("collector_id", string(id)),
			logger.String("milestone", d.Key))
		s.publish(ctx, id, events.TypeMilestoneReached, events.MilestoneReached{
			Key:       d.Key,
			Name:      d.Name,
			Message:   d.Message,
			Threshold: d.Threshold,
			Intensity: d.Intensity,
		})
	}
}

// MilestoneStatus is a collector's place on the milestone ladder.
type MilestoneStatus struct {
	Progress   milestone.Progress     `json:"progress"`
	Celebrated []milestone.Definition `json:"celebrated"`
}

// MilestoneProgress reports progress toward the next milestone and the
// milestones already celebrated, in ladder order.
func (s *Service) MilestoneProgress(ctx context.Context, id store.CollectorID) (MilestoneStatus, error) {
	c, err := s.Collection(ctx, id)
	if err != nil {
		return MilestoneStatus{}, err
	}
	done, err := s.store.CelebratedMilestones(ctx, id)
	if err != nil {
		return MilestoneStatus{}, err
	}
	status := MilestoneStatus{
		Progress:   milestone.ProgressFor(collection.TotalCards(c)),
		Celebrated: []milestone.Definition{},
	}
	for _, d := range milestone.All() {
		if done[d.Key] {
			status.Celebrated = append(status.Celebrated, d)
		}
	}
	return status, nil
}
