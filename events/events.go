/*
Package events is the ledger's activity feed.

PURPOSE:
  Mutations committed by the service emit events. The in-process Bus keeps
  a bounded history per process, fans events out to local subscribers and
  forwards them to an optional upstream such as NATS.

DELIVERY:
  Publishing never blocks and never fails the caller. A slow subscriber
  misses events; an upstream error is logged and counted.

EVENT TYPES:
  collection.changed  a card was added, removed or had its quantity changed
  trade.executed      a trade was applied to a collection
  milestone.reached   a collection crossed a milestone for the first time

SEE ALSO:
  - events/nats.go: NATS upstream
  - service/service.go: the publisher
*/
package events

import (
	"context"
	"sync"
	"time"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/metrics"
	"github.com/warp/card-ledger/milestone"
	"github.com/warp/card-ledger/trade"
)

// Type names an event.
type Type string

const (
	TypeCollectionChanged Type = "collection.changed"
	TypeTradeExecuted     Type = "trade.executed"
	TypeMilestoneReached  Type = "milestone.reached"
)

// Event is one entry of the activity feed.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	CollectorID string    `json:"collector_id"`
	At          time.Time `json:"at"`
	Payload     any       `json:"payload"`
}

// =============================================================================
// PAYLOADS
// =============================================================================

// CollectionChanged is the payload of TypeCollectionChanged.
type CollectionChanged struct {
	Op         string       `json:"op"`
	CardID     card.ID      `json:"card_id"`
	Variant    card.Variant `json:"variant,omitempty"`
	Quantity   int          `json:"quantity"`
	TotalCards int          `json:"total_cards"`
}

// TradeExecuted is the payload of TypeTradeExecuted.
type TradeExecuted struct {
	TradeID     string     `json:"trade_id"`
	Partner     string     `json:"trading_partner,omitempty"`
	Kind        trade.Kind `json:"kind"`
	NetChange   int        `json:"net_change"`
	Description string     `json:"description"`
}

// MilestoneReached is the payload of TypeMilestoneReached.
type MilestoneReached struct {
	Key       string              `json:"key"`
	Name      string              `json:"name"`
	Message   string              `json:"message"`
	Threshold int                 `json:"threshold"`
	Intensity milestone.Intensity `json:"intensity"`
}

// =============================================================================
// PUBLISHER
// =============================================================================

// Publisher accepts events. Implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Upstream forwards events out of the process.
type Upstream interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// =============================================================================
// BUS
// =============================================================================

const (
	defaultHistory   = 500
	subscriberBuffer = 64
)

// Bus is the in-process Publisher.
type Bus struct {
	mu       sync.RWMutex
	subs     map[chan Event]struct{}
	history  []Event
	capacity int

	upstream Upstream
	metrics  *metrics.Manager
	log      logger.Logger
}

var _ Publisher = (*Bus)(nil)

// BusOption configures a Bus.
type BusOption func(*Bus)

func WithUpstream(u Upstream) BusOption {
	return func(b *Bus) { b.upstream = u }
}

func WithMetrics(m *metrics.Manager) BusOption {
	return func(b *Bus) { b.metrics = m }
}

func WithLogger(l logger.Logger) BusOption {
	return func(b *Bus) { b.log = l }
}

// WithHistory sets how many events Recent can see.
func WithHistory(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subs:     make(map[chan Event]struct{}),
		capacity: defaultHistory,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish records e, delivers it to subscribers and forwards it upstream.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.Lock()
	b.history = append(b.history, e)
	if over := len(b.history) - b.capacity; over > 0 {
		b.history = append([]Event(nil), b.history[over:]...)
	}
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Warn(ctx, "dropping event for slow subscriber", logger.String("type", string(e.Type)))
		}
	}
	b.mu.Unlock()

	b.metrics.RecordEvent(string(e.Type))

	if b.upstream != nil {
		if err := b.upstream.Send(ctx, e); err != nil {
			b.metrics.RecordEventError()
			b.log.Error(ctx, "failed to forward event",
				logger.String("type", string(e.Type)),
				logger.String("collector_id", e.CollectorID),
				logger.Error(err))
		}
	}
}

// Subscribe returns a channel of future events and a function that ends
// the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

// Recent returns up to limit of the collector's latest events, newest
// first. limit <= 0 means everything retained.
func (b *Bus) Recent(collectorID string, limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := []Event{}
	for i := len(b.history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if b.history[i].CollectorID == collectorID {
			out = append(out, b.history[i])
		}
	}
	return out
}

// Close ends every subscription and closes the upstream.
func (b *Bus) Close() error {
	b.mu.Lock()
	for ch := range b.subs {
		close(ch)
	}
	b.subs = make(map[chan Event]struct{})
	b.mu.Unlock()

	if b.upstream != nil {
		return b.upstream.Close()
	}
	return nil
}
