// Package memory provides an in-memory store.TxStore.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	ledgers    map[store.CollectorID]collection.Collection
	order      []store.CollectorID
	trades     map[store.CollectorID][]store.TradeRecord
	tradeIDs   map[string]bool
	celebrated map[store.CollectorID]map[string]time.Time
	snapshots  map[store.CollectorID][]store.ValueSnapshot
}

var _ store.TxStore = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		ledgers:    make(map[store.CollectorID]collection.Collection),
		trades:     make(map[store.CollectorID][]store.TradeRecord),
		tradeIDs:   make(map[string]bool),
		celebrated: make(map[store.CollectorID]map[string]time.Time),
		snapshots:  make(map[store.CollectorID][]store.ValueSnapshot),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Load(ctx context.Context, id store.CollectorID) (collection.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().Load(ctx, id)
}

func (m *Memory) Save(ctx context.Context, id store.CollectorID, c collection.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().Save(ctx, id, c)
}

func (m *Memory) Collectors(ctx context.Context) ([]store.CollectorID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().Collectors(ctx)
}

func (m *Memory) AppendTrade(ctx context.Context, rec store.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().AppendTrade(ctx, rec)
}

func (m *Memory) Trades(ctx context.Context, id store.CollectorID, limit int) ([]store.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().Trades(ctx, id, limit)
}

func (m *Memory) CelebratedMilestones(ctx context.Context, id store.CollectorID) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().CelebratedMilestones(ctx, id)
}

func (m *Memory) MarkCelebrated(ctx context.Context, id store.CollectorID, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().MarkCelebrated(ctx, id, key, at)
}

func (m *Memory) SaveValueSnapshot(ctx context.Context, snap store.ValueSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().SaveValueSnapshot(ctx, snap)
}

func (m *Memory) ValueSnapshots(ctx context.Context, id store.CollectorID, limit int) ([]store.ValueSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ValueSnapshots(ctx, id, limit)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn while holding the write lock. Writes go straight to
// the maps; on error the pre-transaction snapshot is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(m.view()); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	ledgers    map[store.CollectorID]collection.Collection
	order      []store.CollectorID
	trades     map[store.CollectorID][]store.TradeRecord
	tradeIDs   map[string]bool
	celebrated map[store.CollectorID]map[string]time.Time
	snapshots  map[store.CollectorID][]store.ValueSnapshot
}

// snapshot copies the maps. Stored slices are never appended to in place
// (see txView), so sharing their backing arrays is safe.
func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		ledgers:    make(map[store.CollectorID]collection.Collection, len(m.ledgers)),
		order:      slices.Clone(m.order),
		trades:     make(map[store.CollectorID][]store.TradeRecord, len(m.trades)),
		tradeIDs:   make(map[string]bool, len(m.tradeIDs)),
		celebrated: make(map[store.CollectorID]map[string]time.Time, len(m.celebrated)),
		snapshots:  make(map[store.CollectorID][]store.ValueSnapshot, len(m.snapshots)),
	}
	for k, v := range m.ledgers {
		s.ledgers[k] = v
	}
	for k, v := range m.trades {
		s.trades[k] = v
	}
	for k, v := range m.tradeIDs {
		s.tradeIDs[k] = v
	}
	for k, v := range m.celebrated {
		inner := make(map[string]time.Time, len(v))
		for mk, mv := range v {
			inner[mk] = mv
		}
		s.celebrated[k] = inner
	}
	for k, v := range m.snapshots {
		s.snapshots[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.ledgers = s.ledgers
	m.order = s.order
	m.trades = s.trades
	m.tradeIDs = s.tradeIDs
	m.celebrated = s.celebrated
	m.snapshots = s.snapshots
}

func (m *Memory) view() *txView { return &txView{m: m} }

// txView operates on Memory without locking; callers hold the lock.
type txView struct {
	m *Memory
}

func (v *txView) Load(_ context.Context, id store.CollectorID) (collection.Collection, error) {
	return v.m.ledgers[id].Clone(), nil
}

func (v *txView) Save(_ context.Context, id store.CollectorID, c collection.Collection) error {
	if err := store.ValidateCollectorID(id); err != nil {
		return err
	}
	if err := collection.Validate(c); err != nil {
		return err
	}
	if _, ok := v.m.ledgers[id]; !ok {
		v.m.order = append(slices.Clone(v.m.order), id)
	}
	v.m.ledgers[id] = c.Clone()
	return nil
}

func (v *txView) Collectors(_ context.Context) ([]store.CollectorID, error) {
	return slices.Clone(v.m.order), nil
}

func (v *txView) AppendTrade(_ context.Context, rec store.TradeRecord) error {
	if v.m.tradeIDs[rec.ID] {
		return fmt.Errorf("%w: %s", store.ErrDuplicateTrade, rec.ID)
	}
	v.m.tradeIDs[rec.ID] = true
	v.m.trades[rec.CollectorID] = append(slices.Clone(v.m.trades[rec.CollectorID]), rec)
	return nil
}

func (v *txView) Trades(_ context.Context, id store.CollectorID, limit int) ([]store.TradeRecord, error) {
	all := v.m.trades[id]
	out := make([]store.TradeRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}

func (v *txView) CelebratedMilestones(_ context.Context, id store.CollectorID) (map[string]bool, error) {
	out := make(map[string]bool, len(v.m.celebrated[id]))
	for k := range v.m.celebrated[id] {
		out[k] = true
	}
	return out, nil
}

func (v *txView) MarkCelebrated(_ context.Context, id store.CollectorID, key string, at time.Time) error {
	inner, ok := v.m.celebrated[id]
	if !ok {
		inner = make(map[string]time.Time)
		v.m.celebrated[id] = inner
	}
	if _, done := inner[key]; !done {
		inner[key] = at
	}
	return nil
}

func (v *txView) SaveValueSnapshot(_ context.Context, snap store.ValueSnapshot) error {
	if err := store.ValidateCollectorID(snap.CollectorID); err != nil {
		return err
	}
	v.m.snapshots[snap.CollectorID] = append(slices.Clone(v.m.snapshots[snap.CollectorID]), snap)
	return nil
}

func (v *txView) ValueSnapshots(_ context.Context, id store.CollectorID, limit int) ([]store.ValueSnapshot, error) {
	all := v.m.snapshots[id]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]store.ValueSnapshot{}, all...), nil
}
