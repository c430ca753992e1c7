/*
Package store defines persistence for collector ledgers.

PURPOSE:
  The ledger engines in collection, trade, valuation and milestone are pure:
  they take a snapshot and return a new one. This package is the boundary
  that supplies those snapshots and persists the results, together with the
  trade history, celebrated milestones and value history.

KEY INTERFACES:
  Store:   per-collector snapshot load/save plus history tables
  TxStore: Store with WithTx, the atomic read-modify-write boundary

ATOMICITY:
  Every mutation follows the same shape:

    WithTx(func(tx Store) error {
        c   := tx.Load(collector)      // snapshot as of the tx
        c2  := <pure engine>(c, ...)   // never mutates c
        tx.Save(collector, c2)
        tx.AppendTrade / MarkCelebrated ...
    })

  Concurrent writers to the same collector are serialized by the store
  (mutex for memory and sqlite, a row lock for postgres). The engines do no
  concurrency checks of their own.

UNIQUENESS:
  (collector, card, variant) is unique. Save rejects a snapshot with
  duplicate keys, and the SQL schemas carry the same primary key as a
  backstop.

IMPLEMENTATIONS:
  - store/memory:   in-process, snapshot + rollback transactions
  - store/sqlite:   mattn/go-sqlite3 with embedded migrations
  - store/postgres: lib/pq with embedded migrations
  - store/sqlstore: the shared database/sql implementation behind both

SEE ALSO:
  - service/service.go: the only caller that opens transactions
*/
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/trade"
)

// CollectorID identifies the owner of a ledger.
type CollectorID string

// =============================================================================
// RECORDS
// =============================================================================

// TradeRecord is an executed trade.
type TradeRecord struct {
	ID          string        `json:"id"`
	CollectorID CollectorID   `json:"collector_id"`
	Given       []trade.Line  `json:"cards_given"`
	Received    []trade.Line  `json:"cards_received"`
	Partner     string        `json:"trading_partner,omitempty"`
	Summary     trade.Summary `json:"summary"`
	Description string        `json:"description"`
	ExecutedAt  time.Time     `json:"executed_at"`
}

// ValueSnapshot is a collection's value at one point in time.
type ValueSnapshot struct {
	CollectorID   CollectorID     `json:"collector_id"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Currency      string          `json:"currency"`
	ValuedCount   int             `json:"valued_count"`
	UnvaluedCount int             `json:"unvalued_count"`
	TotalCount    int             `json:"total_count"`
	TakenAt       time.Time       `json:"taken_at"`
}

// =============================================================================
// STORE
// =============================================================================

// Store persists ledgers and their history.
type Store interface {
	// Load returns the collector's collection in saved order. An unknown
	// collector has an empty collection.
	Load(ctx context.Context, id CollectorID) (collection.Collection, error)

	// Save replaces the collector's collection.
	Save(ctx context.Context, id CollectorID, c collection.Collection) error

	// Collectors lists every collector that has saved a collection.
	Collectors(ctx context.Context) ([]CollectorID, error)

	// AppendTrade records an executed trade. IDs are unique.
	AppendTrade(ctx context.Context, rec TradeRecord) error

	// Trades returns up to limit trades, newest first. limit <= 0 means all.
	Trades(ctx context.Context, id CollectorID, limit int) ([]TradeRecord, error)

	// CelebratedMilestones returns the keys already celebrated.
	CelebratedMilestones(ctx context.Context, id CollectorID) (map[string]bool, error)

	// MarkCelebrated records a milestone once; repeats are ignored.
	MarkCelebrated(ctx context.Context, id CollectorID, key string, at time.Time) error

	// SaveValueSnapshot appends to the collector's value history.
	SaveValueSnapshot(ctx context.Context, snap ValueSnapshot) error

	// ValueSnapshots returns the latest limit snapshots, oldest first.
	// limit <= 0 means all.
	ValueSnapshots(ctx context.Context, id CollectorID, limit int) ([]ValueSnapshot, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	Close() error
}
