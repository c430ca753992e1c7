/*
Package sqlstore implements store.TxStore on database/sql.

PURPOSE:
  SQLite and PostgreSQL share one schema shape and one set of queries. The
  dialect only changes placeholder syntax and whether a transaction takes a
  row lock on the collector before reading its ledger.

KEY TABLES:
  collectors:            one row per collector, locked by postgres transactions
  collection_entries:    PRIMARY KEY(collector_id, card_id, variant), ordered by position
  trades:                executed trades with JSON line lists
  celebrated_milestones: PRIMARY KEY(collector_id, milestone_key)
  value_snapshots:       append-only value history

SAVE:
  Save replaces a collector's rows with the new snapshot: delete, then
  insert with position = index. Run it inside WithTx so readers never see
  the gap.

CONCURRENCY:
  SQLite: a process-wide sync.RWMutex serializes writers.
  PostgreSQL: Load inside WithTx runs SELECT ... FOR UPDATE on the
  collector row, so concurrent read-modify-write cycles queue up.

SEE ALSO:
  - store/sqlite/sqlite.go and store/postgres/postgres.go: open + migrate
*/
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/store"
	"github.com/warp/card-ledger/trade"
)

// Dialect captures the differences between SQL backends.
type Dialect struct {
	Name string

	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool

	// RowLocks enables SELECT ... FOR UPDATE on the collector inside WithTx.
	RowLocks bool
}

var (
	SQLite   = Dialect{Name: "sqlite3"}
	Postgres = Dialect{Name: "postgres", Numbered: true, RowLocks: true}
)

// rebind rewrites ? placeholders for numbered dialects.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.TxStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.RWMutex
}

var _ store.TxStore = (*Store)(nil)

// New wraps an open, migrated database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) conn() *conn {
	return &conn{q: s.db, dialect: s.dialect}
}

// =============================================================================
// STORE (non-transactional)
// =============================================================================

func (s *Store) Load(ctx context.Context, id store.CollectorID) (collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().Load(ctx, id)
}

// Save runs in its own transaction so the delete and inserts are atomic.
func (s *Store) Save(ctx context.Context, id store.CollectorID, c collection.Collection) error {
	return s.WithTx(ctx, func(tx store.Store) error {
		return tx.Save(ctx, id, c)
	})
}

func (s *Store) Collectors(ctx context.Context) ([]store.CollectorID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().Collectors(ctx)
}

func (s *Store) AppendTrade(ctx context.Context, rec store.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().AppendTrade(ctx, rec)
}

func (s *Store) Trades(ctx context.Context, id store.CollectorID, limit int) ([]store.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().Trades(ctx, id, limit)
}

func (s *Store) CelebratedMilestones(ctx context.Context, id store.CollectorID) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().CelebratedMilestones(ctx, id)
}

func (s *Store) MarkCelebrated(ctx context.Context, id store.CollectorID, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().MarkCelebrated(ctx, id, key, at)
}

func (s *Store) SaveValueSnapshot(ctx context.Context, snap store.ValueSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().SaveValueSnapshot(ctx, snap)
}

func (s *Store) ValueSnapshots(ctx context.Context, id store.CollectorID, limit int) ([]store.ValueSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ValueSnapshots(ctx, id, limit)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx, dialect: s.dialect, inTx: true}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// conn runs queries against a DB or a Tx. Callers hold Store.mu.
type conn struct {
	q       querier
	dialect Dialect
	inTx    bool
}

func (c *conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.dialect.rebind(query), args...)
}

func (c *conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.dialect.rebind(query), args...)
}

func (c *conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.dialect.rebind(query), args...)
}

// =============================================================================
// COLLECTIONS
// =============================================================================

func (c *conn) ensureCollector(ctx context.Context, id store.CollectorID) error {
	_, err := c.exec(ctx, `
		INSERT INTO collectors (id, created_at) VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING`,
		string(id), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	return nil
}

func (c *conn) Load(ctx context.Context, id store.CollectorID) (collection.Collection, error) {
	if c.inTx && c.dialect.RowLocks {
		if err := store.ValidateCollectorID(id); err != nil {
			return nil, err
		}
		if err := c.ensureCollector(ctx, id); err != nil {
			return nil, err
		}
		var locked string
		if err := c.queryRow(ctx, `SELECT id FROM collectors WHERE id = ? FOR UPDATE`, string(id)).Scan(&locked); err != nil {
			return nil, fmt.Errorf("failed to lock collector: %w", err)
		}
	}

	rows, err := c.query(ctx, `
		SELECT card_id, variant, quantity FROM collection_entries
		WHERE collector_id = ?
		ORDER BY position`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	defer rows.Close()

	out := collection.Collection{}
	for rows.Next() {
		var e collection.Entry
		var cardID, variant string
		if err := rows.Scan(&cardID, &variant, &e.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.CardID = card.ID(cardID)
		e.Variant = card.Variant(variant)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *conn) Save(ctx context.Context, id store.CollectorID, snapshot collection.Collection) error {
	if err := store.ValidateCollectorID(id); err != nil {
		return err
	}
	if err := collection.Validate(snapshot); err != nil {
		return err
	}
	if err := c.ensureCollector(ctx, id); err != nil {
		return err
	}
	if _, err := c.exec(ctx, `DELETE FROM collection_entries WHERE collector_id = ?`, string(id)); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	for i, e := range snapshot {
		_, err := c.exec(ctx, `
			INSERT INTO collection_entries (collector_id, card_id, variant, quantity, position)
			VALUES (?, ?, ?, ?, ?)`,
			string(id), string(e.CardID), string(card.NormalizeVariant(e.Variant)), e.Quantity, i)
		if err != nil {
			return fmt.Errorf("failed to save entry %d: %w", i, err)
		}
	}
	return nil
}

func (c *conn) Collectors(ctx context.Context) ([]store.CollectorID, error) {
	rows, err := c.query(ctx, `
		SELECT id FROM collectors
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collectors: %w", err)
	}
	defer rows.Close()

	var out []store.CollectorID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, store.CollectorID(id))
	}
	return out, rows.Err()
}

// =============================================================================
// TRADES
// =============================================================================

func (c *conn) AppendTrade(ctx context.Context, rec store.TradeRecord) error {
	given, err := json.Marshal(rec.Given)
	if err != nil {
		return fmt.Errorf("failed to encode given lines: %w", err)
	}
	received, err := json.Marshal(rec.Received)
	if err != nil {
		return fmt.Errorf("failed to encode received lines: %w", err)
	}
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	var exists int
	err = c.queryRow(ctx, `SELECT COUNT(*) FROM trades WHERE id = ?`, rec.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check trade id: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", store.ErrDuplicateTrade, rec.ID)
	}

	_, err = c.exec(ctx, `
		INSERT INTO trades (id, collector_id, partner, given_json, received_json, summary_json, description, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.CollectorID), rec.Partner,
		string(given), string(received), string(summary),
		rec.Description, formatTime(rec.ExecutedAt))
	if err != nil {
		return fmt.Errorf("failed to append trade: %w", err)
	}
	return nil
}

func (c *conn) Trades(ctx context.Context, id store.CollectorID, limit int) ([]store.TradeRecord, error) {
	query := `
		SELECT id, collector_id, partner, given_json, received_json, summary_json, description, executed_at
		FROM trades WHERE collector_id = ?
		ORDER BY seq DESC`
	args := []any{string(id)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	defer rows.Close()

	out := []store.TradeRecord{}
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanTrade(rows *sql.Rows) (store.TradeRecord, error) {
	var rec store.TradeRecord
	var collectorID, given, received, summary, executedAt string
	if err := rows.Scan(&rec.ID, &collectorID, &rec.Partner, &given, &received, &summary, &rec.Description, &executedAt); err != nil {
		return rec, fmt.Errorf("failed to scan trade: %w", err)
	}
	rec.CollectorID = store.CollectorID(collectorID)
	if err := json.Unmarshal([]byte(given), &rec.Given); err != nil {
		return rec, fmt.Errorf("failed to decode given lines: %w", err)
	}
	if err := json.Unmarshal([]byte(received), &rec.Received); err != nil {
		return rec, fmt.Errorf("failed to decode received lines: %w", err)
	}
	if err := json.Unmarshal([]byte(summary), &rec.Summary); err != nil {
		return rec, fmt.Errorf("failed to decode summary: %w", err)
	}
	if rec.Given == nil {
		rec.Given = []trade.Line{}
	}
	if rec.Received == nil {
		rec.Received = []trade.Line{}
	}
	t, err := parseTime(executedAt)
	if err != nil {
		return rec, err
	}
	rec.ExecutedAt = t
	return rec, nil
}

// =============================================================================
// MILESTONES
// =============================================================================

func (c *conn) CelebratedMilestones(ctx context.Context, id store.CollectorID) (map[string]bool, error) {
	rows, err := c.query(ctx, `SELECT milestone_key FROM celebrated_milestones WHERE collector_id = ?`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load milestones: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out[key] = true
	}
	return out, rows.Err()
}

func (c *conn) MarkCelebrated(ctx context.Context, id store.CollectorID, key string, at time.Time) error {
	_, err := c.exec(ctx, `
		INSERT INTO celebrated_milestones (collector_id, milestone_key, reached_at)
		VALUES (?, ?, ?)
		ON CONFLICT (collector_id, milestone_key) DO NOTHING`,
		string(id), key, formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to mark milestone: %w", err)
	}
	return nil
}

// =============================================================================
// VALUE HISTORY
// =============================================================================

func (c *conn) SaveValueSnapshot(ctx context.Context, snap store.ValueSnapshot) error {
	if err := store.ValidateCollectorID(snap.CollectorID); err != nil {
		return err
	}
	_, err := c.exec(ctx, `
		INSERT INTO value_snapshots (collector_id, total_value, currency, valued_count, unvalued_count, total_count, taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(snap.CollectorID), snap.TotalValue.String(), snap.Currency,
		snap.ValuedCount, snap.UnvaluedCount, snap.TotalCount, formatTime(snap.TakenAt))
	if err != nil {
		return fmt.Errorf("failed to save value snapshot: %w", err)
	}
	return nil
}

func (c *conn) ValueSnapshots(ctx context.Context, id store.CollectorID, limit int) ([]store.ValueSnapshot, error) {
	query := `
		SELECT collector_id, total_value, currency, valued_count, unvalued_count, total_count, taken_at
		FROM value_snapshots WHERE collector_id = ?
		ORDER BY seq DESC`
	args := []any{string(id)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load value history: %w", err)
	}
	defer rows.Close()

	out := []store.ValueSnapshot{}
	for rows.Next() {
		var snap store.ValueSnapshot
		var collectorID, total, takenAt string
		if err := rows.Scan(&collectorID, &total, &snap.Currency,
			&snap.ValuedCount, &snap.UnvaluedCount, &snap.TotalCount, &takenAt); err != nil {
			return nil, fmt.Errorf("failed to scan value snapshot: %w", err)
		}
		snap.CollectorID = store.CollectorID(collectorID)
		if snap.TotalValue, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("failed to parse value %q: %w", total, err)
		}
		if snap.TakenAt, err = parseTime(takenAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest-first from the query; callers get chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}
