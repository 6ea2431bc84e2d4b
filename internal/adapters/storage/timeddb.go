package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gymadmin/internal/adapters/metrics"
)

// SQLDB is what every store needs from a database handle.
// Both *sql.DB and *TimedDB satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// DefaultSlowQuery is the slow statement threshold when none is configured.
const DefaultSlowQuery = 50 * time.Millisecond

// maxLoggedQuery bounds the statement text in slow_query log lines.
const maxLoggedQuery = 160

// Statement kinds used as the metrics label.
const (
	StatementSelect = "select"
	StatementInsert = "insert"
	StatementUpdate = "update"
	StatementDelete = "delete"
	StatementBegin  = "begin"
	StatementOther  = "other"
)

// TimedDB observes the latency of every statement, labelled by its kind,
// and logs statements slower than its threshold.
type TimedDB struct {
	db        *sql.DB
	collector *metrics.Collector
	slow      time.Duration
}

// NewTimedDB wraps db.
// PRE: collector may be nil
// POST: slow <= 0 selects DefaultSlowQuery
func NewTimedDB(db *sql.DB, collector *metrics.Collector, slow time.Duration) *TimedDB {
	if slow <= 0 {
		slow = DefaultSlowQuery
	}
	return &TimedDB{db: db, collector: collector, slow: slow}
}

// ExecContext runs an INSERT, UPDATE or DELETE.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.observe(StatementKind(query), query, start, err)
	return result, err
}

// QueryContext runs a statement returning rows.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe(StatementKind(query), query, start, err)
	return rows, err
}

// QueryRowContext runs a single-row statement. Errors surface on Scan and are not counted.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe(StatementKind(query), query, start, nil)
	return row
}

// BeginTx starts a transaction. Statements inside it are not observed.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe(StatementBegin, "BEGIN", start, err)
	return tx, err
}

// PingContext checks the connection; used by the health endpoint.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

func (t *TimedDB) observe(kind, query string, start time.Time, err error) {
	elapsed := time.Since(start)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) {
		err = nil
	}
	t.collector.ObserveQuery(kind, elapsed, err)

	ms := float64(elapsed.Microseconds()) / 1000.0
	switch {
	case elapsed >= t.slow:
		slog.Warn("slow_query", "statement", kind, "query", compactQuery(query), "duration_ms", ms)
	case err != nil:
		slog.Debug("query_failed", "statement", kind, "duration_ms", ms, "error", err)
	default:
		slog.Debug("query", "statement", kind, "duration_ms", ms)
	}
}

// StatementKind classifies query by its leading keyword. A WITH clause counts as a select.
func StatementKind(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return StatementOther
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return StatementSelect
	case "INSERT", "REPLACE":
		return StatementInsert
	case "UPDATE":
		return StatementUpdate
	case "DELETE":
		return StatementDelete
	case "BEGIN":
		return StatementBegin
	default:
		return StatementOther
	}
}

// compactQuery collapses whitespace so multi-line statements fit one log line.
func compactQuery(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if len(q) > maxLoggedQuery {
		return q[:maxLoggedQuery] + "..."
	}
	return q
}
