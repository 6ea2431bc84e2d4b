package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymadmin/internal/adapters/metrics"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)")
	require.NoError(t, err)
	return db
}

// samples returns how many latencies were recorded for a statement kind.
func samples(t *testing.T, reg *prometheus.Registry, kind string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "gymadmin_db_query_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "statement" && lp.GetValue() == kind {
					return m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

// TestTimedDB_LabelsByStatement verifies each call is observed under the kind of its statement.
func TestTimedDB_LabelsByStatement(t *testing.T) {
	collector := metrics.NewCollector()
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	_, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello")
	require.NoError(t, err)
	_, err = tdb.ExecContext(ctx, "UPDATE test SET val = ? WHERE id = ?", "hi", "1")
	require.NoError(t, err)

	rows, err := tdb.QueryContext(ctx, "SELECT id, val FROM test")
	require.NoError(t, err)
	count := 0
	for rows.Next() {
		count++
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, 1, count)

	var val string
	require.NoError(t, tdb.QueryRowContext(ctx, "\n\t\tSELECT val FROM test WHERE id = ?", "1").Scan(&val))
	assert.Equal(t, "hi", val)

	tx, err := tdb.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = tdb.ExecContext(ctx, "DELETE FROM test WHERE id = ?", "1")
	require.NoError(t, err)

	reg := collector.Registry()
	assert.Equal(t, uint64(1), samples(t, reg, StatementInsert))
	assert.Equal(t, uint64(1), samples(t, reg, StatementUpdate))
	assert.Equal(t, uint64(2), samples(t, reg, StatementSelect))
	assert.Equal(t, uint64(1), samples(t, reg, StatementBegin))
	assert.Equal(t, uint64(1), samples(t, reg, StatementDelete))

	n, err := testutil.GatherAndCount(reg, "gymadmin_db_query_errors_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestTimedDB_CountsFailures verifies driver errors reach the caller and are counted.
func TestTimedDB_CountsFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectExec("UPDATE member").WillReturnError(boom)
	mock.ExpectQuery("SELECT id FROM member").WillReturnError(boom)
	mock.ExpectQuery("SELECT name FROM member").WillReturnError(boom)

	collector := metrics.NewCollector()
	tdb := NewTimedDB(db, collector, 0)
	ctx := context.Background()

	_, err = tdb.ExecContext(ctx, "UPDATE member SET name = ?", "x")
	assert.ErrorIs(t, err, boom)

	_, err = tdb.QueryContext(ctx, "SELECT id FROM member")
	assert.ErrorIs(t, err, boom)

	var name string
	err = tdb.QueryRowContext(ctx, "SELECT name FROM member WHERE id = ?", 1).Scan(&name)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())

	expected := `
# HELP gymadmin_db_query_errors_total Database statements that returned an error, by statement kind.
# TYPE gymadmin_db_query_errors_total counter
gymadmin_db_query_errors_total{statement="select"} 1
gymadmin_db_query_errors_total{statement="update"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "gymadmin_db_query_errors_total"))
}

// TestTimedDB_NilCollector verifies TimedDB works without metrics.
func TestTimedDB_NilCollector(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)
	_, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "x")
	assert.NoError(t, err)
	assert.Equal(t, DefaultSlowQuery, tdb.slow)
	assert.NoError(t, tdb.PingContext(context.Background()))
}

// TestTimedDB_CancelledContext verifies cancellation is honoured.
func TestTimedDB_CancelledContext(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "x")
	assert.Error(t, err)
}

// TestTimedDB_ConcurrentQueries verifies concurrent use is safe.
func TestTimedDB_ConcurrentQueries(t *testing.T) {
	collector := metrics.NewCollector()
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var n int
			_ = tdb.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM test").Scan(&n)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(20), samples(t, collector.Registry(), StatementSelect))
}

func TestStatementKind(t *testing.T) {
	tests := map[string]string{
		"SELECT id FROM member":                  StatementSelect,
		"  select count(*) from member":          StatementSelect,
		"WITH m AS (SELECT 1) SELECT * FROM m":   StatementSelect,
		"\n\t\tINSERT INTO member (name) VALUES": StatementInsert,
		"UPDATE outbox SET status = ?":           StatementUpdate,
		"DELETE FROM trainer WHERE id = ?":       StatementDelete,
		"BEGIN":                                  StatementBegin,
		"VACUUM INTO ?":                          StatementOther,
		"":                                       StatementOther,
	}
	for query, want := range tests {
		assert.Equal(t, want, StatementKind(query), query)
	}
}

func TestCompactQuery(t *testing.T) {
	assert.Equal(t, "SELECT id FROM member WHERE id = ?", compactQuery("SELECT id\n\t\tFROM member\n\t\tWHERE id = ?"))
	long := compactQuery("SELECT " + strings.Repeat("x, ", 100) + "y FROM member")
	assert.Len(t, long, maxLoggedQuery+3)
	assert.True(t, strings.HasSuffix(long, "..."))
}
