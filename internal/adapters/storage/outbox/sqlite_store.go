package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymadmin/internal/adapters/storage"
	memberdomain "gymadmin/internal/domain/member"
	domain "gymadmin/internal/domain/outbox"
)

const columns = `id, action_type, payload, status, attempts, max_attempts, last_attempted_at,
	created_at, external_id, error_message`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// Compile-time check that *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (domain.Entry, error) {
	var (
		e           domain.Entry
		lastAttempt sql.NullString
		createdAt   string
	)
	err := sc.Scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttempt, &createdAt, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	if lastAttempt.Valid {
		e.LastAttemptedAt, _ = time.Parse(time.RFC3339, lastAttempt.String)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	defer rows.Close()
	var results []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// GetByID retrieves an entry by ID.
// PRE: id is non-empty
// POST: Returns a *member.NotFoundError with Entity "outbox entry" when absent
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM outbox WHERE id = ?`, id)
	e, err := scanEntry(row)
	if storage.IsNoRows(err) {
		return domain.Entry{}, &memberdomain.NotFoundError{Entity: "outbox entry", Key: id}
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry %s: %w", id, err)
	}
	return e, nil
}

// Save inserts or updates an entry.
// PRE: entry passes Validate
// POST: The row for entry.ID mirrors entry
func (s *SQLiteStore) Save(ctx context.Context, entry domain.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	var lastAttempt any
	if !entry.LastAttemptedAt.IsZero() {
		lastAttempt = entry.LastAttemptedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			max_attempts = excluded.max_attempts,
			last_attempted_at = excluded.last_attempted_at,
			external_id = excluded.external_id,
			error_message = excluded.error_message`,
		entry.ID, entry.ActionType, entry.Payload, entry.Status, entry.Attempts, entry.MaxAttempts,
		lastAttempt, entry.CreatedAt.UTC().Format(time.RFC3339), entry.ExternalID, entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("save outbox entry %s: %w", entry.ID, err)
	}
	return nil
}

// ListPending returns entries still eligible for delivery, oldest first.
func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+` FROM outbox
		WHERE status IN ('pending', 'retrying') AND attempts < max_attempts
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox entries: %w", err)
	}
	return scanEntries(rows)
}

// ListFailed returns entries that exhausted their attempts, newest first.
func (s *SQLiteStore) ListFailed(ctx context.Context, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+` FROM outbox
		WHERE status = 'failed'
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed outbox entries: %w", err)
	}
	return scanEntries(rows)
}

// CountByStatus returns the number of entries per status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Delete removes an entry.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete outbox entry %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &memberdomain.NotFoundError{Entity: "outbox entry", Key: id}
	}
	return nil
}
