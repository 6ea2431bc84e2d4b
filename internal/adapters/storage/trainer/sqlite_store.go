package trainer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymadmin/internal/adapters/storage"
	"gymadmin/internal/domain/member"
	domain "gymadmin/internal/domain/trainer"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// Compile-time check that *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new trainer store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func scanTrainer(sc interface{ Scan(...any) error }) (domain.Trainer, error) {
	var (
		t         domain.Trainer
		createdAt string
	)
	if err := sc.Scan(&t.ID, &t.Name, &createdAt); err != nil {
		return domain.Trainer{}, err
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return t, nil
}

// Create inserts a Trainer and returns it with its assigned ID.
// PRE: value has passed Validate
// POST: CreatedAt is set (to now when zero)
func (s *SQLiteStore) Create(ctx context.Context, value domain.Trainer) (domain.Trainer, error) {
	if value.CreatedAt.IsZero() {
		value.CreatedAt = time.Now()
	}
	value.CreatedAt = value.CreatedAt.UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, "INSERT INTO trainer (name, created_at) VALUES (?, ?)",
		value.Name, value.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return domain.Trainer{}, fmt.Errorf("insert trainer: %w", err)
	}
	if value.ID, err = res.LastInsertId(); err != nil {
		return domain.Trainer{}, fmt.Errorf("trainer insert id: %w", err)
	}
	return value, nil
}

// Delete removes a Trainer. Members assigned to it keep their row with trainer_id set to NULL.
// POST: returns *member.NotFoundError when no row matched
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trainer WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete trainer %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trainer %d rows: %w", id, err)
	}
	if n == 0 {
		return &member.NotFoundError{Entity: "trainer", ID: id}
	}
	return nil
}

// GetByID retrieves a Trainer by its ID.
// POST: returns *member.NotFoundError when absent
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Trainer, error) {
	t, err := scanTrainer(s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM trainer WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trainer{}, &member.NotFoundError{Entity: "trainer", ID: id}
	}
	return t, err
}

// GetByName retrieves the first Trainer with exactly this name.
// POST: returns *member.NotFoundError with Key set when absent
func (s *SQLiteStore) GetByName(ctx context.Context, name string) (domain.Trainer, error) {
	t, err := scanTrainer(s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM trainer WHERE name = ? ORDER BY id LIMIT 1", name))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trainer{}, &member.NotFoundError{Entity: "trainer", Key: name}
	}
	return t, err
}

// List returns every Trainer ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Trainer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM trainer ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list trainers: %w", err)
	}
	defer rows.Close()

	var results []domain.Trainer
	for rows.Next() {
		t, err := scanTrainer(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// Count returns the number of Trainers.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trainer").Scan(&n); err != nil {
		return 0, fmt.Errorf("count trainers: %w", err)
	}
	return n, nil
}
