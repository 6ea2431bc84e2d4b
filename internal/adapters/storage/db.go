package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Pragmas applied to every pooled connection.
const dsnPragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// Open opens the SQLite database at path with WAL, busy timeout and foreign keys enabled.
// PRE: path is a file path or ":memory:"
// POST: Returns a pinged connection pool; in-memory databases are limited to one connection
func Open(path string) (*sql.DB, error) {
	dsn := path + "?" + dsnPragmas
	if isMemory(path) {
		dsn = ":memory:?_pragma=foreign_keys(ON)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if isMemory(path) {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// migration is one forward-only schema step.
type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     1,
		description: "baseline trainers, members, outbox",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS trainer (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS member (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				phone TEXT NOT NULL DEFAULT '',
				birthdate TEXT,
				age INTEGER,
				gender TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				membership_plan TEXT NOT NULL DEFAULT '',
				membership_type TEXT NOT NULL,
				trainer_id INTEGER REFERENCES trainer(id) ON DELETE SET NULL,
				start_date TEXT NOT NULL,
				expiry_date TEXT NOT NULL,
				fee_cents INTEGER NOT NULL DEFAULT 0,
				payment_status TEXT NOT NULL,
				payment_method TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (expiry_date >= start_date),
				CHECK (fee_cents >= 0)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_member_expiry_date ON member(expiry_date)`,
			`CREATE INDEX IF NOT EXISTS idx_member_created_at ON member(created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_member_trainer_id ON member(trainer_id)`,
			`CREATE TABLE IF NOT EXISTS outbox (
				id TEXT PRIMARY KEY,
				action_type TEXT NOT NULL,
				payload TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL DEFAULT 5,
				last_attempted_at TEXT,
				created_at TEXT NOT NULL,
				external_id TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status)`,
		},
	},
	{
		version:     2,
		description: "member workout time slot",
		statements: []string{
			`ALTER TABLE member ADD COLUMN workout_time_slot TEXT NOT NULL DEFAULT ''`,
		},
	},
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied schema version, 0 for an untracked database.
// PRE: db is a valid database connection
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// MigrateDB applies every pending migration, each in its own transaction.
// A file database that already holds data is copied to <path>.bak-v<version> first.
// PRE: db is a valid database connection; dbPath is the path it was opened with
// POST: SchemaVersion(db) == LatestSchemaVersion()
// INVARIANT: applied migrations are never re-run
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if current > 0 && dbPath != "" && !isMemory(dbPath) {
		backup := fmt.Sprintf("%s.bak-v%d", dbPath, current)
		if _, err := db.Exec(`VACUUM INTO ?`, backup); err != nil {
			return fmt.Errorf("backup before migration: %w", err)
		}
		slog.Info("storage_event", "event", "schema_backup", "path", backup)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
		slog.Info("storage_event", "event", "schema_migrated", "version", m.version, "description", m.description)
	}
	return nil
}

func apply(db *sql.DB, m migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range m.statements {
		if _, err = tx.Exec(stmt); err != nil {
			if isDuplicateColumn(err) {
				err = nil
				continue
			}
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
	}
	if _, err = tx.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record migration %d: %w", m.version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}

// isDuplicateColumn tolerates ADD COLUMN on a pre-migration database that already has it.
func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}

// IsUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a SQLite FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// IsNoRows reports whether err wraps sql.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
