package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteBackend keeps behavior records and unanswered questions in a local
// SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) binbuddy.db in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func OpenSQLite(dataDir string) (*SQLiteBackend, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "binbuddy.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Wait up to five seconds for a competing writer (another CLI process)
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	// WAL lets admin reads run while the server appends records.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &SQLiteBackend{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that haven't been run yet. Each
// migration and its schema_version row commit in one transaction.
func (s *SQLiteBackend) migrate() error {
	// Bootstrap the version table; it is not part of any migration file.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	// Filenames start with a zero-padded version, so name order is apply order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Skip versions already recorded.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// parseMigrationVersion reads the leading number of "001_initial.sql".
func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *SQLiteBackend) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Behavior records ---

const behaviorColumns = `id, user_id, created_at, kind, reason, duration_hours`

func (s *SQLiteBackend) AppendBehavior(ctx context.Context, rec BehaviorRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO behavior_records (`+behaviorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Timestamp.UTC().Format(time.RFC3339Nano),
		string(rec.Kind), rec.Reason, rec.DurationHours,
	)
	return err
}

func (s *SQLiteBackend) BehaviorFor(ctx context.Context, userID string) ([]BehaviorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+behaviorColumns+`
		FROM behavior_records WHERE user_id = ? ORDER BY rowid ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	return scanBehavior(rows)
}

func (s *SQLiteBackend) ListBehavior(ctx context.Context, limit int) ([]BehaviorRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+behaviorColumns+`
		FROM behavior_records ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanBehavior(rows)
}

func scanBehavior(rows *sql.Rows) ([]BehaviorRecord, error) {
	defer rows.Close()

	var results []BehaviorRecord
	for rows.Next() {
		var r BehaviorRecord
		var createdAt, kind string
		if err := rows.Scan(&r.ID, &r.UserID, &createdAt, &kind, &r.Reason, &r.DurationHours); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at for record %s: %w", r.ID, err)
		}
		r.Timestamp = t
		r.Kind = BehaviorKind(kind)
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Unanswered questions ---

func (s *SQLiteBackend) AppendUnanswered(ctx context.Context, q UnansweredQuestion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unanswered_questions (id, created_at, text, environment)
		VALUES (?, ?, ?, ?)`,
		q.ID, q.Timestamp.UTC().Format(time.RFC3339Nano), q.Text, q.Environment,
	)
	return err
}

func (s *SQLiteBackend) ListUnanswered(ctx context.Context, limit int) ([]UnansweredQuestion, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, text, environment
		FROM unanswered_questions ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []UnansweredQuestion
	for rows.Next() {
		var q UnansweredQuestion
		var createdAt string
		if err := rows.Scan(&q.ID, &createdAt, &q.Text, &q.Environment); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at for question %s: %w", q.ID, err)
		}
		q.Timestamp = t
		results = append(results, q)
	}
	return results, rows.Err()
}
