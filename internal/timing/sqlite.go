package timing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/giantswarm/failwatch/internal/fileutil"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

const createMeasurementsTable = `
	CREATE TABLE IF NOT EXISTS measurements (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		operation   TEXT    NOT NULL,
		test_class  TEXT    NOT NULL,
		test_method TEXT    NOT NULL DEFAULT '',
		started_at  INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL
	)
`

// SQLiteStore persists measurements to a SQLite database file. Several test
// binaries may share one file; WAL mode and a busy timeout let their writes
// interleave.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// measurements table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("prepare timing database: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createMeasurementsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create measurements table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts rec.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO measurements (operation, test_class, test_method, started_at, duration_ns) VALUES (?, ?, ?, ?, ?)`,
		string(rec.Operation), rec.TestClass, rec.TestMethod, rec.Started.UnixNano(), int64(rec.Duration),
	)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// Load returns every stored measurement in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT operation, test_class, test_method, started_at, duration_ns FROM measurements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var out []Record
	for rows.Next() {
		var (
			op               string
			rec              Record
			startedNs, durNs int64
		)
		if err := rows.Scan(&op, &rec.TestClass, &rec.TestMethod, &startedNs, &durNs); err != nil {
			return nil, fmt.Errorf("scan measurement row: %w", err)
		}
		rec.Operation = Operation(op)
		rec.Started = time.Unix(0, startedNs)
		rec.Duration = time.Duration(durNs)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurement rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
