package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bioage-mcp-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite. Dates are stored as
// Unix nanoseconds so ordering is exact.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		assessed_at INTEGER NOT NULL,
		chronological_age INTEGER NOT NULL,
		biological_age REAL NOT NULL,
		overall_health TEXT NOT NULL,
		engine TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_owner_date ON assessments(owner_id, assessed_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Append records a new assessment.
func (s *SQLiteStore) Append(ctx context.Context, result *domain.AssessmentResult) error {
	if err := validateResult(result); err != nil {
		return err
	}
	data, err := encodeResult(result)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO assessments (
			id, owner_id, assessed_at, chronological_age,
			biological_age, overall_health, engine, result
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.ID,
		result.OwnerID,
		result.Date.UnixNano(),
		result.ChronologicalAge,
		result.BiologicalAge,
		string(result.OverallHealth),
		result.Engine,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("assessment %s: %w", result.ID, ErrDuplicate)
	}
	return nil
}

// Get returns one assessment of an owner.
func (s *SQLiteStore) Get(ctx context.Context, ownerID, id string) (*domain.AssessmentResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT result FROM assessments WHERE owner_id = ? AND id = ?",
		ownerID, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return decodeResult([]byte(data))
}

// List returns an owner's assessments, most recent first.
func (s *SQLiteStore) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.AssessmentResult, error) {
	limit, offset = normalizePage(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT result FROM assessments
		WHERE owner_id = ?
		ORDER BY assessed_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return scanResults(rows)
}

// Since returns an owner's assessments at or after since, oldest first.
func (s *SQLiteStore) Since(ctx context.Context, ownerID string, since time.Time) ([]*domain.AssessmentResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result FROM assessments
		WHERE owner_id = ? AND assessed_at >= ?
		ORDER BY assessed_at ASC, id ASC
	`, ownerID, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return scanResults(rows)
}

// Count returns the number of assessments of an owner.
func (s *SQLiteStore) Count(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments WHERE owner_id = ?", ownerID).Scan(&count)
	return count, err
}

// Clear deletes every assessment of an owner.
func (s *SQLiteStore) Clear(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE owner_id = ?", ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete: %w", err)
	}
	return res.RowsAffected()
}

// Name identifies the component in health reports.
func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanResults decodes every row's result column and closes rows.
func scanResults(rows *sql.Rows) ([]*domain.AssessmentResult, error) {
	defer rows.Close()

	results := []*domain.AssessmentResult{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result, err := decodeResult(data)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
