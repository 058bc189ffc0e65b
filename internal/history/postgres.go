package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/bioage-mcp-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string, maxOpen, maxIdle int, maxLifetime time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if maxLifetime <= 0 {
		maxLifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Append records a new assessment.
func (s *PostgresStore) Append(ctx context.Context, result *domain.AssessmentResult) error {
	if err := validateResult(result); err != nil {
		return err
	}
	data, err := encodeResult(result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessments (
			id, owner_id, assessed_at, chronological_age,
			biological_age, overall_health, engine, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		result.ID,
		result.OwnerID,
		result.Date.UTC(),
		result.ChronologicalAge,
		result.BiologicalAge,
		string(result.OverallHealth),
		result.Engine,
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
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
func (s *PostgresStore) Get(ctx context.Context, ownerID, id string) (*domain.AssessmentResult, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT result FROM assessments WHERE owner_id = $1 AND id = $2",
		ownerID, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return decodeResult(data)
}

// List returns an owner's assessments, most recent first.
func (s *PostgresStore) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.AssessmentResult, error) {
	limit, offset = normalizePage(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT result FROM assessments
		WHERE owner_id = $1
		ORDER BY assessed_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return scanResults(rows)
}

// Since returns an owner's assessments at or after since, oldest first.
func (s *PostgresStore) Since(ctx context.Context, ownerID string, since time.Time) ([]*domain.AssessmentResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result FROM assessments
		WHERE owner_id = $1 AND assessed_at >= $2
		ORDER BY assessed_at ASC, id ASC
	`, ownerID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	return scanResults(rows)
}

// Count returns the number of assessments of an owner.
func (s *PostgresStore) Count(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments WHERE owner_id = $1", ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return count, nil
}

// Clear deletes every assessment of an owner.
func (s *PostgresStore) Clear(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE owner_id = $1", ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear assessments: %w", err)
	}
	return res.RowsAffected()
}

// Name identifies the component in health reports.
func (s *PostgresStore) Name() string {
	return "postgres_history"
}

// Health pings the database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
