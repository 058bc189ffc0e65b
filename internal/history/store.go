// Package history stores completed assessments per owner. Results are kept as
// JSON documents next to the few columns needed to filter and order them.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bioage-mcp-server/internal/domain"
)

// DefaultListLimit is used when List is called without a positive limit.
const DefaultListLimit = 100

// ErrDuplicate is returned by Append when an assessment id already exists.
var ErrDuplicate = errors.New("assessment already exists")

// Store defines the interface for assessment history storage.
type Store interface {
	// Append records a new assessment. Results are immutable; appending an
	// existing id returns ErrDuplicate.
	Append(ctx context.Context, result *domain.AssessmentResult) error

	// Get returns one assessment of an owner, or domain.ErrNotFound.
	Get(ctx context.Context, ownerID, id string) (*domain.AssessmentResult, error)

	// List returns an owner's assessments, most recent first.
	List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.AssessmentResult, error)

	// Since returns an owner's assessments dated at or after since, oldest first.
	Since(ctx context.Context, ownerID string, since time.Time) ([]*domain.AssessmentResult, error)

	// Count returns the number of assessments of an owner.
	Count(ctx context.Context, ownerID string) (int64, error)

	// Clear deletes every assessment of an owner and returns how many were removed.
	Clear(ctx context.Context, ownerID string) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}

func validateResult(result *domain.AssessmentResult) error {
	if result == nil {
		return fmt.Errorf("assessment result is required")
	}
	if result.ID == "" {
		return fmt.Errorf("assessment id is required")
	}
	if result.OwnerID == "" {
		return fmt.Errorf("assessment owner is required")
	}
	return nil
}

func encodeResult(result *domain.AssessmentResult) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshaling assessment: %w", err)
	}
	return data, nil
}

func decodeResult(data []byte) (*domain.AssessmentResult, error) {
	var result domain.AssessmentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling assessment: %w", err)
	}
	if result.Recommendations == nil {
		result.Recommendations = []domain.Recommendation{}
	}
	return &result, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
