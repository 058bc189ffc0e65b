// Package cache keeps each owner's first history page in a memory tier and an
// optional Redis tier in front of the history store.
package cache

import (
	"context"

	"github.com/bioage-mcp-server/internal/domain"
)

// Tier is one cache layer keyed by owner id.
type Tier interface {
	Get(ctx context.Context, ownerID string) ([]*domain.AssessmentResult, bool, error)
	Set(ctx context.Context, ownerID string, page []*domain.AssessmentResult) error
	Delete(ctx context.Context, ownerID string) error
}

func clonePage(page []*domain.AssessmentResult) []*domain.AssessmentResult {
	if page == nil {
		return nil
	}
	out := make([]*domain.AssessmentResult, len(page))
	for i, r := range page {
		out[i] = r.Clone()
	}
	return out
}
