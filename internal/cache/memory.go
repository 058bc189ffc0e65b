package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bioage-mcp-server/internal/domain"
)

// MemoryCache is the in-process tier: a size-bounded LRU whose entries expire.
type MemoryCache struct {
	lru *expirable.LRU[string, []*domain.AssessmentResult]
}

// NewMemoryCache creates a memory tier. Non-positive arguments use defaults of
// 1000 owners and 2 minutes.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 1000
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, []*domain.AssessmentResult](maxItems, nil, ttl),
	}
}

// Get returns a copy of the cached page.
func (c *MemoryCache) Get(_ context.Context, ownerID string) ([]*domain.AssessmentResult, bool, error) {
	page, ok := c.lru.Get(ownerID)
	if !ok {
		return nil, false, nil
	}
	return clonePage(page), true, nil
}

// Set stores a copy of page.
func (c *MemoryCache) Set(_ context.Context, ownerID string, page []*domain.AssessmentResult) error {
	c.lru.Add(ownerID, clonePage(page))
	return nil
}

// Delete drops the owner's entry.
func (c *MemoryCache) Delete(_ context.Context, ownerID string) error {
	c.lru.Remove(ownerID)
	return nil
}

// Len returns the number of cached owners.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
