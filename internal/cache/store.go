package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/history"
)

// Stats represents cache performance statistics
type Stats struct {
	MemoryHits    int64     `json:"memory_hits"`
	MemoryMisses  int64     `json:"memory_misses"`
	RedisHits     int64     `json:"redis_hits"`
	RedisMisses   int64     `json:"redis_misses"`
	StoreReads    int64     `json:"store_reads"`
	TotalRequests int64     `json:"total_requests"`
	ErrorCount    int64     `json:"error_count"`
	LastReset     time.Time `json:"last_reset"`
}

// CachedStore serves each owner's first history page from the memory tier,
// then the Redis tier, and only then from the wrapped store. Writes go through
// to the store and invalidate both tiers.
//
// The memory tier is per process. With several instances sharing Redis, a
// memory page can outlive a write made elsewhere for up to the memory TTL.
type CachedStore struct {
	store    history.Store
	memory   Tier
	redis    Tier
	pageSize int
	logger   *logrus.Logger

	genMu       sync.Mutex
	generations map[string]uint64

	statsMu sync.Mutex
	stats   Stats
}

// NewCachedStore wraps store. redis may be nil. Only List calls with limit
// pageSize and offset 0 are cached.
func NewCachedStore(store history.Store, memory, redis Tier, pageSize int, logger *logrus.Logger) *CachedStore {
	if pageSize <= 0 {
		pageSize = 20
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedStore{
		store:       store,
		memory:      memory,
		redis:       redis,
		pageSize:    pageSize,
		logger:      logger,
		generations: make(map[string]uint64),
		stats:       Stats{LastReset: time.Now()},
	}
}

// Append records the result and invalidates the owner's cached page.
func (c *CachedStore) Append(ctx context.Context, result *domain.AssessmentResult) error {
	if err := c.store.Append(ctx, result); err != nil {
		return err
	}
	c.Invalidate(ctx, result.OwnerID)
	return nil
}

// Get always reads through; single results are not cached.
func (c *CachedStore) Get(ctx context.Context, ownerID, id string) (*domain.AssessmentResult, error) {
	return c.store.Get(ctx, ownerID, id)
}

// List returns the owner's history, most recent first.
func (c *CachedStore) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.AssessmentResult, error) {
	if limit != c.pageSize || offset != 0 {
		return c.store.List(ctx, ownerID, limit, offset)
	}
	c.incrementStat("total_requests")

	if c.memory != nil {
		if page, ok, _ := c.memory.Get(ctx, ownerID); ok {
			c.incrementStat("memory_hits")
			return page, nil
		}
		c.incrementStat("memory_misses")
	}

	if c.redis != nil {
		page, ok, err := c.redis.Get(ctx, ownerID)
		if err != nil {
			c.incrementStat("error_count")
			c.logger.WithError(err).WithField("owner_id", ownerID).Warn("Redis history cache read failed")
		}
		if ok {
			c.incrementStat("redis_hits")
			c.setMemory(ctx, ownerID, page)
			return page, nil
		}
		c.incrementStat("redis_misses")
	}

	c.incrementStat("store_reads")
	gen := c.generation(ownerID)
	page, err := c.store.List(ctx, ownerID, limit, offset)
	if err != nil {
		c.incrementStat("error_count")
		return nil, err
	}

	// A write during the read makes this page stale; serve it but don't cache it.
	if c.generation(ownerID) != gen {
		return page, nil
	}

	c.setMemory(ctx, ownerID, page)
	if c.redis != nil {
		if err := c.redis.Set(ctx, ownerID, page); err != nil {
			c.logger.WithError(err).WithField("owner_id", ownerID).Warn("Redis history cache write failed")
		}
	}
	return page, nil
}

// Since reads through to the store.
func (c *CachedStore) Since(ctx context.Context, ownerID string, since time.Time) ([]*domain.AssessmentResult, error) {
	return c.store.Since(ctx, ownerID, since)
}

// Count reads through to the store.
func (c *CachedStore) Count(ctx context.Context, ownerID string) (int64, error) {
	return c.store.Count(ctx, ownerID)
}

// Clear deletes the owner's history and invalidates the cached page.
func (c *CachedStore) Clear(ctx context.Context, ownerID string) (int64, error) {
	n, err := c.store.Clear(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	c.Invalidate(ctx, ownerID)
	return n, nil
}

// Close closes the wrapped store.
func (c *CachedStore) Close() error {
	return c.store.Close()
}

// Invalidate drops the owner's page from both tiers.
func (c *CachedStore) Invalidate(ctx context.Context, ownerID string) {
	c.genMu.Lock()
	c.generations[ownerID]++
	c.genMu.Unlock()

	if c.memory != nil {
		_ = c.memory.Delete(ctx, ownerID)
	}
	if c.redis != nil {
		if err := c.redis.Delete(ctx, ownerID); err != nil {
			c.incrementStat("error_count")
			c.logger.WithError(err).WithField("owner_id", ownerID).Warn("Redis history cache invalidation failed")
		}
	}
}

// GetStats returns cache performance statistics
func (c *CachedStore) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// ResetStats zeroes the counters.
func (c *CachedStore) ResetStats() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats = Stats{LastReset: time.Now()}
}

func (c *CachedStore) generation(ownerID string) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.generations[ownerID]
}

func (c *CachedStore) setMemory(ctx context.Context, ownerID string, page []*domain.AssessmentResult) {
	if c.memory != nil {
		_ = c.memory.Set(ctx, ownerID, page)
	}
}

func (c *CachedStore) incrementStat(name string) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	switch name {
	case "memory_hits":
		c.stats.MemoryHits++
	case "memory_misses":
		c.stats.MemoryMisses++
	case "redis_hits":
		c.stats.RedisHits++
	case "redis_misses":
		c.stats.RedisMisses++
	case "store_reads":
		c.stats.StoreReads++
	case "total_requests":
		c.stats.TotalRequests++
	case "error_count":
		c.stats.ErrorCount++
	}
}
