package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/history"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testResult(id, owner string, date time.Time) *domain.AssessmentResult {
	return &domain.AssessmentResult{
		ID:               id,
		OwnerID:          owner,
		Date:             date,
		ChronologicalAge: 40,
		BiologicalAge:    41,
		Scores:           domain.CategoryScores{Bloodwork: 0.5, Lifestyle: 0.5, Vitals: 0.3},
		OverallScore:     0.45,
		OverallHealth:    domain.HealthFair,
		Recommendations: []domain.Recommendation{
			{ID: "1", Category: domain.RecommendationExercise, Title: "Increase physical activity", Priority: domain.PriorityMedium, Impact: 1.2},
		},
		Engine: domain.EngineDeterministic,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// mapTier is an in-process stand-in for the Redis tier.
type mapTier struct {
	pages  map[string][]*domain.AssessmentResult
	getErr error
}

func newMapTier() *mapTier {
	return &mapTier{pages: map[string][]*domain.AssessmentResult{}}
}

func (m *mapTier) Get(_ context.Context, owner string) ([]*domain.AssessmentResult, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	p, ok := m.pages[owner]
	return p, ok, nil
}

func (m *mapTier) Set(_ context.Context, owner string, page []*domain.AssessmentResult) error {
	m.pages[owner] = page
	return nil
}

func (m *mapTier) Delete(_ context.Context, owner string) error {
	delete(m.pages, owner)
	return nil
}

func newSQLite(t *testing.T) *history.SQLiteStore {
	t.Helper()
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	_, ok, err := c.Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, ok)

	page := []*domain.AssessmentResult{testResult("a-1", "owner-1", baseTime)}
	require.NoError(t, c.Set(ctx, "owner-1", page))

	got, ok, err := c.Get(ctx, "owner-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "a-1", got[0].ID)

	t.Run("returns copies", func(t *testing.T) {
		got[0].BiologicalAge = 99
		got[0].Recommendations[0].Title = "changed"
		page[0].BiologicalAge = 77

		again, ok, _ := c.Get(ctx, "owner-1")
		require.True(t, ok)
		assert.Equal(t, 41.0, again[0].BiologicalAge)
		assert.Equal(t, "Increase physical activity", again[0].Recommendations[0].Title)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "owner-2", nil))
		require.NoError(t, c.Set(ctx, "owner-3", nil))
		assert.Equal(t, 2, c.Len())
		_, ok, _ := c.Get(ctx, "owner-1")
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "owner-3"))
		_, ok, _ := c.Get(ctx, "owner-3")
		assert.False(t, ok)
	})
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)
	require.NoError(t, c.Set(ctx, "owner-1", []*domain.AssessmentResult{}))

	time.Sleep(60 * time.Millisecond)

	_, ok, _ := c.Get(ctx, "owner-1")
	assert.False(t, ok)
}

func TestCachedStore_ListUsesTiers(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)
	memory := NewMemoryCache(100, time.Minute)
	redis := newMapTier()
	cached := NewCachedStore(store, memory, redis, 20, quietLogger())

	require.NoError(t, store.Append(ctx, testResult("a-1", "owner-1", baseTime)))

	page, err := cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)

	stats := cached.GetStats()
	assert.Equal(t, int64(1), stats.MemoryMisses)
	assert.Equal(t, int64(1), stats.RedisMisses)
	assert.Equal(t, int64(1), stats.StoreReads)
	assert.Contains(t, redis.pages, "owner-1")

	_, err = cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.GetStats().MemoryHits)

	// A memory miss is served by Redis and repopulates memory.
	require.NoError(t, memory.Delete(ctx, "owner-1"))
	_, err = cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	stats = cached.GetStats()
	assert.Equal(t, int64(1), stats.RedisHits)
	assert.Equal(t, int64(1), stats.StoreReads)
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, 1, memory.Len())
}

func TestCachedStore_AppendInvalidates(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)
	memory := NewMemoryCache(100, time.Minute)
	redis := newMapTier()
	cached := NewCachedStore(store, memory, redis, 20, quietLogger())

	require.NoError(t, cached.Append(ctx, testResult("a-1", "owner-1", baseTime)))
	page, err := cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)

	require.NoError(t, cached.Append(ctx, testResult("a-2", "owner-1", baseTime.Add(time.Hour))))
	assert.NotContains(t, redis.pages, "owner-1")

	page, err = cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a-2", page[0].ID)

	n, err := cached.Clear(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err = cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	assert.Empty(t, page)
}

// racingStore runs onList after reading a page, standing in for a write that
// lands while List is in flight.
type racingStore struct {
	history.Store
	onList func()
}

func (r *racingStore) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.AssessmentResult, error) {
	page, err := r.Store.List(ctx, ownerID, limit, offset)
	if r.onList != nil {
		r.onList()
		r.onList = nil
	}
	return page, err
}

func TestCachedStore_WriteDuringReadSkipsWriteBack(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{Store: newSQLite(t)}
	memory := NewMemoryCache(100, time.Minute)
	redis := newMapTier()
	cached := NewCachedStore(store, memory, redis, 20, quietLogger())

	require.NoError(t, cached.Append(ctx, testResult("a-1", "owner-1", baseTime)))
	store.onList = func() {
		require.NoError(t, cached.Append(ctx, testResult("a-2", "owner-1", baseTime.Add(time.Hour))))
	}

	page, err := cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.Equal(t, 0, memory.Len())
	assert.NotContains(t, redis.pages, "owner-1")

	page, err = cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a-2", page[0].ID)
	assert.Equal(t, int64(2), cached.GetStats().StoreReads)

	// Without a concurrent write the page is cached again.
	_, err = cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.GetStats().MemoryHits)
}

func TestCachedStore_DuplicateAppendKeepsCache(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)
	memory := NewMemoryCache(100, time.Minute)
	cached := NewCachedStore(store, memory, nil, 20, quietLogger())

	require.NoError(t, cached.Append(ctx, testResult("a-1", "owner-1", baseTime)))
	_, err := cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)

	err = cached.Append(ctx, testResult("a-1", "owner-1", baseTime))
	assert.True(t, errors.Is(err, history.ErrDuplicate))
	assert.Equal(t, 1, memory.Len())
}

func TestCachedStore_OtherPagesBypassCache(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)
	memory := NewMemoryCache(100, time.Minute)
	cached := NewCachedStore(store, memory, nil, 20, quietLogger())

	for i, id := range []string{"a-1", "a-2", "a-3"} {
		require.NoError(t, cached.Append(ctx, testResult(id, "owner-1", baseTime.Add(time.Duration(i)*time.Hour))))
	}

	page, err := cached.List(ctx, "owner-1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a-2", page[0].ID)
	assert.Equal(t, 0, memory.Len())
	assert.Equal(t, int64(0), cached.GetStats().TotalRequests)

	count, err := cached.Count(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	since, err := cached.Since(ctx, "owner-1", baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, since, 2)

	got, err := cached.Get(ctx, "owner-1", "a-3")
	require.NoError(t, err)
	assert.Equal(t, "a-3", got.ID)
}

func TestCachedStore_RedisErrorFallsThrough(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)
	redis := newMapTier()
	redis.getErr = errors.New("connection refused")
	cached := NewCachedStore(store, nil, redis, 20, quietLogger())

	require.NoError(t, store.Append(ctx, testResult("a-1", "owner-1", baseTime)))

	page, err := cached.List(ctx, "owner-1", 20, 0)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.Equal(t, int64(1), cached.GetStats().ErrorCount)

	cached.ResetStats()
	assert.Equal(t, int64(0), cached.GetStats().ErrorCount)
}

func TestRedisCache_Integration(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("Redis integration test - requires Redis instance (set REDIS_URL)")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, domain.CacheConfig{RedisURL: redisURL, DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	owner := "cache-test-" + time.Now().Format("150405.000000")
	defer c.Delete(ctx, owner)

	_, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, owner, []*domain.AssessmentResult{testResult("a-1", owner, baseTime)}))

	page, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, page, 1)
	assert.True(t, baseTime.Equal(page[0].Date))
	assert.Equal(t, "redis", c.Name())
	assert.NoError(t, c.Health(ctx))
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), domain.CacheConfig{RedisURL: "not a url"})
	assert.Error(t, err)
}
