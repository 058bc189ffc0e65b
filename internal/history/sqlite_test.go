package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioage-mcp-server/internal/domain"
)

var baseTime = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func testResult(id, owner string, date time.Time, bioAge float64) *domain.AssessmentResult {
	return &domain.AssessmentResult{
		ID:               id,
		OwnerID:          owner,
		Date:             date,
		ChronologicalAge: 40,
		BiologicalAge:    bioAge,
		Scores:           domain.CategoryScores{Bloodwork: 0.8, Lifestyle: 0.64, Vitals: 0.3},
		OverallScore:     0.62,
		OverallHealth:    domain.HealthGood,
		Recommendations: []domain.Recommendation{
			{ID: "1", Category: domain.RecommendationExercise, Title: "Increase physical activity", Priority: domain.PriorityMedium, Impact: 1.2},
		},
		Engine: domain.EngineDeterministic,
	}
}

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
	assert.NoError(t, store.Health(context.Background()))
}

func TestSQLiteStore_AppendAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	original := testResult("a-1", "owner-1", baseTime, 38.4)
	require.NoError(t, store.Append(ctx, original))

	got, err := store.Get(ctx, "owner-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, original.ID, got.ID)
	assert.True(t, original.Date.Equal(got.Date))
	assert.Equal(t, original.BiologicalAge, got.BiologicalAge)
	assert.Equal(t, original.Scores, got.Scores)
	assert.Equal(t, original.Recommendations, got.Recommendations)

	// Another owner cannot read it.
	_, err = store.Get(ctx, "owner-2", "a-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSQLiteStore_AppendDuplicate(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testResult("a-1", "owner-1", baseTime, 38)))
	err := store.Append(ctx, testResult("a-1", "owner-1", baseTime, 50))
	assert.True(t, errors.Is(err, ErrDuplicate))

	got, err := store.Get(ctx, "owner-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, 38.0, got.BiologicalAge)
}

func TestSQLiteStore_AppendValidation(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	assert.Error(t, store.Append(context.Background(), nil))
	assert.Error(t, store.Append(context.Background(), testResult("", "owner", baseTime, 30)))
	assert.Error(t, store.Append(context.Background(), testResult("id", "", baseTime, 30)))
}

func TestSQLiteStore_ListMostRecentFirst(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, testResult(fmt.Sprintf("a-%d", i), "owner-1", baseTime.AddDate(0, i, 0), 40+float64(i))))
	}
	require.NoError(t, store.Append(ctx, testResult("other", "owner-2", baseTime, 30)))

	all, err := store.List(ctx, "owner-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "a-4", all[0].ID)
	assert.Equal(t, "a-0", all[4].ID)

	page, err := store.List(ctx, "owner-1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a-3", page[0].ID)
	assert.Equal(t, "a-2", page[1].ID)

	empty, err := store.List(ctx, "nobody", 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSQLiteStore_Since(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, testResult(fmt.Sprintf("a-%d", i), "owner-1", baseTime.AddDate(0, i, 0), 40)))
	}

	got, err := store.Since(ctx, "owner-1", baseTime.AddDate(0, 2, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a-2", got[0].ID)
	assert.Equal(t, "a-3", got[1].ID)
}

func TestSQLiteStore_CountAndClear(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testResult("a-1", "owner-1", baseTime, 40)))
	require.NoError(t, store.Append(ctx, testResult("a-2", "owner-1", baseTime.Add(time.Hour), 41)))
	require.NoError(t, store.Append(ctx, testResult("b-1", "owner-2", baseTime, 30)))

	count, err := store.Count(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	removed, err := store.Clear(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	count, err = store.Count(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	count, err = store.Count(ctx, "owner-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_ConcurrentAppend(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Append(ctx, testResult(fmt.Sprintf("c-%d", i), "owner-1", baseTime.Add(time.Duration(i)*time.Minute), 40))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	count, err := store.Count(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), count)
}
