package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshdoctor/internal/storage"
	"meshdoctor/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(runID, source string, startedAt time.Time) storage.RunRecord {
	return storage.RunRecord{
		RunID:       runID,
		Source:      source,
		Score:       0.9,
		Problems:    1,
		Fixes:       2,
		Iterations:  1,
		Termination: types.TerminationConverged,
		Status:      storage.StatusOK,
		StartedAt:   startedAt,
		FinishedAt:  startedAt.Add(time.Second),
	}
}

func TestRecordAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordRun(ctx, record("run-1", "a.json", base)))
	require.NoError(t, store.RecordRun(ctx, record("run-2", "b.json", base.Add(time.Minute))))
	require.NoError(t, store.RecordRun(ctx, record("run-3", "a.json", base.Add(2*time.Minute))))

	runs, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].RunID, "newest first")
	assert.Equal(t, "run-1", runs[2].RunID)
	assert.Equal(t, types.TerminationConverged, runs[0].Termination)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Minute)))
}

func TestListRunsFiltersBySource(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.RecordRun(ctx, record("run-1", "a.json", base)))
	require.NoError(t, store.RecordRun(ctx, record("run-2", "b.json", base.Add(time.Minute))))

	runs, err := store.ListRuns(ctx, "a.json", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
}

func TestListRunsHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		rec := record(fmt.Sprintf("run-%d", i), "a.json", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.RecordRun(ctx, rec))
	}

	runs, err := store.ListRuns(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestErrorRowsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := storage.RunRecord{
		RunID:      "run-err",
		Source:     "broken.json",
		Status:     storage.StatusError,
		Error:      "config: expect_modifiers value for \"slat_\" is not a list",
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	require.NoError(t, store.RecordRun(ctx, rec))

	runs, err := store.ListRuns(ctx, "broken.json", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.StatusError, runs[0].Status)
	assert.Contains(t, runs[0].Error, "not a list")
}

func TestConcurrentRecording(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := record(fmt.Sprintf("run-%d", i), "a.json", base.Add(time.Duration(i)*time.Second))
			errs[i] = store.RecordRun(ctx, rec)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	runs, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 8)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.RecordRun(context.Background(), record("run-1", "a.json", time.Now().UTC())))
}

func TestDuplicateRunIDRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.RecordRun(ctx, record("run-1", "a.json", base)))
	err := store.RecordRun(ctx, record("run-1", "a.json", base))
	assert.Error(t, err)
}
