package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/openmined/syft-status-agent/internal/agent/indicator"
	"github.com/openmined/syft-status-agent/internal/syncapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	records []syncapi.SyncRecord
	err     error
	calls   int
}

func (f *fakeFetcher) State(ctx context.Context) ([]syncapi.SyncRecord, error) {
	f.calls++
	return f.records, f.err
}

type fakePaths struct {
	root string
}

func (p *fakePaths) DatasitePath(relPath string) (string, error) {
	if relPath == "" {
		return "", errors.New("empty path")
	}
	return filepath.Join(p.root, relPath), nil
}

// fakeIndicator records every Apply call; failPaths simulate OS call failures.
type fakeIndicator struct {
	mu        sync.Mutex
	applied   map[string]indicator.SyncStatus
	failPaths map[string]bool
}

func newFakeIndicator() *fakeIndicator {
	return &fakeIndicator{
		applied:   make(map[string]indicator.SyncStatus),
		failPaths: make(map[string]bool),
	}
}

func (f *fakeIndicator) Apply(path string, status indicator.SyncStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaths[path] {
		return errors.New("osascript failed")
	}
	f.applied[path] = status
	return nil
}

func (f *fakeIndicator) appliedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.applied))
	for p := range f.applied {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

type fixture struct {
	fetcher    *fakeFetcher
	paths      *fakePaths
	indicator  *fakeIndicator
	store      *CheckpointStore
	reconciler *Reconciler
}

func newFixture(t *testing.T, records []syncapi.SyncRecord) *fixture {
	t.Helper()
	root := t.TempDir()
	fetcher := &fakeFetcher{records: records}
	paths := &fakePaths{root: root}
	ind := newFakeIndicator()
	store := NewCheckpointStore(filepath.Join(root, "state.json"))

	return &fixture{
		fetcher:    fetcher,
		paths:      paths,
		indicator:  ind,
		store:      store,
		reconciler: NewReconciler(fetcher, store, paths, ind),
	}
}

func record(path, status string, ts time.Time) syncapi.SyncRecord {
	return syncapi.SyncRecord{Path: path, Status: status, Timestamp: ts}
}

func TestRun_FirstRunDispatchesEverything(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	fx := newFixture(t, []syncapi.SyncRecord{
		record("a.txt", "synced", old),
		record("b.txt", "queued", time.Now()),
	})

	require.NoError(t, fx.reconciler.Run(context.Background()))

	assert.Len(t, fx.indicator.appliedPaths(), 2, "no checkpoint means no filtering")
	_, ok := fx.store.Load()
	assert.True(t, ok, "checkpoint should be written after a successful run")
}

func TestRun_EmptyFetchDoesNotAdvanceCheckpoint(t *testing.T) {
	fx := newFixture(t, nil)

	prior := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, fx.store.Save(prior))

	require.NoError(t, fx.reconciler.Run(context.Background()))

	got, ok := fx.store.Load()
	require.True(t, ok)
	assert.True(t, got.Equal(prior), "empty fetch must not move the checkpoint")
	assert.Empty(t, fx.indicator.appliedPaths())
}

func TestRun_FetchErrorDegradesToNoWork(t *testing.T) {
	fx := newFixture(t, nil)
	fx.fetcher.err = errors.New("connection refused")

	require.NoError(t, fx.reconciler.Run(context.Background()), "fetch failure is not fatal")
	assert.Empty(t, fx.indicator.appliedPaths())

	_, ok := fx.store.Load()
	assert.False(t, ok, "failed fetch must not create a checkpoint")
}

func TestRun_BufferInclusion(t *testing.T) {
	checkpoint := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	fx := newFixture(t, []syncapi.SyncRecord{
		record("too-old.txt", "synced", checkpoint.Add(-5*time.Second)),
		record("at-buffer.txt", "error", checkpoint.Add(-checkpointBuffer)),
		record("recent.txt", "error", checkpoint.Add(-time.Second)),
		record("new.txt", "queued", checkpoint.Add(time.Second)),
	})
	require.NoError(t, fx.store.Save(checkpoint))

	require.NoError(t, fx.reconciler.Run(context.Background()))

	applied := fx.indicator.appliedPaths()
	require.Len(t, applied, 3)
	assert.Equal(t, "at-buffer.txt", filepath.Base(applied[0]))
	assert.Equal(t, "new.txt", filepath.Base(applied[1]))
	assert.Equal(t, "recent.txt", filepath.Base(applied[2]))
}

func TestRun_CheckpointAnchorIsFetchStart(t *testing.T) {
	fx := newFixture(t, []syncapi.SyncRecord{
		record("a.txt", "synced", time.Now()),
	})

	fetchStart := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	times := []time.Time{fetchStart, fetchStart.Add(30 * time.Second)}
	fx.reconciler.now = func() time.Time {
		next := times[0]
		if len(times) > 1 {
			times = times[1:]
		}
		return next
	}

	require.NoError(t, fx.reconciler.Run(context.Background()))

	got, ok := fx.store.Load()
	require.True(t, ok)
	assert.True(t, got.Equal(fetchStart), "checkpoint must anchor at fetch start, not completion")
}

func TestRun_ValidationIsolation(t *testing.T) {
	now := time.Now()
	fx := newFixture(t, []syncapi.SyncRecord{
		record("good1.txt", "synced", now),
		record("bad.txt", "exploded", now),
		record("", "synced", now),
		record("good2.txt", "ignored", now),
	})

	require.NoError(t, fx.reconciler.Run(context.Background()))

	applied := fx.indicator.appliedPaths()
	require.Len(t, applied, 2)
	assert.Equal(t, "good1.txt", filepath.Base(applied[0]))
	assert.Equal(t, "good2.txt", filepath.Base(applied[1]))

	_, ok := fx.store.Load()
	assert.True(t, ok, "validation failures never block the checkpoint")
}

func TestRun_IndicatorFailureDoesNotAbortSiblings(t *testing.T) {
	now := time.Now()
	fx := newFixture(t, []syncapi.SyncRecord{
		record("ok.txt", "synced", now),
		record("broken.txt", "synced", now),
	})
	fx.indicator.failPaths[filepath.Join(fx.paths.root, "broken.txt")] = true

	require.NoError(t, fx.reconciler.Run(context.Background()))

	applied := fx.indicator.appliedPaths()
	require.Len(t, applied, 1)
	assert.Equal(t, "ok.txt", filepath.Base(applied[0]))

	_, ok := fx.store.Load()
	assert.True(t, ok, "a failed unit is logged, the run still completes")
}

func TestRun_AppliesCorrectStatuses(t *testing.T) {
	now := time.Now()
	fx := newFixture(t, []syncapi.SyncRecord{
		record("q.txt", "queued", now),
		record("e.txt", "error", now),
		record("s.txt", "synced", now),
		record("i.txt", "ignored", now),
	})

	require.NoError(t, fx.reconciler.Run(context.Background()))

	fx.indicator.mu.Lock()
	defer fx.indicator.mu.Unlock()
	assert.Equal(t, indicator.StatusQueued, fx.indicator.applied[filepath.Join(fx.paths.root, "q.txt")])
	assert.Equal(t, indicator.StatusError, fx.indicator.applied[filepath.Join(fx.paths.root, "e.txt")])
	assert.Equal(t, indicator.StatusSynced, fx.indicator.applied[filepath.Join(fx.paths.root, "s.txt")])
	assert.Equal(t, indicator.StatusIgnored, fx.indicator.applied[filepath.Join(fx.paths.root, "i.txt")])
}

func TestFilterSince(t *testing.T) {
	cutoff := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	records := []syncapi.SyncRecord{
		record("before.txt", "synced", cutoff.Add(-time.Millisecond)),
		record("exact.txt", "synced", cutoff),
		record("after.txt", "synced", cutoff.Add(time.Millisecond)),
	}

	filtered := filterSince(records, cutoff)
	require.Len(t, filtered, 2)
	assert.Equal(t, "exact.txt", filtered[0].Path)
	assert.Equal(t, "after.txt", filtered[1].Path)
}
