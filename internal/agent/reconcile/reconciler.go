// Package reconcile implements the incremental status-reconciliation loop:
// fetch the daemon's sync state, filter it against the last checkpoint,
// fan out indicator application, and advance the checkpoint.
package reconcile

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/syft-status-agent/internal/agent/indicator"
	"github.com/openmined/syft-status-agent/internal/syncapi"
	"golang.org/x/sync/errgroup"
)

// checkpointBuffer is the grace window subtracted from the checkpoint when
// filtering. Clock skew and at-least-once delivery mean a record stamped at
// or slightly before the checkpoint may not have been processed last run;
// re-applying an indicator is idempotent, so erring toward reprocessing is
// safe while skipping would silently lose updates.
const checkpointBuffer = 2 * time.Second

// Fetcher retrieves the current sync state from the daemon.
type Fetcher interface {
	State(ctx context.Context) ([]syncapi.SyncRecord, error)
}

// PathResolver maps a daemon-reported relative path to an absolute local path.
type PathResolver interface {
	DatasitePath(relPath string) (string, error)
}

// Reconciler drives one reconciliation run: fetch, filter by checkpoint,
// concurrent dispatch, checkpoint advance.
type Reconciler struct {
	fetcher     Fetcher
	checkpoints *CheckpointStore
	paths       PathResolver
	indicator   indicator.Indicator
	workers     int

	now func() time.Time
}

func NewReconciler(fetcher Fetcher, checkpoints *CheckpointStore, paths PathResolver, ind indicator.Indicator) *Reconciler {
	return &Reconciler{
		fetcher:     fetcher,
		checkpoints: checkpoints,
		paths:       paths,
		indicator:   ind,
		workers:     runtime.NumCPU(),
		now:         time.Now,
	}
}

// Run performs one end-to-end reconciliation. All failures degrade to "do
// less this run"; the scheduler re-invokes the agent and convergence follows.
func (r *Reconciler) Run(ctx context.Context) error {
	// The checkpoint anchor is captured before the fetch so records produced
	// during a long fetch/dispatch window are picked up by the next run.
	fetchStartedAt := r.now()

	records := r.fetchState(ctx)
	if len(records) == 0 {
		// An empty result may also mean the daemon transiently returned
		// nothing, so the checkpoint does not advance.
		slog.Debug("no sync state reported, leaving checkpoint untouched")
		return nil
	}

	if lastSynced, ok := r.checkpoints.Load(); ok {
		records = filterSince(records, lastSynced.Add(-checkpointBuffer))
	}

	applied, skipped, failed := r.dispatch(ctx, records)

	slog.Info("reconcile complete",
		"records", humanize.Comma(int64(len(records))),
		"applied", applied,
		"skipped", skipped,
		"failed", failed,
		"took", r.now().Sub(fetchStartedAt),
	)

	if err := r.checkpoints.Save(fetchStartedAt); err != nil {
		// Next run re-reconciles from the stale checkpoint, which is safe
		// because indicator application is idempotent.
		slog.Error("failed to save checkpoint", "error", err)
	}

	return nil
}

// fetchState is fail-open: any transport or API error degrades to an empty
// work set for this run.
func (r *Reconciler) fetchState(ctx context.Context) []syncapi.SyncRecord {
	records, err := r.fetcher.State(ctx)
	if err != nil {
		slog.Error("failed to fetch sync state", "error", err)
		return nil
	}
	return records
}

// filterSince keeps records whose timestamp is at or after the cutoff.
func filterSince(records []syncapi.SyncRecord, cutoff time.Time) []syncapi.SyncRecord {
	filtered := records[:0]
	for _, rec := range records {
		if !rec.Timestamp.Before(cutoff) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// dispatch fans the records out over a bounded worker pool and blocks until
// every unit has completed. Per-record failures never abort siblings.
func (r *Reconciler) dispatch(ctx context.Context, records []syncapi.SyncRecord) (applied, skipped, failed int64) {
	var appliedCount, skippedCount, failedCount atomic.Int64

	eg := &errgroup.Group{}
	eg.SetLimit(r.workers)

	for _, rec := range records {
		rec := rec
		eg.Go(func() error {
			switch r.processRecord(rec) {
			case recordApplied:
				appliedCount.Add(1)
			case recordSkipped:
				skippedCount.Add(1)
			case recordFailed:
				failedCount.Add(1)
			}
			return nil
		})
	}

	// Workers never return errors; Wait is the join barrier before the
	// checkpoint save.
	_ = eg.Wait()

	return appliedCount.Load(), skippedCount.Load(), failedCount.Load()
}

type recordOutcome int

const (
	recordApplied recordOutcome = iota
	recordSkipped
	recordFailed
)

func (r *Reconciler) processRecord(rec syncapi.SyncRecord) recordOutcome {
	if rec.Path == "" {
		slog.Error("sync record missing path", "status", rec.Status)
		return recordSkipped
	}

	status, err := indicator.ParseStatus(rec.Status)
	if err != nil {
		slog.Error("invalid status value", "path", rec.Path, "error", err)
		return recordSkipped
	}

	absPath, err := r.paths.DatasitePath(rec.Path)
	if err != nil {
		slog.Error("failed to resolve datasite path", "path", rec.Path, "error", err)
		return recordSkipped
	}

	if err := r.indicator.Apply(absPath, status); err != nil {
		slog.Error("failed to apply sync status indicator", "path", absPath, "status", status, "error", err)
		return recordFailed
	}

	return recordApplied
}
