// Package agent wires the single-instance guard, the sync-state client and
// the reconciler into one scheduler-driven run.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/syft-status-agent/internal/agent/config"
	"github.com/openmined/syft-status-agent/internal/agent/indicator"
	"github.com/openmined/syft-status-agent/internal/agent/reconcile"
	"github.com/openmined/syft-status-agent/internal/agent/workspace"
	"github.com/openmined/syft-status-agent/internal/syncapi"
)

type Agent struct {
	config     *config.Config
	workspace  *workspace.Workspace
	api        *syncapi.SyncAPI
	lock       *reconcile.RunLock
	reconciler *reconcile.Reconciler
}

func New(cfg *config.Config) (*Agent, error) {
	ws, err := workspace.NewWorkspace(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	if err := ws.Setup(); err != nil {
		return nil, err
	}

	api, err := syncapi.New(cfg.ClientURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync api client: %w", err)
	}

	checkpoints := reconcile.NewCheckpointStore(ws.CheckpointPath())
	reconciler := reconcile.NewReconciler(api, checkpoints, ws, indicator.NewFinderLabeler())

	return &Agent{
		config:     cfg,
		workspace:  ws,
		api:        api,
		lock:       reconcile.NewRunLock(ws.LockPath()),
		reconciler: reconciler,
	}, nil
}

// Run executes one reconciliation, guarded by the run lock. An overlapping
// run is routine and exits silently without side effects.
func (a *Agent) Run(ctx context.Context) error {
	acquired, err := a.lock.TryAcquire()
	if err != nil {
		return err
	}
	if !acquired {
		slog.Debug("another reconciliation is in progress, skipping this run")
		return nil
	}
	defer func() {
		if err := a.lock.Release(); err != nil {
			slog.Warn("failed to release run lock", "error", err)
		}
	}()
	defer a.api.Close()

	return a.reconciler.Run(ctx)
}
