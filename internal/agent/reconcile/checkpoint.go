package reconcile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openmined/syft-status-agent/internal/utils"
)

// CheckpointStore persists the timestamp boundary below which prior-run work
// is assumed already applied. It is a single JSON file owned exclusively by
// the reconciler; the run lock keeps concurrent processes away from it.
type CheckpointStore struct {
	path string
}

type checkpointData struct {
	LastSynced string `json:"last_synced"`
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Load reads the checkpoint. It fails soft: an absent file means first run,
// and a malformed file is deleted so garbled state does not persist.
func (s *CheckpointStore) Load() (time.Time, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("checkpoint not found, assuming first run", "path", s.path)
		} else {
			slog.Error("failed to read checkpoint", "path", s.path, "error", err)
		}
		return time.Time{}, false
	}

	var cp checkpointData
	if err := json.Unmarshal(data, &cp); err != nil {
		slog.Error("malformed checkpoint, deleting", "path", s.path, "error", err)
		s.remove()
		return time.Time{}, false
	}

	lastSynced, err := time.Parse(time.RFC3339Nano, cp.LastSynced)
	if err != nil {
		slog.Error("invalid checkpoint timestamp, deleting", "path", s.path, "value", cp.LastSynced, "error", err)
		s.remove()
		return time.Time{}, false
	}

	return lastSynced, true
}

// Save writes the checkpoint. Must only be called after every dispatched
// unit of the run has completed.
func (s *CheckpointStore) Save(t time.Time) error {
	data, err := json.Marshal(checkpointData{LastSynced: t.Format(time.RFC3339Nano)})
	if err != nil {
		return fmt.Errorf("checkpoint marshal: %w", err)
	}

	if err := utils.EnsureParent(s.path); err != nil {
		return fmt.Errorf("checkpoint dir: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint write '%s': %w", s.path, err)
	}

	return nil
}

func (s *CheckpointStore) remove() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to delete checkpoint", "path", s.path, "error", err)
	}
}
