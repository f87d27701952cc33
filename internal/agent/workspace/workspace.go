package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openmined/syft-status-agent/internal/utils"
)

const (
	metadataDir    = ".data"
	agentDir       = "status-agent"
	checkpointFile = "state.json"
	lockFile       = "reconcile.pid"

	pathSep = string(filepath.Separator)
)

// Workspace describes the SyftBox data directory this agent operates on.
// The root is the daemon's datasites directory; the agent keeps its own
// private state under <root>/.data/status-agent.
type Workspace struct {
	Root         string
	DatasitesDir string
	AgentDataDir string
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	return &Workspace{
		Root:         root,
		DatasitesDir: root,
		AgentDataDir: filepath.Join(root, metadataDir, agentDir),
	}, nil
}

// Setup creates the agent's private data directory.
func (w *Workspace) Setup() error {
	if err := utils.EnsureDir(w.AgentDataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.AgentDataDir, err)
	}
	return nil
}

func (w *Workspace) CheckpointPath() string {
	return filepath.Join(w.AgentDataDir, checkpointFile)
}

func (w *Workspace) LockPath() string {
	return filepath.Join(w.AgentDataDir, lockFile)
}

// DatasitePath maps a daemon-reported relative path to an absolute path under
// the datasites directory. Paths escaping the root are rejected.
func (w *Workspace) DatasitePath(relPath string) (string, error) {
	cleaned := cleanPath(relPath)
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid datasite path %q", relPath)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+pathSep) {
		return "", fmt.Errorf("datasite path %q escapes workspace root", relPath)
	}

	return filepath.Join(w.DatasitesDir, cleaned), nil
}

// cleanPath returns a path with leading and trailing slashes removed
func cleanPath(path string) string {
	path = filepath.FromSlash(path)
	return strings.TrimLeft(filepath.Clean(path), pathSep)
}
