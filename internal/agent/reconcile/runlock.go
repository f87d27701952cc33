package reconcile

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/openmined/syft-status-agent/internal/utils"
	"github.com/shirou/gopsutil/v4/process"
)

// RunLock is the advisory single-instance guard for a reconciliation run.
// The flock is tied to the process, so an abnormal exit releases it.
type RunLock struct {
	flock *flock.Flock
}

func NewRunLock(path string) *RunLock {
	return &RunLock{flock: flock.New(path)}
}

// TryAcquire attempts to take the run lock without blocking. A held lock is
// routine overlap with a previous run, not an error: (false, nil).
func (l *RunLock) TryAcquire() (bool, error) {
	if err := utils.EnsureParent(l.flock.Path()); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		if pid, alive := l.holder(); alive {
			slog.Debug("reconciliation already in progress", "pid", pid)
		}
		return false, nil
	}

	// Record the owner pid for diagnostics. Failure here doesn't affect the
	// lock itself.
	if err := os.WriteFile(l.flock.Path(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		slog.Warn("failed to write pid to run lock", "path", l.flock.Path(), "error", err)
	}

	return true, nil
}

// Release unlocks and removes the lock file. Safe to call when the lock was
// never acquired by this process.
func (l *RunLock) Release() error {
	if !l.flock.Locked() {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}

	return os.Remove(l.flock.Path())
}

// holder reads the pid recorded in the lock file and reports whether that
// process is still alive.
func (l *RunLock) holder() (int32, bool) {
	data, err := os.ReadFile(l.flock.Path())
	if err != nil {
		return 0, false
	}

	pid, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, false
	}

	alive, err := process.PidExists(int32(pid))
	if err != nil {
		return int32(pid), false
	}

	return int32(pid), alive
}
