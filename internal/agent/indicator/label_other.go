//go:build !darwin

package indicator

import "log/slog"

// Finder labels only exist on macOS. Elsewhere the marker is a no-op so the
// reconcile loop still exercises its full path.
func setFinderLabel(path string, labelIndex int) error {
	slog.Debug("finder labels unsupported on this platform", "path", path, "label", labelIndex)
	return nil
}
