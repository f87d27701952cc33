// Package indicator renders a path's sync status as a visible marker on the
// local filesystem. On macOS this is the file's Finder label color.
package indicator

// Indicator applies one visual status marker to one local path. Apply is
// idempotent and safe to call concurrently for distinct paths.
type Indicator interface {
	Apply(path string, status SyncStatus) error
}

// FinderLabeler sets Finder label colors via the OS scripting facility.
// On platforms without Finder it degrades to a no-op.
type FinderLabeler struct{}

func NewFinderLabeler() *FinderLabeler {
	return &FinderLabeler{}
}

func (l *FinderLabeler) Apply(path string, status SyncStatus) error {
	return setFinderLabel(path, status.LabelIndex())
}

var _ Indicator = (*FinderLabeler)(nil)
