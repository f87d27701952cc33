package indicator

import (
	"errors"
	"fmt"
)

// SyncStatus is the per-path sync state reported by the daemon's
// /sync/state endpoint. The set is closed; anything else is rejected
// at the boundary.
type SyncStatus string

const (
	StatusQueued  SyncStatus = "queued"
	StatusError   SyncStatus = "error"
	StatusSynced  SyncStatus = "synced"
	StatusIgnored SyncStatus = "ignored"
)

var ErrUnknownStatus = errors.New("unknown sync status")

// labelIndexes maps each status to its Finder label index.
var labelIndexes = map[SyncStatus]int{
	StatusQueued:  1, // orange
	StatusError:   2, // red
	StatusSynced:  6, // green
	StatusIgnored: 7, // gray
}

// ParseStatus validates a wire value against the closed status set.
func ParseStatus(value string) (SyncStatus, error) {
	status := SyncStatus(value)
	if _, ok := labelIndexes[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
	return status, nil
}

// LabelIndex returns the Finder label index for the status.
func (s SyncStatus) LabelIndex() int {
	return labelIndexes[s]
}

func (s SyncStatus) String() string {
	return string(s)
}
