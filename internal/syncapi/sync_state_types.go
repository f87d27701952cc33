package syncapi

import "time"

// SyncRecord is one daemon-reported fact about a path: its status as of
// the given timestamp. Paths are relative to the datasites directory.
// Status is validated downstream against the closed indicator set.
type SyncRecord struct {
	Path      string    `json:"path"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
