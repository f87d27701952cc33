package syncapi

import (
	"context"
)

const syncStateEndpoint = "/sync/state"

// State fetches the current per-path sync state from the daemon.
func (s *SyncAPI) State(ctx context.Context) ([]SyncRecord, error) {
	var records []SyncRecord

	res, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&records).
		SetErrorResult(&APIError{}).
		Get(syncStateEndpoint)

	if err := handleAPIError(res, err, "sync state"); err != nil {
		return nil, err
	}

	return records, nil
}
