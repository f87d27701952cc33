// Package syncapi is a minimal SDK for the SyftBox daemon's local control
// plane, covering the sync-state surface this agent consumes.
package syncapi

import (
	"fmt"
	"runtime"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/syft-status-agent/internal/version"
)

const (
	HeaderUserAgent   = "User-Agent"
	HeaderSyftVersion = "X-Syft-Version"
)

var userAgent = fmt.Sprintf("SyftStatus/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// SyncAPI is the client for the daemon's sync endpoints.
type SyncAPI struct {
	client  *req.Client
	baseURL string
}

// New creates a SyncAPI client for the daemon at baseURL. No retries are
// configured; the external scheduler provides the retry cadence.
func New(baseURL string) (*SyncAPI, error) {
	if baseURL == "" {
		return nil, ErrNoClientURL
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetUserAgent(userAgent).
		SetCommonHeader(HeaderSyftVersion, version.Version).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUmarshal)

	return &SyncAPI{
		client:  client,
		baseURL: baseURL,
	}, nil
}

// Close releases idle connections held by the underlying client.
func (s *SyncAPI) Close() {
	s.client.GetClient().CloseIdleConnections()
}
