package syncapi

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	ErrNoClientURL = errors.New("syncapi: client url missing")
)

// APIError represents an error body returned by the daemon's control plane.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr.Code != "" {
			return fmt.Errorf("%s %w", operation, apiErr)
		}

		return fmt.Errorf("api error: %s %s", operation, resp.Status)
	}

	return nil
}
