package provider

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

const maxErrorBody = 1024

const (
	EndpointToken   = "token"
	EndpointProfile = "profile"
)

// UpstreamError reports a failed call to one of the provider endpoints. StatusCode
// is zero for transport failures, timeouts and cancellation.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s request failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream %s request failed: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == apperrors.ErrUpstream
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
