package model

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPError wraps an HTTP status code so retry and revocation logic can
// inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err represents a revoked or otherwise invalid
// delivery credential. This is the only error class that can permanently
// remove a subscription.
func IsAuthError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized
}
