package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const quotaCode = "insufficient_quota"

// BackendError is a classified failure reported by the chat backend.
type BackendError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error: status=%d code=%q type=%q: %s", e.StatusCode, e.Code, e.Type, e.Message)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsQuotaExceeded reports a rate or quota limit. Backends surface this in
// different ways, so any one signal is enough: HTTP 429, the
// insufficient_quota error code, or that code appearing in the error text.
// Changes to the backend's error format can silently break this check.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}

	var be *BackendError
	if errors.As(err, &be) {
		if be.StatusCode == http.StatusTooManyRequests || be.Code == quotaCode {
			return true
		}
	}

	return strings.Contains(err.Error(), quotaCode)
}
