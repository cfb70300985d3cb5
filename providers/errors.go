package providers

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when a call is attempted without a credential.
// No request is sent in that case.
var ErrMissingCredential = errors.New("credential missing")

// maxErrorBody bounds how much of a provider error body is kept for logs
const maxErrorBody = 512

// HTTPError is returned when the provider answers with a non-2xx status
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// NetworkError wraps a transport failure (DNS, connect, TLS, reset, context cancelled)
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when a 2xx response lacks the expected shape
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed provider response: %s: %v", e.Reason, e.Err)
	}
	return "malformed provider response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Kind returns a short label for an error, used for metrics and audit rows
func Kind(err error) string {
	var httpErr *HTTPError
	var netErr *NetworkError
	var malformed *MalformedResponseError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &malformed):
		return "malformed_response"
	}
	return "error"
}

// StatusCode extracts the provider status from an *HTTPError, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
