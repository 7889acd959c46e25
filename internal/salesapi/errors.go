package salesapi

import (
	"errors"
	"fmt"
)

// SessionExpiredMessage is shown to users when the cached token was rejected
const SessionExpiredMessage = "Your session has expired. Please reload to sign in again."

var (
	// ErrSessionExpired is the kind of a sales request rejected as unauthorized.
	// The cached token has already been cleared when this is returned.
	ErrSessionExpired = errors.New("session expired")

	// ErrRequestFailed is the kind of any other sales request failure
	ErrRequestFailed = errors.New("sales request failed")

	// ErrInvalidFilter is returned before any I/O when a filter cannot be sent
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrMalformedResponse wraps body decoding failures
	ErrMalformedResponse = errors.New("malformed response")
)

// HTTPError is a non-2xx response from the sales API
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// RequestError classifies a failed sales request. Kind is ErrSessionExpired or
// ErrRequestFailed; Err is the underlying cause. errors.Is matches either.
type RequestError struct {
	Kind error
	Err  error
}

func (e *RequestError) Error() string {
	if errors.Is(e.Kind, ErrSessionExpired) {
		return SessionExpiredMessage
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *RequestError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsSessionExpired reports whether err means the user must re-authenticate
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// UserMessage turns a client error into text suitable for an error panel
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return SessionExpiredMessage
	case errors.Is(err, ErrInvalidFilter):
		return err.Error()
	case errors.Is(err, ErrRequestFailed):
		return "Failed to load sales data. Check your connection and try again."
	default:
		return "Could not authorize with the sales service. Try again later."
	}
}
