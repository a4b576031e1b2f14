package llmclient

import "fmt"

// ClientError is the base error type for reasoning-boundary failures.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ProviderUnavailableError means the provider could not serve the request
// (network failure, 5xx, auth rejection). Whether a retry is worthwhile
// depends on the Retryable flag.
type ProviderUnavailableError struct {
	ClientError
	Provider   string
	StatusCode int
	Retryable  bool
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("[%s] provider unavailable: %s (status=%d, retryable=%v)",
		e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// RateLimitError means the provider throttled the request. RetryAfter, if
// set, is the provider-suggested wait in seconds.
type RateLimitError struct {
	ClientError
	Provider   string
	RetryAfter *float64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("[%s] rate limited: %s", e.Provider, e.Message)
}

// InvalidResponseError means the provider answered but the payload could
// not be interpreted (malformed tool calls, empty completion). Never
// retryable: the same request would fail the same way.
type InvalidResponseError struct {
	ClientError
	Provider string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("[%s] invalid response: %s", e.Provider, e.Message)
}

// IsRetryable reports whether the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *RateLimitError:
		return true
	case *ProviderUnavailableError:
		return e.Retryable
	case *InvalidResponseError:
		return false
	default:
		// Unknown errors (network hiccups, wrapped transport failures)
		// default to retryable.
		return true
	}
}
