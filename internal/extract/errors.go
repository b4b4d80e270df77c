package extract

import (
	"errors"
	"fmt"

	"github.com/jackzampolin/notewise/internal/providers"
)

// ErrMalformedResponse matches any *MalformedResponseError.
var ErrMalformedResponse = errors.New("malformed response")

// ErrEmptySource is returned when a source has neither text nor images.
var ErrEmptySource = errors.New("empty source")

// Re-exported so callers of this package need not import providers.
var (
	ErrConfiguration      = providers.ErrConfiguration
	ErrServiceUnavailable = providers.ErrServiceUnavailable
	ErrTimeout            = providers.ErrTimeout
)

// MalformedResponseError means the generator's output was not JSON or had no
// notes array. No records are salvaged from such a response.
type MalformedResponseError struct {
	Content string // raw generator output
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return "malformed response"
	}
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedResponse) true.
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// IsRetryable reports whether repeating the call might succeed: transient
// service failures, timeouts and malformed responses.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return true
	}
	return providers.IsRetryable(err)
}
