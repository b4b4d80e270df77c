package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrConfiguration matches *ConfigurationError.
	ErrConfiguration = errors.New("provider not configured")

	// ErrServiceUnavailable matches every *ServiceError.
	ErrServiceUnavailable = errors.New("inference service unavailable")

	// ErrTimeout matches a *ServiceError caused by a deadline or cancellation.
	ErrTimeout = errors.New("inference request timed out")
)

// ConfigurationError reports a missing credential or setting. It is fatal
// and never worth retrying.
type ConfigurationError struct {
	Provider string
	Setting  string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s: %s is not configured", e.Provider, e.Setting)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is makes errors.Is(err, ErrConfiguration) true.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ServiceError reports a failed or cancelled call to the inference service.
type ServiceError struct {
	Provider   string
	StatusCode int // 0 for transport errors and timeouts
	Message    string
	Timeout    bool
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	switch {
	case e.Timeout:
		b.WriteString(": request timed out")
	case e.StatusCode != 0:
		fmt.Fprintf(&b, ": service error (status %d)", e.StatusCode)
	default:
		b.WriteString(": service unavailable")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	} else if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches ErrServiceUnavailable, and ErrTimeout for timeouts.
func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrServiceUnavailable:
		return true
	case ErrTimeout:
		return e.Timeout
	}
	return false
}

// Retryable reports whether repeating the call could succeed: timeouts,
// transport failures, rate limits and 5xx responses. Other 4xx responses
// mean the request itself is wrong.
func (e *ServiceError) Retryable() bool {
	if e.Timeout || e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= 500
}

// IsRetryable reports whether err is a retryable *ServiceError.
func IsRetryable(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Retryable()
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
