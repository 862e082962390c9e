package rewrite

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Backend is one generative-text service the engine can call.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// FailureKind classifies a backend error to pick the right backoff schedule.
type FailureKind int

const (
	// FailureUnknown is anything we cannot classify; it gets the same
	// conservative linear schedule as timeouts.
	FailureUnknown FailureKind = iota
	// FailureRateLimit is a quota/429 signal. The quota recovers on its own
	// clock, so the wait is long and flat rather than growing per attempt.
	FailureRateLimit
	// FailureOverloaded is a 503/overloaded signal; classic exponential
	// backoff applies.
	FailureOverloaded
	// FailureTimeout is a deadline or network timeout; linear backoff.
	FailureTimeout
)

func (k FailureKind) String() string {
	switch k {
	case FailureRateLimit:
		return "rate_limit"
	case FailureOverloaded:
		return "overloaded"
	case FailureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Classify maps a backend error onto a FailureKind. Backends surface raw SDK
// errors, so classification goes by error types first and status/message
// sniffing second.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "ratelimit"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "resource exhausted"):
		return FailureRateLimit
	case strings.Contains(msg, "503"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "capacity"):
		return FailureOverloaded
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline"):
		return FailureTimeout
	default:
		return FailureUnknown
	}
}

// ExhaustedError is returned when every attempt across every fallback
// backend has failed. The caller treats it as a per-item rejection, not a
// pipeline abort.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("rewrite failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}
