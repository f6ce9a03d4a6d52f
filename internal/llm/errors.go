package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the provider answered with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ErrRateLimit indicates the provider rejected the call for quota or rate
// reasons. It is the only retryable failure.
type ErrRateLimit struct {
	Err error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable wraps every other provider failure.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model provider unavailable: %v", e.Err)
	}
	return "model provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

var rateLimitMarkers = []string{"quota", "rate limit", "resource exhausted", "resource_exhausted"}

// isRateLimitText reports whether an error message looks like a quota or
// rate-limit rejection. Providers do not all surface a status code.
func isRateLimitText(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Classify turns a provider call error into an Outcome. Context errors are
// fatal so a cancelled request is never retried.
func Classify(err error) Outcome {
	if err == nil {
		return Outcome{Kind: Succeeded}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Kind: Fatal, Err: err}
	}
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return Outcome{Kind: Retryable, Err: err}
	}
	if isRateLimitText(err.Error()) {
		return Outcome{Kind: Retryable, Err: &ErrRateLimit{Err: err}}
	}
	return Outcome{Kind: Fatal, Err: err}
}
