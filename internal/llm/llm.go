// Package llm sends prompts to a hosted language model and returns its
// text. A Gateway wraps one Provider with bounded exponential backoff for
// rate-limit failures.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// OutcomeKind classifies a single provider call.
type OutcomeKind int

const (
	Succeeded OutcomeKind = iota
	Retryable
	Fatal
)

func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of one provider call: text on success, otherwise
// an error tagged as retryable or fatal.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Success builds a successful Outcome.
func Success(text string) Outcome { return Outcome{Kind: Succeeded, Text: text} }

// Provider is one model backend. Implementations classify their own errors
// (usually through Classify) and never retry.
type Provider interface {
	Complete(ctx context.Context, prompt string) Outcome
	Name() string
	Model() string
}

// Generation holds the sampling parameters sent with every call.
type Generation struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// DefaultGeneration returns the fixed parameters used for tutoring.
func DefaultGeneration() Generation {
	return Generation{
		Temperature:     0.7,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 2048,
	}
}

// RetryConfig bounds the gateway's retry loop. The wait before attempt n+1
// is BaseDelay * 2^(n-1).
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetry returns three attempts starting at a one second wait.
func DefaultRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second}
}

type gatewayState int

const (
	stateAttempting gatewayState = iota
	stateBackoff
	stateSucceeded
	stateFailed
)

// Gateway drives a Provider through the retry state machine.
type Gateway struct {
	provider Provider
	retry    RetryConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewGateway wraps p. A zero RetryConfig selects DefaultRetry.
func NewGateway(p Provider, retry RetryConfig) *Gateway {
	if retry == (RetryConfig{}) {
		retry = DefaultRetry()
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultRetry().MaxAttempts
	}
	if retry.BaseDelay < 0 {
		retry.BaseDelay = 0
	}
	return &Gateway{provider: p, retry: retry, sleep: sleepContext}
}

// Model returns the model identifier of the wrapped provider.
func (g *Gateway) Model() string { return g.provider.Model() }

// Provider returns the name of the wrapped provider.
func (g *Gateway) Provider() string { return g.provider.Name() }

// Complete sends prompt and returns the model's text. Rate-limit failures
// are retried with backoff; anything else fails on the first attempt. Blank
// text is reported as ErrEmptyResponse.
func (g *Gateway) Complete(ctx context.Context, prompt string) (string, error) {
	var (
		state   = stateAttempting
		attempt int
		out     Outcome
	)

	for {
		switch state {
		case stateAttempting:
			attempt++
			start := time.Now()
			out = g.provider.Complete(ctx, prompt)
			slog.Debug("model call",
				"provider", g.provider.Name(),
				"model", g.provider.Model(),
				"attempt", attempt,
				"outcome", out.Kind,
				"latency", time.Since(start))

			switch {
			case out.Kind == Succeeded:
				state = stateSucceeded
			case out.Kind == Retryable && attempt < g.retry.MaxAttempts:
				state = stateBackoff
			default:
				state = stateFailed
			}

		case stateBackoff:
			wait := g.retry.BaseDelay << (attempt - 1)
			slog.Warn("rate limited, retrying",
				"provider", g.provider.Name(),
				"attempt", attempt,
				"wait", wait,
				"error", out.Err)
			if err := g.sleep(ctx, wait); err != nil {
				out = Outcome{Kind: Fatal, Err: err}
				state = stateFailed
				continue
			}
			state = stateAttempting

		case stateSucceeded:
			if strings.TrimSpace(out.Text) == "" {
				return "", ErrEmptyResponse
			}
			return out.Text, nil

		case stateFailed:
			slog.Error("model call failed",
				"provider", g.provider.Name(),
				"model", g.provider.Model(),
				"attempts", attempt,
				"error", out.Err)
			if out.Err == nil {
				return "", fmt.Errorf("%s: call failed without an error", g.provider.Name())
			}
			return "", out.Err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
