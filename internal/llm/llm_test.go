package llm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"
)

// newTestGateway returns a gateway that records backoff waits instead of
// sleeping.
func newTestGateway(p Provider) (*Gateway, *[]time.Duration) {
	var waits []time.Duration
	g := NewGateway(p, RetryConfig{MaxAttempts: 3, BaseDelay: time.Second})
	g.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return g, &waits
}

func rateLimited() Outcome {
	return Outcome{Kind: Retryable, Err: &ErrRateLimit{Err: errors.New("429 quota exceeded")}}
}

func TestGatewaySucceedsFirstAttempt(t *testing.T) {
	mock := NewMockProvider(Success("Photosynthesis is how plants make food."))
	g, waits := newTestGateway(mock)

	got, err := g.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Photosynthesis is how plants make food." {
		t.Errorf("Complete() = %q", got)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
	if len(*waits) != 0 {
		t.Errorf("expected no backoff, got %v", *waits)
	}
	if mock.LastPrompt() != "prompt" {
		t.Errorf("LastPrompt() = %q", mock.LastPrompt())
	}
}

func TestGatewayRetriesRateLimitThenSucceeds(t *testing.T) {
	mock := NewMockProvider(rateLimited(), rateLimited(), Success("ok"))
	g, waits := newTestGateway(mock)

	got, err := g.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("Complete() = %q, want ok", got)
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !slices.Equal(*waits, want) {
		t.Errorf("waits = %v, want %v", *waits, want)
	}
}

func TestGatewayGivesUpAfterMaxAttempts(t *testing.T) {
	mock := NewMockProvider(rateLimited(), rateLimited(), rateLimited(), Success("never"))
	g, waits := newTestGateway(mock)

	_, err := g.Complete(context.Background(), "prompt")
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
	if len(*waits) != 2 {
		t.Errorf("expected 2 waits, got %v", *waits)
	}
}

func TestGatewayFatalNotRetried(t *testing.T) {
	fatal := Outcome{Kind: Fatal, Err: &ErrProviderUnavailable{Err: errors.New("invalid API key")}}
	mock := NewMockProvider(fatal, Success("never"))
	g, waits := newTestGateway(mock)

	_, err := g.Complete(context.Background(), "prompt")
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
	if len(*waits) != 0 {
		t.Errorf("expected no backoff, got %v", *waits)
	}
}

func TestGatewayEmptyText(t *testing.T) {
	mock := NewMockProvider(Success("  \n "))
	g, _ := newTestGateway(mock)

	_, err := g.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGatewayCancelledContext(t *testing.T) {
	mock := NewMockProvider(rateLimited(), Success("never"))
	g := NewGateway(mock, RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Complete(ctx, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestGatewayDefaults(t *testing.T) {
	g := NewGateway(NewMockProvider(), RetryConfig{})
	if g.retry.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", g.retry.MaxAttempts)
	}
	if g.Model() != "mock" || g.Provider() != ProviderMock {
		t.Errorf("Model/Provider = %q/%q", g.Model(), g.Provider())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want OutcomeKind
	}{
		{"nil", nil, Succeeded},
		{"typed rate limit", &ErrRateLimit{Err: errors.New("429")}, Retryable},
		{"wrapped rate limit", fmt.Errorf("call: %w", &ErrRateLimit{}), Retryable},
		{"quota text", errors.New("googleapi: Error 429: Quota exceeded for metric"), Retryable},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), Retryable},
		{"rate limit text", errors.New("Rate limit reached for requests"), Retryable},
		{"auth failure", &ErrProviderUnavailable{Err: errors.New("401 invalid API key")}, Fatal},
		{"canceled", context.Canceled, Fatal},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), Fatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("Classify(%v).Kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
			if got.Kind == Retryable {
				var rl *ErrRateLimit
				if !errors.As(got.Err, &rl) {
					t.Errorf("retryable outcome should carry ErrRateLimit, got %v", got.Err)
				}
			}
		})
	}
}

func TestMockProviderDefault(t *testing.T) {
	m := NewMockProvider()
	if out := m.Complete(context.Background(), "x"); out.Kind != Fatal {
		t.Errorf("drained mock without default: Kind = %v, want fatal", out.Kind)
	}

	m.Default = MockDefaultReply
	if out := m.Complete(context.Background(), "x"); out.Kind != Succeeded || out.Text != MockDefaultReply {
		t.Errorf("drained mock with default: %+v", out)
	}

	m.Push(Success("queued"))
	if out := m.Complete(context.Background(), "x"); out.Text != "queued" {
		t.Errorf("expected queued outcome first, got %+v", out)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini with key", Config{Provider: ProviderGemini, APIKey: "k"}, false},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"unknown", Config{Provider: "bard", APIKey: "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMockGateway(t *testing.T) {
	g, err := New(context.Background(), Config{Provider: ProviderMock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := g.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != MockDefaultReply {
		t.Errorf("Complete() = %q", got)
	}
}

func TestResolveModel(t *testing.T) {
	if got := resolveModel("gemini-flash", geminiModels); got != "gemini-2.0-flash" {
		t.Errorf("alias not resolved: %q", got)
	}
	if got := resolveModel("gemini-1.5-pro-002", geminiModels); got != "gemini-1.5-pro-002" {
		t.Errorf("direct ID changed: %q", got)
	}
}

func TestDefaultGeneration(t *testing.T) {
	g := DefaultGeneration()
	if g.Temperature != 0.7 || g.TopP != 0.95 || g.TopK != 40 || g.MaxOutputTokens != 2048 {
		t.Errorf("DefaultGeneration() = %+v", g)
	}
}
