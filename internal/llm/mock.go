package llm

import (
	"context"
	"sync"
)

// MockDefaultReply is what the offline mock provider answers once its
// queue is empty.
const MockDefaultReply = "This is an offline demo answer. Configure a model provider to get real tutoring responses."

// MockProvider is a deterministic Provider. It returns canned outcomes in
// FIFO order and records every prompt.
type MockProvider struct {
	mu       sync.Mutex
	outcomes []Outcome
	Prompts  []string

	// Default is returned once the queue is drained. When empty, a drained
	// mock fails with ErrProviderUnavailable.
	Default string
}

// NewMockProvider creates a MockProvider with the given canned outcomes.
func NewMockProvider(outcomes ...Outcome) *MockProvider {
	return &MockProvider{outcomes: outcomes}
}

func (m *MockProvider) Complete(ctx context.Context, prompt string) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)

	if err := ctx.Err(); err != nil {
		return Outcome{Kind: Fatal, Err: err}
	}
	if len(m.outcomes) == 0 {
		if m.Default != "" {
			return Success(m.Default)
		}
		return Outcome{Kind: Fatal, Err: &ErrProviderUnavailable{}}
	}
	out := m.outcomes[0]
	m.outcomes = m.outcomes[1:]
	return out
}

func (m *MockProvider) Name() string  { return ProviderMock }
func (m *MockProvider) Model() string { return "mock" }

// Push appends canned outcomes to the queue.
func (m *MockProvider) Push(outcomes ...Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcomes...)
}

// CallCount returns the number of Complete calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *MockProvider) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}
