package mock

import (
	"context"
	"strings"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns Response.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// StreamCompleteFunc is called by StreamComplete if set.
	// If nil, streams Response word by word through onDelta.
	StreamCompleteFunc func(ctx context.Context, prompt string, onDelta func(chunk string) error) (string, error)

	// Response is the canned completion used by the default behavior.
	Response string

	callCount       int
	streamCallCount int
	prompts         []string
}

// NewMockGenerator creates a mock generator with a canned default response.
// Note: Returns concrete type to allow test assertions.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Response: "mock completion"}
}

// Complete returns the canned response or delegates to CompleteFunc.
func (m *MockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	m.callCount++
	m.prompts = append(m.prompts, prompt)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}

	return m.Response, nil
}

// StreamComplete streams the canned response word by word, or delegates to
// StreamCompleteFunc. The default respects context cancellation between
// fragments so tests can exercise mid-stream disconnects.
func (m *MockGenerator) StreamComplete(ctx context.Context, prompt string, onDelta func(chunk string) error) (string, error) {
	m.streamCallCount++
	m.prompts = append(m.prompts, prompt)

	if m.StreamCompleteFunc != nil {
		return m.StreamCompleteFunc(ctx, prompt, onDelta)
	}

	var full strings.Builder
	words := strings.Fields(m.Response)
	for i, word := range words {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := onDelta(chunk); err != nil {
			return "", err
		}
		full.WriteString(chunk)
	}
	return full.String(), nil
}

// CallCount returns the number of Complete calls.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// StreamCallCount returns the number of StreamComplete calls.
func (m *MockGenerator) StreamCallCount() int {
	return m.streamCallCount
}

// Prompts returns every prompt seen by the generator, in call order.
func (m *MockGenerator) Prompts() []string {
	return m.prompts
}

// Reset clears call counts, recorded prompts, and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.streamCallCount = 0
	m.prompts = nil
	m.CompleteFunc = nil
	m.StreamCompleteFunc = nil
}
