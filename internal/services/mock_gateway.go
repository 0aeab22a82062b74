package services

import (
	"context"
	"sync"

	"github.com/imaginai/adventure-engine/pkg/chat"
)

// MockGateway is a mock implementation of CompletionGateway for testing
type MockGateway struct {
	mu sync.Mutex

	// CompleteFunc overrides the Complete behavior
	CompleteFunc func(ctx context.Context, model string, messages []chat.Message, maxTokens int) (*Completion, error)
	// CompleteStreamFunc overrides the CompleteStream behavior
	CompleteStreamFunc func(ctx context.Context, model string, messages []chat.Message, maxTokens int) (<-chan StreamChunk, error)

	// Call tracking
	CompleteCalls       int
	CompleteStreamCalls int
	LastModel           string
	LastMessages        []chat.Message
	LastMaxTokens       int
}

// Ensure MockGateway implements CompletionGateway interface
var _ CompletionGateway = (*MockGateway)(nil)

func (m *MockGateway) Complete(ctx context.Context, model string, messages []chat.Message, maxTokens int) (*Completion, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.LastModel = model
	m.LastMessages = messages
	m.LastMaxTokens = maxTokens
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, model, messages, maxTokens)
	}
	return &Completion{Text: "Mock completion.", Usage: &Usage{TotalTokens: 2}}, nil
}

func (m *MockGateway) CompleteStream(ctx context.Context, model string, messages []chat.Message, maxTokens int) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.CompleteStreamCalls++
	m.LastModel = model
	m.LastMessages = messages
	m.LastMaxTokens = maxTokens
	fn := m.CompleteStreamFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, model, messages, maxTokens)
	}

	chunks := make(chan StreamChunk, 3)
	chunks <- StreamChunk{Content: "Mock "}
	chunks <- StreamChunk{Content: "stream."}
	chunks <- StreamChunk{Done: true}
	close(chunks)
	return chunks, nil
}

// StreamOf builds a closed chunk channel from text fragments, for tests
func StreamOf(fragments ...string) <-chan StreamChunk {
	chunks := make(chan StreamChunk, len(fragments)+1)
	for _, f := range fragments {
		chunks <- StreamChunk{Content: f}
	}
	chunks <- StreamChunk{Done: true}
	close(chunks)
	return chunks
}

// FailingStreamOf builds a closed chunk channel that emits fragments
// then fails with err
func FailingStreamOf(err error, fragments ...string) <-chan StreamChunk {
	chunks := make(chan StreamChunk, len(fragments)+1)
	for _, f := range fragments {
		chunks <- StreamChunk{Content: f}
	}
	chunks <- StreamChunk{Err: err}
	close(chunks)
	return chunks
}
