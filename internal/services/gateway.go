package services

import (
	"context"

	"github.com/imaginai/adventure-engine/pkg/chat"
)

// DefaultMaxTokens bounds completion length when the caller does not
// specify one.
const DefaultMaxTokens = 200

// Usage reports upstream token accounting for a single completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the result of a single-shot completion request.
type Completion struct {
	Text  string
	Usage *Usage
}

// StreamChunk is a single fragment of a streamed completion.
// A chunk with Done set carries no content and terminates the stream,
// as does a chunk with Err set.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// CompletionGateway is the boundary to an upstream text generation
// provider. Implementations never return partial text as success: a
// failed Complete returns an error, and a failed CompleteStream ends
// the channel with an Err chunk.
type CompletionGateway interface {
	// Complete performs a single-shot completion.
	Complete(ctx context.Context, model string, messages []chat.Message, maxTokens int) (*Completion, error)

	// CompleteStream performs a streaming completion. Chunks arrive in
	// emission order; the channel is closed after the terminal chunk.
	CompleteStream(ctx context.Context, model string, messages []chat.Message, maxTokens int) (<-chan StreamChunk, error)
}
