package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaginai/adventure-engine/pkg/chat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testMessages() []chat.Message {
	return []chat.Message{
		{Role: chat.RoleSystem, Content: "You are a storyteller."},
		{Role: chat.RoleUser, Content: "I open the door."},
	}
}

func TestAnthropicGateway_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "You are a storyteller.", req.System)
		require.Len(t, req.Messages, 1, "system message must be lifted out of the conversation")
		assert.Equal(t, chat.RoleUser, req.Messages[0].Role)
		assert.Equal(t, 200, req.MaxTokens)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "The door creaks open."}},
			"usage":   map[string]int{"input_tokens": 12, "output_tokens": 6},
		})
	}))
	defer server.Close()

	g := NewAnthropicGateway("test-key", server.URL, testLogger())
	completion, err := g.Complete(context.Background(), "claude-test", testMessages(), 0)
	require.NoError(t, err)

	assert.Equal(t, "The door creaks open.", completion.Text)
	require.NotNil(t, completion.Usage)
	assert.Equal(t, 12, completion.Usage.PromptTokens)
	assert.Equal(t, 6, completion.Usage.CompletionTokens)
	assert.Equal(t, 18, completion.Usage.TotalTokens)
}

func TestAnthropicGateway_Complete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewAnthropicGateway("test-key", server.URL, testLogger())
	_, err := g.Complete(context.Background(), "claude-test", testMessages(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropicGateway_CompleteStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content_block_delta\n")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"The door "}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"creaks open."}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n\n")
	}))
	defer server.Close()

	g := NewAnthropicGateway("test-key", server.URL, testLogger())
	chunks, err := g.CompleteStream(context.Background(), "claude-test", testMessages(), 100)
	require.NoError(t, err)

	var text string
	var done bool
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		text += chunk.Content
		if chunk.Done {
			done = true
		}
	}
	assert.True(t, done)
	assert.Equal(t, "The door creaks open.", text)
}

func TestAnthropicGateway_CompleteStream_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`+"\n\n")
	}))
	defer server.Close()

	g := NewAnthropicGateway("test-key", server.URL, testLogger())
	chunks, err := g.CompleteStream(context.Background(), "claude-test", testMessages(), 100)
	require.NoError(t, err)

	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
		}
	}
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "overloaded")
}

func TestOpenAIGateway_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req openaiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2, "system message travels inline")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "The door creaks open."}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18},
		})
	}))
	defer server.Close()

	g := NewOpenAIGateway("test-key", server.URL, testLogger())
	completion, err := g.Complete(context.Background(), "gpt-test", testMessages(), 100)
	require.NoError(t, err)

	assert.Equal(t, "The door creaks open.", completion.Text)
	require.NotNil(t, completion.Usage)
	assert.Equal(t, 18, completion.Usage.TotalTokens)
}

func TestOpenAIGateway_Complete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	g := NewOpenAIGateway("test-key", server.URL, testLogger())
	_, err := g.Complete(context.Background(), "gpt-test", testMessages(), 100)
	assert.Error(t, err)
}

func TestAnthropicGateway_CompleteStream_CancelClosesChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}`+"\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := NewAnthropicGateway("test-key", server.URL, testLogger())
	chunks, err := g.CompleteStream(ctx, "claude-test", testMessages(), 100)
	require.NoError(t, err)

	first, open := <-chunks
	require.True(t, open)
	assert.Equal(t, "partial", first.Content)

	cancel()

	// The reader goroutine must stop sending and close the channel on
	// its own; the consumer walked away and drains nothing further.
	select {
	case c, open := <-chunks:
		assert.False(t, open, "unexpected chunk after cancellation: %+v", c)
	case <-time.After(2 * time.Second):
		t.Fatal("stream channel not closed after cancellation")
	}
}

func TestOpenAIGateway_CompleteStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"The door "}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"creaks open."}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	g := NewOpenAIGateway("test-key", server.URL, testLogger())
	chunks, err := g.CompleteStream(context.Background(), "gpt-test", testMessages(), 100)
	require.NoError(t, err)

	var text string
	var done bool
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		text += chunk.Content
		if chunk.Done {
			done = true
		}
	}
	assert.True(t, done)
	assert.Equal(t, "The door creaks open.", text)
}

func TestOpenAIGateway_CompleteStream_CancelClosesChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"partial"}}]}`+"\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := NewOpenAIGateway("test-key", server.URL, testLogger())
	chunks, err := g.CompleteStream(ctx, "gpt-test", testMessages(), 100)
	require.NoError(t, err)

	first, open := <-chunks
	require.True(t, open)
	assert.Equal(t, "partial", first.Content)

	cancel()

	select {
	case c, open := <-chunks:
		assert.False(t, open, "unexpected chunk after cancellation: %+v", c)
	case <-time.After(2 * time.Second):
		t.Fatal("stream channel not closed after cancellation")
	}
}
