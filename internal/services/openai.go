package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/imaginai/adventure-engine/pkg/chat"
)

const openaiDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIGateway implements CompletionGateway for OpenAI and any
// chat-completions compatible endpoint (set baseURL to point at a
// proxy or alternative provider).
type OpenAIGateway struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure OpenAIGateway implements CompletionGateway interface
var _ CompletionGateway = (*OpenAIGateway)(nil)

type openaiRequest struct {
	Model     string         `json:"model"`
	Messages  []chat.Message `json:"messages"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Stream    bool           `json:"stream,omitempty"`
}

type openaiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int          `json:"index"`
		Message chat.Message `json:"message"`
		Delta   struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewOpenAIGateway(apiKey string, baseURL string, logger *slog.Logger) *OpenAIGateway {
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	return &OpenAIGateway{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (o *OpenAIGateway) newRequest(ctx context.Context, model string, messages []chat.Message, maxTokens int, stream bool) (*http.Request, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body := openaiRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
		Stream:    stream,
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// Complete generates a completion via the chat completions endpoint
func (o *OpenAIGateway) Complete(ctx context.Context, model string, messages []chat.Message, maxTokens int) (*Completion, error) {
	req, err := o.newRequest(ctx, model, messages, maxTokens, false)
	if err != nil {
		return nil, err
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty completion in response")
	}

	completion := &Completion{Text: apiResp.Choices[0].Message.Content}
	if apiResp.Usage != nil {
		completion.Usage = &Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		}
	}

	return completion, nil
}

// CompleteStream generates a streaming completion via the chat
// completions endpoint
func (o *OpenAIGateway) CompleteStream(ctx context.Context, model string, messages []chat.Message, maxTokens int) (<-chan StreamChunk, error) {
	req, err := o.newRequest(ctx, model, messages, maxTokens, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	chunks := make(chan StreamChunk)
	go func() {
		defer close(chunks)
		defer func() { _ = resp.Body.Close() }()

		// send delivers a chunk unless the consumer has gone away.
		// Every send must be guarded or the goroutine blocks forever
		// once the caller stops reading.
		send := func(c StreamChunk) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case chunks <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				send(StreamChunk{Done: true})
				return
			}

			var event openaiResponse
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				o.logger.Warn("Skipping malformed stream event", "error", err)
				continue
			}

			if event.Error != nil {
				send(StreamChunk{Err: fmt.Errorf("API stream error: %s", event.Error.Message)})
				return
			}

			if len(event.Choices) > 0 && event.Choices[0].Delta.Content != "" {
				if !send(StreamChunk{Content: event.Choices[0].Delta.Content}) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			send(StreamChunk{Err: fmt.Errorf("stream read failed: %w", err)})
			return
		}

		send(StreamChunk{Done: true})
	}()

	return chunks, nil
}
