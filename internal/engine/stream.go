package engine

import (
	"context"
	"strings"

	"github.com/imaginai/adventure-engine/internal/services"
)

// accumulateStream consumes a chunk channel, forwarding each fragment
// through onChunk and returning the assembled text once the stream
// completes. Any failure or cancellation discards the partial text.
func accumulateStream(ctx context.Context, chunks <-chan services.StreamChunk, onChunk func(string)) (string, error) {
	var sb strings.Builder

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return sb.String(), nil
			}
			if chunk.Err != nil {
				return "", &StreamError{Err: chunk.Err}
			}
			if chunk.Content != "" {
				sb.WriteString(chunk.Content)
				if onChunk != nil {
					onChunk(chunk.Content)
				}
			}
			if chunk.Done {
				return sb.String(), nil
			}
		}
	}
}
