package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates an operation's lifecycle preconditions
	// are not met, such as retrying when the last turn is not a model
	// turn.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation indicates missing or malformed caller input.
	ErrValidation = errors.New("validation failed")
)

// GenerationError wraps an upstream completion failure. Any user turn
// persisted before the failure remains durable.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// StreamError wraps a mid-stream completion failure. Partial streamed
// output is discarded, never persisted.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
