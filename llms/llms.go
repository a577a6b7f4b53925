// Package llms defines the text-generation client contract used by the
// workflow, together with typed structured-output decoding.
//
// Two implementations live in sub-packages: llms/openai talks to the
// OpenAI chat completions API directly and llms/langchain adapts any
// langchaingo model.
package llms

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch is returned when a structured response does not decode into the requested shape.
	ErrSchemaMismatch = errors.New("structured output does not match schema")

	// ErrEmptyResponse is returned when the service answers without any generated text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Role tags a message with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Client sends messages to a completion service.
type Client interface {
	// Generate returns the generated text for messages.
	Generate(ctx context.Context, messages []Message) (string, error)

	// GenerateStructured asks the service for a JSON document conforming to
	// schema and returns it undecoded. Use Structured for typed results.
	GenerateStructured(ctx context.Context, messages []Message, schema *Schema) (string, error)
}

// APIError reports a failed call to the completion service.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm api error: %s", e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the call may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 408 || e.StatusCode == 429 || e.StatusCode >= 500
}

// IsRetryable is the retry predicate for text-generation calls.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrSchemaMismatch) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, ErrEmptyResponse)
}
