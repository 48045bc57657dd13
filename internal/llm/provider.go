package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one reply from a language model. Implementations wrap
// a vendor SDK; decorators (retry, logging, timeout) wrap other Providers.
type Provider interface {
	// Generate sends req and returns the model's reply. With req.Schema set
	// the reply Content is JSON already validated against that schema.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID names the model requests are sent to.
	ModelID() string
}

// Request is a single-turn prompt. The mentor sends one system prompt and
// one user message summarizing a mock.
type Request struct {
	System   string
	Messages []Message

	// Schema, when non-nil, switches the provider to its native structured
	// output mode. Without it Content carries plain text.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the vendor default.
	Temperature float64
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role identifies who sent a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured replies.
type Schema struct {
	// Name is a kebab-case identifier such as "mentor-note". Vendors that
	// require a schema name receive it verbatim, and compiled schemas are
	// cached under it.
	Name string

	// Description tells the model what the object represents.
	Description string

	// Definition is the JSON Schema document.
	Definition map[string]any
}

// Response is a model reply.
type Response struct {
	// Content is the validated JSON object for schema requests, or the raw
	// text otherwise.
	Content json.RawMessage

	Usage Usage

	// Model is the id reported by the vendor, which may be more specific
	// than the configured one.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage counts tokens for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
