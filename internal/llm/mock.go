package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider for tests and offline runs.
// It returns canned responses in FIFO order and records all requests.
// Once the queue is drained it either fails or, when synthesizing,
// fabricates a placeholder that satisfies the request's schema.
type MockProvider struct {
	mu         sync.Mutex
	responses  []MockResponse
	synthesize bool
	Calls      []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Synthesizing makes m answer from the request schema when no canned
// response is left. It returns m for chaining.
func (m *MockProvider) Synthesizing() *MockProvider {
	m.mu.Lock()
	m.synthesize = true
	m.mu.Unlock()
	return m
}

// Generate returns the next canned response. An empty queue yields
// ErrProviderUnavailable unless the provider is synthesizing.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		if !m.synthesize {
			return nil, &ErrProviderUnavailable{Err: fmt.Errorf("mock: no canned response")}
		}
		return synthesize(req)
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{
		Content:    resp.Content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func synthesize(req Request) (*Response, error) {
	var v any = "mock response"
	if req.Schema != nil {
		v = placeholder("", req.Schema.Definition)
	}
	content, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mock: marshal placeholder: %w", err)
	}
	if err := validateResponse(req.Schema, content); err != nil {
		return nil, err
	}
	return &Response{Content: content, Model: "mock", StopReason: "end"}, nil
}

// placeholder builds the smallest value that fits def. Object properties
// are filled in sorted order so output is stable across runs.
func placeholder(name string, def map[string]any) any {
	if enum, ok := def["enum"].([]any); ok && len(enum) > 0 {
		return enum[0]
	}
	switch def["type"] {
	case "object":
		props, _ := def["properties"].(map[string]any)
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			sub, _ := props[k].(map[string]any)
			out[k] = placeholder(k, sub)
		}
		return out
	case "array":
		n := max(schemaInt(def["minItems"]), 1)
		if hi := schemaInt(def["maxItems"]); hi > 0 && n > hi {
			n = hi
		}
		items, _ := def["items"].(map[string]any)
		out := make([]any, n)
		for i := range out {
			out[i] = placeholder(fmt.Sprintf("%s %d", name, i+1), items)
		}
		return out
	case "integer", "number":
		return schemaInt(def["minimum"])
	case "boolean":
		return false
	case "string":
		if name == "" {
			return "mock"
		}
		return "mock " + name
	}
	return nil
}

func schemaInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
