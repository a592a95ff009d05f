package model

import (
	"context"
	"fmt"
	"sync"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input.
type Request struct {
	Instructions string           `json:"instructions,omitempty"`
	Contents     []Content        `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	// MaxOutputTokens is the per-call output cap. Nil means the caller did not
	// request one and the adapter default applies.
	MaxOutputTokens *int `json:"max_output_tokens,omitempty"`
}

// WithMaxOutputTokens returns a copy of r carrying n as output cap.
func (r Request) WithMaxOutputTokens(n int) Request {
	r.MaxOutputTokens = &n
	return r
}

// TokenUsage captures token usage statistics for a response. A nil field means
// the provider did not report that figure.
type TokenUsage struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}

// TotalUsage reports a usage carrying only a total token count.
func TotalUsage(total int) *TokenUsage {
	return &TokenUsage{TotalTokens: &total}
}

// SplitUsage reports a usage carrying prompt and completion counts.
func SplitUsage(prompt, completion int) *TokenUsage {
	return &TokenUsage{PromptTokens: &prompt, CompletionTokens: &completion}
}

// Response is the final result of one model call.
type Response struct {
	ID           string      `json:"id"`
	Content      Content     `json:"content"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface the guard and the agent runner need.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Scripted responses are returned in order; once exhausted it echoes the last
// user text. Every received request is recorded.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses []*Response
	errs      []error
	requests  []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
	}
}

// AddResponse queues a response for the next Generate call.
func (m *MockModel) AddResponse(resp *Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	m.errs = append(m.errs, nil)
	return m
}

// AddError queues an error for the next Generate call.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, nil)
	m.errs = append(m.errs, err)
	return m
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if len(m.responses) > 0 {
		resp, err := m.responses[0], m.errs[0]
		m.responses, m.errs = m.responses[1:], m.errs[1:]
		return resp, err
	}

	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("no contents provided")
	}
	text := req.Contents[len(req.Contents)-1].Text()
	return &Response{
		Content:      NewTextContent(RoleAssistant, fmt.Sprintf("Mock response to: %s", text)),
		FinishReason: "stop",
	}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
