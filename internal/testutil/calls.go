package testutil

import (
	"context"

	"github.com/hupe1980/agentguard/model"
)

// RecordingCall is a call function returning a fixed response and recording
// the requests it receives.
type RecordingCall struct {
	Response *model.Response
	Err      error
	Requests []model.Request
}

// Call implements budget.CallFunc.
func (r *RecordingCall) Call(_ context.Context, req model.Request) (*model.Response, error) {
	r.Requests = append(r.Requests, req)
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Response, nil
}

// Calls reports how often the function ran.
func (r *RecordingCall) Calls() int { return len(r.Requests) }

// WithTotal returns a text response reporting total tokens.
func WithTotal(total int) *model.Response {
	return &model.Response{
		Content: model.NewTextContent(model.RoleAssistant, "ok"),
		Usage:   model.TotalUsage(total),
	}
}

// WithSplit returns a text response reporting prompt and completion tokens.
func WithSplit(prompt, completion int) *model.Response {
	return &model.Response{
		Content: model.NewTextContent(model.RoleAssistant, "ok"),
		Usage:   model.SplitUsage(prompt, completion),
	}
}

// WithoutUsage returns a text response carrying no usage at all.
func WithoutUsage() *model.Response {
	return &model.Response{Content: model.NewTextContent(model.RoleAssistant, "ok")}
}

// WithPromptOnly returns a response reporting only prompt tokens.
func WithPromptOnly(prompt int) *model.Response {
	return &model.Response{
		Content: model.NewTextContent(model.RoleAssistant, "ok"),
		Usage:   &model.TokenUsage{PromptTokens: &prompt},
	}
}

// WithFunctionCalls returns an assistant response requesting the given tool
// calls and reporting total tokens.
func WithFunctionCalls(total int, calls ...model.FunctionCall) *model.Response {
	parts := make([]model.Part, 0, len(calls))
	for _, fc := range calls {
		parts = append(parts, model.FunctionCallPart{FunctionCall: fc})
	}
	return &model.Response{
		Content:      model.Content{Role: model.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
		Usage:        model.TotalUsage(total),
	}
}
