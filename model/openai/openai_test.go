package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentguard/model"
)

func newTestModel(t *testing.T, body string, captured *map[string]any) *Model {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if captured != nil {
			require.NoError(t, json.Unmarshal(raw, captured))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return NewModelFromClient(&client)
}

const completionWithUsage = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "checking",
      "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{\"q\":\"x\"}"}}]
    }
  }],
  "usage": {"prompt_tokens": 30, "completion_tokens": 12, "total_tokens": 42}
}`

func TestGenerate_MapsResponseAndUsage(t *testing.T) {
	var captured map[string]any
	m := newTestModel(t, completionWithUsage, &captured)

	req := model.Request{
		Instructions: "be brief",
		Contents:     []model.Content{model.NewTextContent(model.RoleUser, "hello")},
		Tools: []model.ToolDefinition{{
			Name:        "lookup",
			Description: "Look things up",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		}},
	}.WithMaxOutputTokens(64)

	resp, err := m.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, "checking", resp.Content.Text())
	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lookup", calls[0].Name)
	assert.Equal(t, "call_1", calls[0].ID)

	require.NotNil(t, resp.Usage)
	assert.Equal(t, 42, *resp.Usage.TotalTokens)
	assert.Equal(t, 30, *resp.Usage.PromptTokens)

	assert.EqualValues(t, 64, captured["max_completion_tokens"])
	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Len(t, captured["tools"], 1)
}

func TestGenerate_MissingUsageIsNil(t *testing.T) {
	m := newTestModel(t, `{"id":"c","object":"chat.completion","created":1,"model":"gpt-4o-mini",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}]}`, nil)

	resp, err := m.Generate(context.Background(), model.Request{Contents: []model.Content{model.NewTextContent(model.RoleUser, "x")}})
	require.NoError(t, err)
	assert.Nil(t, resp.Usage)
}

func TestGenerate_NoChoices(t *testing.T) {
	m := newTestModel(t, `{"id":"c","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`, nil)

	_, err := m.Generate(context.Background(), model.Request{Contents: []model.Content{model.NewTextContent(model.RoleUser, "x")}})
	assert.ErrorContains(t, err, "no choices")
}

func TestBuildMessages_ToolResponsesFollowCalls(t *testing.T) {
	req := model.Request{Contents: []model.Content{
		model.NewTextContent(model.RoleUser, "weather?"),
		{Role: model.RoleAssistant, Parts: []model.Part{model.FunctionCallPart{FunctionCall: model.FunctionCall{ID: "c1", Name: "weather", Arguments: "{}"}}}},
		{Role: model.RoleTool, Parts: []model.Part{model.FunctionResponsePart{FunctionResponse: model.FunctionResponse{ID: "c1", Name: "weather", Response: "sunny"}}}},
		{Role: model.RoleTool, Parts: []model.Part{model.FunctionResponsePart{FunctionResponse: model.FunctionResponse{ID: "orphan", Name: "x", Error: "failed"}}}},
	}}

	responses, order := collectToolResponses(req)
	assert.Equal(t, []string{"c1", "orphan"}, order)
	assert.Equal(t, "error: failed", responses["orphan"])

	msgs := buildMessages(req, responses, order)
	require.Len(t, msgs, 4)
	require.NotNil(t, msgs[2].OfTool)
	assert.Equal(t, "c1", msgs[2].OfTool.ToolCallID)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "orphan", msgs[3].OfTool.ToolCallID)
}

func TestInfo(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "gpt-test" })
	assert.Equal(t, model.Info{Name: "gpt-test", Provider: "openai", SupportsTools: true}, m.Info())
}
