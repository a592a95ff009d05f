// Package telemetry wraps guarded model calls in OpenTelemetry spans.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentguard/budget"
	"github.com/hupe1980/agentguard/model"
)

// SpanName is the name of the span around each model call.
const SpanName = "llm.call"

// Attribute keys set on call spans.
const (
	AttrMaxOutputTokens  = attribute.Key("llm.request.max_output_tokens")
	AttrPromptTokens     = attribute.Key("llm.usage.prompt_tokens")
	AttrCompletionTokens = attribute.Key("llm.usage.completion_tokens")
	AttrTotalTokens      = attribute.Key("llm.usage.total_tokens")
	AttrUsageAvailable   = attribute.Key("llm.usage.available")
	AttrFinishReason     = attribute.Key("llm.response.finish_reason")
)

// TraceCall returns a CallFunc that runs fn inside a span. Errors from fn are
// recorded on the span and returned unchanged.
func TraceCall(tracer oteltrace.Tracer, fn budget.CallFunc) budget.CallFunc {
	return func(ctx context.Context, req model.Request) (*model.Response, error) {
		ctx, span := tracer.Start(ctx, SpanName, oteltrace.WithSpanKind(oteltrace.SpanKindClient))
		defer span.End()

		if req.MaxOutputTokens != nil {
			span.SetAttributes(AttrMaxOutputTokens.Int(*req.MaxOutputTokens))
		}

		resp, err := fn(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return resp, err
		}

		if resp == nil {
			span.SetAttributes(AttrUsageAvailable.Bool(false))
			return resp, nil
		}

		span.SetAttributes(AttrFinishReason.String(resp.FinishReason))
		setUsage(span, resp.Usage)
		return resp, nil
	}
}

// Wrap adapts TraceCall to agent.Options.WrapCall.
func Wrap(tracer oteltrace.Tracer) func(budget.CallFunc) budget.CallFunc {
	return func(fn budget.CallFunc) budget.CallFunc { return TraceCall(tracer, fn) }
}

func setUsage(span oteltrace.Span, u *model.TokenUsage) {
	_, ok := budget.ExtractUsage(u)
	span.SetAttributes(AttrUsageAvailable.Bool(ok))
	if u == nil {
		return
	}
	if u.PromptTokens != nil {
		span.SetAttributes(AttrPromptTokens.Int(*u.PromptTokens))
	}
	if u.CompletionTokens != nil {
		span.SetAttributes(AttrCompletionTokens.Int(*u.CompletionTokens))
	}
	if u.TotalTokens != nil {
		span.SetAttributes(AttrTotalTokens.Int(*u.TotalTokens))
	}
}
