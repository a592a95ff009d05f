package agentguard

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hupe1980/agentguard/agent"
	"github.com/hupe1980/agentguard/budget"
	"github.com/hupe1980/agentguard/config"
	"github.com/hupe1980/agentguard/internal/testutil"
	"github.com/hupe1980/agentguard/model"
)

func TestAgentGuard_RunWiresMetricsAndTracing(t *testing.T) {
	reg := prometheus.NewRegistry()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	clock := testutil.NewFakeClock()

	llm := model.NewMockModel("mock").AddResponse(testutil.WithTotal(42))
	g := New(llm, func(o *Options) {
		o.Registerer = reg
		o.MetricsNamespace = "guard_test"
		o.Tracer = tp.Tracer("test")
		o.Clock = clock.Now
	})

	res, err := g.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 42, res.Snapshot.TokensUsed)
	assert.NotEmpty(t, res.ExecutionID)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["guard_test_budget_steps_total"])
	assert.Equal(t, 42.0, values["guard_test_budget_tokens_total"])

	require.Len(t, sr.Ended(), 1)
}

func TestAgentGuard_NewBudgetUsesSource(t *testing.T) {
	limits := budget.DefaultLimits()
	limits.MaxSteps = 1
	src := config.NewSource(limits)

	g := New(model.NewMockModel("mock"), func(o *Options) { o.Limits = src })

	b, err := g.NewBudget()
	require.NoError(t, err)
	assert.Equal(t, 1, b.Limits().MaxSteps)
	assert.NotEmpty(t, b.Limits().ExecutionID)

	ctx := context.Background()
	req := model.Request{Contents: []model.Content{model.NewTextContent(model.RoleUser, "hi")}}
	_, err = b.Call(ctx, req, g.CallFunc())
	require.NoError(t, err)
	_, err = b.Call(ctx, req, g.CallFunc())
	assert.ErrorIs(t, err, budget.ErrStepLimit)

	// Reloaded limits only affect budgets created afterwards.
	limits.MaxSteps = 3
	require.NoError(t, src.Store(limits))
	assert.Equal(t, 1, b.Limits().MaxSteps)

	next, err := g.NewBudget()
	require.NoError(t, err)
	assert.Equal(t, 3, next.Limits().MaxSteps)
}

func TestAgentGuard_InvalidLimits(t *testing.T) {
	g := New(model.NewMockModel("mock"), func(o *Options) {
		o.Limits = agent.StaticLimits(budget.Limits{MaxSteps: -1, Timeout: time.Second})
	})

	_, err := g.NewBudget()
	assert.ErrorContains(t, err, "max_steps")
}
