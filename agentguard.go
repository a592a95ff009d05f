// Package agentguard provides a high-level façade that wires the budget
// guard together with its limits source, metrics and tracing. Most
// applications interact with this package by:
//  1. Creating an AgentGuard via New() with a model and optional overrides
//  2. Running agent executions with Run, or
//  3. Creating bare budgets with NewBudget for hand-written loops
//
// Every budget created through the same AgentGuard reports to the same
// Prometheus collector and logger. Budgets themselves are single-goroutine
// objects; the AgentGuard is safe for concurrent use.
package agentguard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentguard/agent"
	"github.com/hupe1980/agentguard/budget"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/metrics"
	"github.com/hupe1980/agentguard/model"
	"github.com/hupe1980/agentguard/telemetry"
	"github.com/hupe1980/agentguard/tool"
)

// Options configures the AgentGuard instance.
type Options struct {
	// Limits supplies the limits for every new budget. Defaults to
	// budget.DefaultLimits; use a config.Source for hot reload.
	Limits agent.LimitsProvider

	Instruction agent.Instruction
	Tools       []tool.Tool

	// Registerer enables Prometheus metrics when set.
	Registerer       prometheus.Registerer
	MetricsNamespace string

	// Tracer enables a span around every model call when set.
	Tracer oteltrace.Tracer

	// Observers are notified in addition to the metrics collector.
	Observers []budget.Observer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	Clock  func() time.Time
}

// AgentGuard aggregates a runner and the budget plumbing behind it.
type AgentGuard struct {
	opts     Options
	llm      model.Model
	observer budget.Observer
	runner   *agent.Runner
}

// New creates a new AgentGuard for llm.
func New(llm model.Model, optFns ...func(o *Options)) *AgentGuard {
	opts := Options{
		Limits:           agent.StaticLimits(budget.DefaultLimits()),
		Instruction:      agent.NewInstructionFromText("You are a helpful AI assistant."),
		MetricsNamespace: "agentguard",
		Logger:           logging.NoOpLogger{},
		Clock:            time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	observers := append(budget.Observers(nil), opts.Observers...)
	if opts.Registerer != nil {
		observers = append(observers, metrics.NewCollector(opts.MetricsNamespace, opts.Registerer))
	}

	g := &AgentGuard{opts: opts, llm: llm, observer: observers}

	g.runner = agent.New(llm, opts.Limits, func(o *agent.Options) {
		o.Instruction = opts.Instruction
		o.Tools = opts.Tools
		o.Logger = opts.Logger
		o.Observer = observers
		o.Clock = opts.Clock
		if opts.Tracer != nil {
			o.WrapCall = telemetry.Wrap(opts.Tracer)
		}
	})

	return g
}

// Run executes the agent loop for a single user message.
func (g *AgentGuard) Run(ctx context.Context, input string) (*agent.Result, error) {
	return g.runner.Run(ctx, input)
}

// RunContents executes the agent loop from existing conversation contents.
func (g *AgentGuard) RunContents(ctx context.Context, contents []model.Content) (*agent.Result, error) {
	return g.runner.RunContents(ctx, contents)
}

// NewBudget creates a budget from the current limits with the guard's
// logger and observers attached. A missing execution id is filled with a
// random UUID.
func (g *AgentGuard) NewBudget() (*budget.Budget, error) {
	limits := g.opts.Limits.Limits()
	if limits.ExecutionID == "" {
		limits.ExecutionID = uuid.NewString()
	}

	b, err := budget.New(limits, func(o *budget.Options) {
		o.Clock = g.opts.Clock
		o.Logger = g.opts.Logger
		o.Observer = g.observer
	})
	if err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

// CallFunc returns the model's call function, traced when a tracer is set.
// Pass it to Budget.Call.
func (g *AgentGuard) CallFunc() budget.CallFunc {
	fn := budget.CallFunc(g.llm.Generate)
	if g.opts.Tracer != nil {
		fn = telemetry.TraceCall(g.opts.Tracer, fn)
	}
	return fn
}
