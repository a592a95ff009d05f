package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentguard/budget"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/model"
	"github.com/hupe1980/agentguard/tool"
)

// ErrNoResponse is returned when a model call succeeds without a response.
var ErrNoResponse = errors.New("model returned no response")

// Options configures a Runner.
type Options struct {
	Instruction Instruction
	Tools       []tool.Tool
	// MaxOutputTokens is requested on every turn; the budget clamps it.
	MaxOutputTokens *int
	Logger          logging.Logger
	// Observer is attached to every budget the runner creates.
	Observer budget.Observer
	Clock    func() time.Time
	// WrapCall decorates the model call, e.g. with telemetry.TraceCall.
	WrapCall func(budget.CallFunc) budget.CallFunc
}

// Runner drives the model/tool loop for one agent.
type Runner struct {
	llm             model.Model
	limits          LimitsProvider
	instruction     Instruction
	tools           map[string]tool.Tool
	definitions     []model.ToolDefinition
	maxOutputTokens *int
	logger          logging.Logger
	observer        budget.Observer
	clock           func() time.Time
	wrapCall        func(budget.CallFunc) budget.CallFunc
}

// Result is the outcome of a Run. It is returned alongside budget errors
// so callers can inspect how far the run got.
type Result struct {
	ExecutionID string
	// Content is the last assistant content.
	Content  model.Content
	History  []model.Content
	Snapshot budget.Snapshot
}

// New creates a Runner.
func New(llm model.Model, limits LimitsProvider, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Instruction: NewInstructionFromText("You are a helpful AI assistant."),
		Logger:      logging.NoOpLogger{},
		Observer:    budget.NopObserver{},
		Clock:       time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = budget.NopObserver{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	r := &Runner{
		llm:             llm,
		limits:          limits,
		instruction:     opts.Instruction,
		tools:           make(map[string]tool.Tool, len(opts.Tools)),
		maxOutputTokens: opts.MaxOutputTokens,
		logger:          opts.Logger,
		observer:        opts.Observer,
		clock:           opts.Clock,
		wrapCall:        opts.WrapCall,
	}

	for _, t := range opts.Tools {
		r.tools[t.Name()] = t
		r.definitions = append(r.definitions, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return r
}

// Run starts a new execution with a single user message.
func (r *Runner) Run(ctx context.Context, input string) (*Result, error) {
	return r.RunContents(ctx, []model.Content{model.NewTextContent(model.RoleUser, input)})
}

// RunContents starts a new execution from existing conversation contents.
//
// The returned Result is non-nil whenever the budget could be created, also
// when err is a budget error or a model failure.
func (r *Runner) RunContents(ctx context.Context, contents []model.Content) (*Result, error) {
	limits := r.limits.Limits()
	if limits.ExecutionID == "" {
		limits.ExecutionID = uuid.NewString()
	}

	b, err := budget.New(limits, func(o *budget.Options) {
		o.Clock = r.clock
		o.Logger = r.logger
		o.Observer = r.observer
	})
	if err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}

	res := &Result{
		ExecutionID: limits.ExecutionID,
		History:     append([]model.Content(nil), contents...),
	}

	call := budget.CallFunc(r.llm.Generate)
	if r.wrapCall != nil {
		call = r.wrapCall(call)
	}

	r.logger.Debug("agent.run.start",
		"execution_id", limits.ExecutionID,
		"model", r.llm.Info().Name,
		"tools", len(r.tools),
	)

	for {
		err := r.turn(ctx, b, call, res)
		res.Snapshot = b.Snapshot()
		if err != nil {
			r.logger.Debug("agent.run.stop",
				"execution_id", limits.ExecutionID,
				"error", err.Error(),
			)
			return res, err
		}
		if len(res.Content.FunctionCalls()) == 0 {
			r.logger.Debug("agent.run.complete",
				"execution_id", limits.ExecutionID,
				"steps_used", res.Snapshot.StepsUsed,
				"tokens_used", res.Snapshot.TokensUsed,
			)
			return res, nil
		}
	}
}

// turn performs one guarded model call and runs the requested tools.
func (r *Runner) turn(ctx context.Context, b *budget.Budget, call budget.CallFunc, res *Result) error {
	instructions, err := r.instruction.Resolve(b.Snapshot(), b.Remaining())
	if err != nil {
		return fmt.Errorf("resolve instructions: %w", err)
	}

	req := model.Request{
		Instructions:    instructions,
		Contents:        res.History,
		Tools:           r.definitions,
		MaxOutputTokens: r.maxOutputTokens,
	}

	resp, err := b.Call(ctx, req, call)
	if err != nil {
		return err
	}
	if resp == nil {
		return fmt.Errorf("%w: %s", ErrNoResponse, r.llm.Info().Name)
	}

	res.Content = resp.Content
	res.History = append(res.History, resp.Content)

	calls := resp.Content.FunctionCalls()
	if len(calls) == 0 {
		return nil
	}

	var parts []model.Part
	defer func() {
		if len(parts) > 0 {
			res.History = append(res.History, model.Content{Role: model.RoleTool, Parts: parts})
		}
	}()

	for _, fc := range calls {
		if err := b.RecordToolCall(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		parts = append(parts, model.FunctionResponsePart{FunctionResponse: r.executeTool(ctx, fc)})
	}

	return nil
}

// executeTool runs a single tool. Tool failures are reported back to the
// model instead of ending the run.
func (r *Runner) executeTool(ctx context.Context, fc model.FunctionCall) model.FunctionResponse {
	start := r.clock()
	out, err := tool.Execute(ctx, r.tools, fc.Name, fc.Arguments)

	fr := model.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: out}
	if err != nil {
		fr.Error = err.Error()
		r.logger.Warn("agent.tool.error",
			"tool", fc.Name,
			"call_id", fc.ID,
			"error", err.Error(),
		)
	} else {
		r.logger.Debug("agent.tool.call",
			"tool", fc.Name,
			"call_id", fc.ID,
			"duration_ms", r.clock().Sub(start).Milliseconds(),
		)
	}

	return fr
}
