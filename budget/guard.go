package budget

import (
	"context"
	"errors"

	"github.com/hupe1980/agentguard/model"
)

// CallFunc performs the actual provider request. model.Model.Generate satisfies it.
type CallFunc func(ctx context.Context, req model.Request) (*model.Response, error)

var errNilCallFunc = errors.New("budget: nil call function")

// Call runs fn as one guarded step.
//
// The step, time and recorded token checks run first; on failure fn is not
// invoked and no step is consumed. Otherwise the attempt is counted, the
// request's MaxOutputTokens is clamped to the configured cap and fn is invoked.
// An error from fn is returned exactly as received. A successful response is
// accounted; the call that pushes cumulative usage over MaxTokens still returns
// its response and the limit applies from the next operation on.
func (b *Budget) Call(ctx context.Context, req model.Request, fn CallFunc) (*model.Response, error) {
	if fn == nil {
		return nil, errNilCallFunc
	}

	if err := b.evaluate(b.stepQuota()); err != nil {
		return nil, b.exhausted(err)
	}

	b.stepsUsed++
	b.observer.StepConsumed(b.Snapshot())

	req.MaxOutputTokens = clampOutputTokens(req.MaxOutputTokens, b.limits.MaxOutputTokens)

	b.logger.Debug("budget.call.start",
		"execution_id", b.limits.ExecutionID,
		"step", b.stepsUsed,
		"max_output_tokens", *req.MaxOutputTokens,
	)

	resp, err := fn(ctx, req)
	if err != nil {
		b.logger.Debug("budget.call.error",
			"execution_id", b.limits.ExecutionID,
			"step", b.stepsUsed,
			"error", err.Error(),
		)
		return nil, err
	}

	if err := b.account(resp); err != nil {
		return nil, b.exhausted(err)
	}

	return resp, nil
}

// RecordToolCall declares that the loop is about to execute (or executed) one
// tool. It fails without counting when the time or tool limit is reached or a
// termination was recorded.
func (b *Budget) RecordToolCall() error {
	if err := b.evaluate(b.toolQuota()); err != nil {
		return b.exhausted(err)
	}

	b.toolCallsUsed++
	b.observer.ToolCallRecorded(b.Snapshot())
	return nil
}

// clampOutputTokens returns min(requested, limit); a nil request means no
// caller preference.
func clampOutputTokens(requested *int, limit int) *int {
	v := limit
	if requested != nil && *requested < limit {
		v = *requested
	}
	return &v
}
