// Package budget bounds the cost of an agentic loop that drives a language model.
//
// A Budget enforces five limits on behalf of exactly one agent loop:
//
//   - MaxSteps: number of guarded model call attempts (failed calls count)
//   - MaxToolCalls: number of tool executions declared via RecordToolCall
//   - Timeout: wall-clock time since the Budget was created
//   - MaxOutputTokens: per-call output cap, clamped into every request
//   - MaxTokens: cumulative tokens reported by the provider
//
// Step, tool and time limits are checked before an operation runs. The cumulative
// token limit can only be observed after a response reports its usage: the call
// that crosses it still returns its result, and every later operation fails with
// the TOKEN_LIMIT error captured at that moment. Precedence is fixed:
// TIMEOUT > STEP_LIMIT / TOOL_LIMIT > recorded TOKEN_LIMIT.
//
// When a response carries no usable usage data the TokenAccountingMode decides:
// FailOpen returns the result and permanently stops enforcing MaxTokens, FailClosed
// discards the result and returns USAGE_UNAVAILABLE.
//
// Errors returned by the call function are passed through unchanged. Budget
// errors are *Error values; use IsBudgetError or errors.Is with the Err* sentinels.
//
// # Concurrency
//
// A Budget is not safe for concurrent use. The owning loop must wait for each
// Call or RecordToolCall to return before issuing the next one; concurrent use
// leaves the order of counter updates, and which caller first observes a
// termination, undefined. The guard never cancels or times out an in-flight call
// function: Timeout is evaluated only when an operation starts.
//
// Usage:
//
//	b, err := budget.New(budget.Limits{
//		MaxSteps:        10,
//		MaxToolCalls:    20,
//		Timeout:         2 * time.Minute,
//		MaxOutputTokens: 1024,
//		MaxTokens:       50_000,
//	})
//	...
//	resp, err := b.Call(ctx, req, llm.Generate)
//	if budget.IsBudgetError(err) {
//		// stop the loop
//	}
package budget
