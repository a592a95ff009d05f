// Package agent runs a tool-using model loop inside an execution budget.
//
// A Runner creates a fresh budget.Budget per Run. Every model turn goes
// through Budget.Call and every requested tool is counted with
// Budget.RecordToolCall before it executes. The loop ends at the first turn
// without function calls or at the first budget error:
//
//	r := agent.New(llm, agent.StaticLimits(budget.DefaultLimits()),
//		func(o *agent.Options) {
//			o.Tools = []tool.Tool{weather}
//		})
//	res, err := r.Run(ctx, "What's the weather in Berlin?")
//	if budget.IsBudgetError(err) {
//		// res.History holds everything up to the stop.
//	}
//
// Runners are safe for concurrent use; the Budget of a single Run is not
// shared between goroutines.
package agent
