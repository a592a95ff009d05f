package budget

import "time"

// Snapshot is an immutable point-in-time view of a Budget.
type Snapshot struct {
	StepsUsed               int           `json:"steps_used"`
	ToolCallsUsed           int           `json:"tool_calls_used"`
	TokensUsed              int           `json:"tokens_used"`
	Limits                  Limits        `json:"limits"`
	Elapsed                 time.Duration `json:"-"`
	ElapsedMs               int64         `json:"elapsed_ms"`
	TokenAccountingReliable bool          `json:"token_accounting_reliable"`
	// Overshoot is tokens used beyond MaxTokens when TOKEN_LIMIT was recorded;
	// zero for every other snapshot.
	Overshoot int `json:"overshoot,omitempty"`
}

func buildSnapshot(b *Budget, now time.Time, overshoot int) Snapshot {
	elapsed := now.Sub(b.startTime)
	return Snapshot{
		StepsUsed:               b.stepsUsed,
		ToolCallsUsed:           b.toolCallsUsed,
		TokensUsed:              b.tokensUsed,
		Limits:                  b.limits,
		Elapsed:                 elapsed,
		ElapsedMs:               elapsed.Milliseconds(),
		TokenAccountingReliable: b.reliable,
		Overshoot:               overshoot,
	}
}
