package budget

import "github.com/hupe1980/agentguard/model"

// ExtractUsage returns the token count reported by u. A total count wins;
// otherwise prompt and completion counts are summed only when both are
// present. Anything else, including a single partial field or a negative
// count, is unavailable.
func ExtractUsage(u *model.TokenUsage) (int, bool) {
	if u == nil {
		return 0, false
	}
	if u.TotalTokens != nil {
		if *u.TotalTokens < 0 {
			return 0, false
		}
		return *u.TotalTokens, true
	}
	if u.PromptTokens != nil && u.CompletionTokens != nil {
		if *u.PromptTokens < 0 || *u.CompletionTokens < 0 {
			return 0, false
		}
		return *u.PromptTokens + *u.CompletionTokens, true
	}
	return 0, false
}

// account applies the usage of a successful response. It returns a
// USAGE_UNAVAILABLE error in fail-closed mode when no usage could be extracted.
func (b *Budget) account(resp *model.Response) *Error {
	var usage *model.TokenUsage
	if resp != nil {
		usage = resp.Usage
	}

	tokens, ok := ExtractUsage(usage)
	if !ok {
		if b.limits.Mode() == FailClosed {
			return b.newError(ReasonUsageUnavailable, b.Snapshot())
		}
		if b.reliable {
			b.reliable = false
			b.logger.Warn("budget.usage.unavailable",
				"execution_id", b.limits.ExecutionID,
				"step", b.stepsUsed,
				"detail", "token limit no longer enforced",
			)
		}
		b.observer.UsageRecorded(b.Snapshot(), 0, false)
		return nil
	}

	b.tokensUsed += tokens
	b.observer.UsageRecorded(b.Snapshot(), tokens, true)

	if b.reliable && b.terminated == nil && b.tokensUsed > b.limits.MaxTokens {
		overshoot := b.tokensUsed - b.limits.MaxTokens
		b.terminated = &termination{
			reason:   ReasonTokenLimit,
			snapshot: buildSnapshot(b, b.clock(), overshoot),
		}
		b.logger.Warn("budget.terminated",
			"execution_id", b.limits.ExecutionID,
			"reason", string(ReasonTokenLimit),
			"tokens_used", b.tokensUsed,
			"overshoot", overshoot,
		)
		b.observer.TerminationRecorded(ReasonTokenLimit, b.terminated.snapshot)
	}
	return nil
}
