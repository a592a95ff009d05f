package budget

// quota is the proactive count check that differs between the call path and
// the tool path.
type quota struct {
	reason Reason
	used   int
	max    int
}

func (b *Budget) stepQuota() quota {
	return quota{reason: ReasonStepLimit, used: b.stepsUsed, max: b.limits.MaxSteps}
}

func (b *Budget) toolQuota() quota {
	return quota{reason: ReasonToolLimit, used: b.toolCallsUsed, max: b.limits.MaxToolCalls}
}

// evaluate runs the ordered checks in front of a guarded operation and returns
// the first match: timeout, then the quota, then a recorded termination.
func (b *Budget) evaluate(q quota) *Error {
	now := b.clock()
	if now.Sub(b.startTime) >= b.limits.Timeout {
		return b.newError(ReasonTimeout, buildSnapshot(b, now, 0))
	}
	if q.used+1 > q.max {
		return b.newError(q.reason, buildSnapshot(b, now, 0))
	}
	if b.terminated != nil {
		return b.newError(b.terminated.reason, b.terminated.snapshot)
	}
	return nil
}
