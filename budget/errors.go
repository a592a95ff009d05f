package budget

import (
	"errors"
	"fmt"
)

// Reason identifies which limit stopped a guarded operation.
type Reason string

const (
	ReasonTimeout          Reason = "TIMEOUT"
	ReasonStepLimit        Reason = "STEP_LIMIT"
	ReasonToolLimit        Reason = "TOOL_LIMIT"
	ReasonTokenLimit       Reason = "TOKEN_LIMIT"
	ReasonUsageUnavailable Reason = "USAGE_UNAVAILABLE"
)

// Sentinel errors matched by *Error via errors.Is.
var (
	ErrTimeout          = errors.New("budget: timeout")
	ErrStepLimit        = errors.New("budget: step limit reached")
	ErrToolLimit        = errors.New("budget: tool call limit reached")
	ErrTokenLimit       = errors.New("budget: token limit exceeded")
	ErrUsageUnavailable = errors.New("budget: usage unavailable")
)

var sentinels = map[Reason]error{
	ReasonTimeout:          ErrTimeout,
	ReasonStepLimit:        ErrStepLimit,
	ReasonToolLimit:        ErrToolLimit,
	ReasonTokenLimit:       ErrTokenLimit,
	ReasonUsageUnavailable: ErrUsageUnavailable,
}

// Error is returned whenever a limit stops a guarded operation.
type Error struct {
	Reason      Reason
	ExecutionID string
	Snapshot    Snapshot
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := e.Snapshot
	msg := fmt.Sprintf("budget exhausted: %s", e.Reason)
	if e.ExecutionID != "" {
		msg += fmt.Sprintf(" (execution %s)", e.ExecutionID)
	}
	msg += fmt.Sprintf(": steps %d/%d, tool calls %d/%d, tokens %d/%d, elapsed %s",
		s.StepsUsed, s.Limits.MaxSteps,
		s.ToolCallsUsed, s.Limits.MaxToolCalls,
		s.TokensUsed, s.Limits.MaxTokens,
		s.Elapsed)
	if s.Overshoot > 0 {
		msg += fmt.Sprintf(", overshoot %d", s.Overshoot)
	}
	return msg
}

// Is matches the sentinel of e's reason.
func (e *Error) Is(target error) bool {
	return sentinels[e.Reason] == target
}

// IsBudgetError reports whether err (or any error it wraps) is a budget error
// rather than a provider, network or programming error.
func IsBudgetError(err error) bool {
	var be *Error
	return errors.As(err, &be)
}

// ReasonOf extracts the reason of a budget error.
func ReasonOf(err error) (Reason, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Reason, true
	}
	return "", false
}
