package budget

import (
	"errors"
	"fmt"
	"time"
)

// AccountingMode selects how a response without usable usage data is handled.
type AccountingMode string

const (
	// FailOpen returns the result and stops enforcing MaxTokens for the rest of
	// the Budget's life.
	FailOpen AccountingMode = "fail-open"
	// FailClosed discards the result and returns a USAGE_UNAVAILABLE error.
	FailClosed AccountingMode = "fail-closed"
)

// Limits is the immutable configuration of a Budget. Zero values are valid and
// mean no allowance at all: MaxSteps 0 rejects the first call, Timeout 0 rejects
// every operation.
type Limits struct {
	// ExecutionID is an opaque label echoed into every budget error.
	ExecutionID         string         `json:"execution_id,omitempty" yaml:"execution_id,omitempty"`
	MaxSteps            int            `json:"max_steps" yaml:"max_steps"`
	MaxToolCalls        int            `json:"max_tool_calls" yaml:"max_tool_calls"`
	Timeout             time.Duration  `json:"timeout" yaml:"timeout"`
	MaxOutputTokens     int            `json:"max_output_tokens" yaml:"max_output_tokens"`
	MaxTokens           int            `json:"max_tokens" yaml:"max_tokens"`
	TokenAccountingMode AccountingMode `json:"token_accounting_mode" yaml:"token_accounting_mode"`
}

// DefaultLimits returns conservative defaults for a single agent run.
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:            25,
		MaxToolCalls:        50,
		Timeout:             5 * time.Minute,
		MaxOutputTokens:     4096,
		MaxTokens:           200_000,
		TokenAccountingMode: FailOpen,
	}
}

// Mode returns the effective accounting mode; empty means FailOpen.
func (l Limits) Mode() AccountingMode {
	if l.TokenAccountingMode == "" {
		return FailOpen
	}
	return l.TokenAccountingMode
}

// Validate reports every negative limit and an unknown accounting mode.
func (l Limits) Validate() error {
	var errs []error
	check := func(name string, v int64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	check("max_steps", int64(l.MaxSteps))
	check("max_tool_calls", int64(l.MaxToolCalls))
	check("timeout", int64(l.Timeout))
	check("max_output_tokens", int64(l.MaxOutputTokens))
	check("max_tokens", int64(l.MaxTokens))

	switch l.TokenAccountingMode {
	case "", FailOpen, FailClosed:
	default:
		errs = append(errs, fmt.Errorf("unknown token_accounting_mode %q", l.TokenAccountingMode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid limits: %w", errors.Join(errs...))
	}
	return nil
}
