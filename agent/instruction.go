package agent

import (
	"github.com/hupe1980/agentguard/budget"
	"github.com/hupe1980/agentguard/internal/util"
)

// Provider supplies instruction text computed from the current budget.
type Provider interface {
	Instruction(s budget.Snapshot, r budget.Remaining) (string, error)
}

// Func adapts an ordinary function to Provider.
type Func func(budget.Snapshot, budget.Remaining) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(s budget.Snapshot, r budget.Remaining) (string, error) { return f(s, r) }

// Instruction is either a text/template string or a dynamic provider.
//
// Templates see execution_id, steps_used, tool_calls_used, tokens_used,
// remaining_steps, remaining_tool_calls, remaining_tokens and remaining_time.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a template string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(budget.Snapshot, budget.Remaining) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text for the given budget state.
func (i Instruction) Resolve(s budget.Snapshot, r budget.Remaining) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(s, r)
	}
	return util.RenderTemplate(i.text, map[string]any{
		"execution_id":         s.Limits.ExecutionID,
		"steps_used":           s.StepsUsed,
		"tool_calls_used":      s.ToolCallsUsed,
		"tokens_used":          s.TokensUsed,
		"remaining_steps":      r.Steps,
		"remaining_tool_calls": r.ToolCalls,
		"remaining_tokens":     r.Tokens,
		"remaining_time":       r.Time.String(),
	})
}
