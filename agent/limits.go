package agent

import "github.com/hupe1980/agentguard/budget"

// LimitsProvider yields the limits for the next run. config.Source
// implements it for hot-reloaded files.
type LimitsProvider interface {
	Limits() budget.Limits
}

// StaticLimits is a LimitsProvider that always returns the same limits.
type StaticLimits budget.Limits

// Limits implements LimitsProvider.
func (s StaticLimits) Limits() budget.Limits { return budget.Limits(s) }
