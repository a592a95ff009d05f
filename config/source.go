package config

import (
	"sync/atomic"

	"github.com/hupe1980/agentguard/budget"
)

// Source holds the limits handed to new budgets. It is safe for concurrent
// use and implements agent.LimitsProvider.
type Source struct {
	current atomic.Pointer[budget.Limits]
}

// NewSource returns a Source starting at l. l is not validated.
func NewSource(l budget.Limits) *Source {
	s := &Source{}
	s.current.Store(&l)
	return s
}

// Limits returns the current limits.
func (s *Source) Limits() budget.Limits {
	return *s.current.Load()
}

// Store replaces the current limits if they are valid.
func (s *Source) Store(l budget.Limits) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.current.Store(&l)
	return nil
}
