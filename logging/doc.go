// Package logging provides a minimal logging interface and adapters for agentguard.
//
// The Logger interface defines the structured logging methods (Debug, Info, Warn, Error)
// that budgets, the agent runner and the config watcher use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping a caller supplied *slog.Logger
//   - GuardLogger, a configurable slog based logger with execution context helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	b, err := budget.New(limits, func(o *budget.Options) { o.Logger = logger })
//
// The interface is kept minimal so any structured logger can be plugged in.
package logging
