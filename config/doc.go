// Package config loads budget limits from YAML or TOML files, applies
// AGENTGUARD_* environment overrides and hot-reloads them.
//
// Files only need the fields they change; everything else keeps the value
// from budget.DefaultLimits:
//
//	max_steps: 10
//	timeout: 2m
//	token_accounting_mode: fail-closed
//
// A Source holds the current limits for new budgets. Watch keeps a Source in
// sync with a file. Budgets created before a reload keep their limits.
package config
