// Package testutil contains helpers used across tests: a manually advanced
// clock and scripted call functions with usage shapes. They are not intended
// for production usage.
package testutil
