// Package model defines the provider‑agnostic abstractions for interacting with
// language models behind a budget guard.
//
// Core goals:
//   - One request/response shape that every provider adapter maps into
//   - A per-call output cap (Request.MaxOutputTokens) the guard can clamp
//   - Token usage with explicit presence so missing accounting data is detectable
//   - Lightweight scripted mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (the budget guard, the agent runner) remain decoupled
// from vendor SDKs.
package model
