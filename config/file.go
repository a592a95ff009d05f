package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentguard/budget"
)

// Format is a supported file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown config format")

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// File is the on-disk form of budget.Limits. Nil fields are left at their
// defaults.
type File struct {
	ExecutionID         string `json:"execution_id,omitempty" yaml:"execution_id,omitempty" toml:"execution_id,omitempty" env:"EXECUTION_ID" jsonschema:"description=Identifier attached to budget errors"`
	MaxSteps            *int   `json:"max_steps,omitempty" yaml:"max_steps,omitempty" toml:"max_steps,omitempty" env:"MAX_STEPS" jsonschema:"minimum=0,description=Maximum number of guarded model calls"`
	MaxToolCalls        *int   `json:"max_tool_calls,omitempty" yaml:"max_tool_calls,omitempty" toml:"max_tool_calls,omitempty" env:"MAX_TOOL_CALLS" jsonschema:"minimum=0,description=Maximum number of recorded tool calls"`
	Timeout             string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty" env:"TIMEOUT" jsonschema:"description=Wall-clock limit as a Go duration (e.g. 90s or 5m)"`
	MaxOutputTokens     *int   `json:"max_output_tokens,omitempty" yaml:"max_output_tokens,omitempty" toml:"max_output_tokens,omitempty" env:"MAX_OUTPUT_TOKENS" jsonschema:"minimum=0,description=Cap on output tokens requested per call"`
	MaxTokens           *int   `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty" env:"MAX_TOKENS" jsonschema:"minimum=0,description=Cumulative token limit"`
	TokenAccountingMode string `json:"token_accounting_mode,omitempty" yaml:"token_accounting_mode,omitempty" toml:"token_accounting_mode,omitempty" env:"TOKEN_ACCOUNTING_MODE" jsonschema:"enum=fail-open,enum=fail-closed,description=Behaviour when a provider reports no usage"`
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*File, error) {
	var f File

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse toml: unknown field %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return &f, nil
}

// Limits merges f onto budget.DefaultLimits and validates the result.
func (f *File) Limits() (budget.Limits, error) {
	l := budget.DefaultLimits()

	if f.ExecutionID != "" {
		l.ExecutionID = f.ExecutionID
	}
	if f.MaxSteps != nil {
		l.MaxSteps = *f.MaxSteps
	}
	if f.MaxToolCalls != nil {
		l.MaxToolCalls = *f.MaxToolCalls
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return budget.Limits{}, fmt.Errorf("invalid timeout %q: %w", f.Timeout, err)
		}
		l.Timeout = d
	}
	if f.MaxOutputTokens != nil {
		l.MaxOutputTokens = *f.MaxOutputTokens
	}
	if f.MaxTokens != nil {
		l.MaxTokens = *f.MaxTokens
	}
	if f.TokenAccountingMode != "" {
		l.TokenAccountingMode = budget.AccountingMode(f.TokenAccountingMode)
	}

	if err := l.Validate(); err != nil {
		return budget.Limits{}, err
	}
	return l, nil
}

// FromLimits converts l to its file form; used to print effective limits.
func FromLimits(l budget.Limits) *File {
	return &File{
		ExecutionID:         l.ExecutionID,
		MaxSteps:            &l.MaxSteps,
		MaxToolCalls:        &l.MaxToolCalls,
		Timeout:             l.Timeout.String(),
		MaxOutputTokens:     &l.MaxOutputTokens,
		MaxTokens:           &l.MaxTokens,
		TokenAccountingMode: string(l.Mode()),
	}
}

// Load reads path, applies environment overrides and returns the limits.
func Load(path string) (budget.Limits, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return budget.Limits{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return budget.Limits{}, fmt.Errorf("read config: %w", err)
	}

	f, err := Parse(data, format)
	if err != nil {
		return budget.Limits{}, err
	}

	if err := ApplyEnv(f); err != nil {
		return budget.Limits{}, err
	}

	return f.Limits()
}
