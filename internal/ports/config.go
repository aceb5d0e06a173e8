package ports

import (
	"context"

	"github.com/flowctl/flowctl/internal/domain/pipeline"
)

// ParseResult is the output of the Pipeline Parser/Validator: a normalized
// Pipeline plus the warnings and errors accumulated while validating it.
// Parse only returns a non-nil error for unreadable input or when strict
// mode is enabled and errors is non-empty; otherwise diagnostics are
// carried in the result and the caller decides how to proceed.
type ParseResult struct {
	Pipeline *pipeline.Pipeline
	Warnings []string
	Errors   []string
}

// Parser turns a configuration document (JSON or YAML-like) plus a source
// label into a ParseResult.
type Parser interface {
	Parse(ctx context.Context, source string, document []byte, strict bool) (*ParseResult, error)
}

// ConfigLoader reads a configuration document from disk and parses it.
type ConfigLoader interface {
	Load(ctx context.Context, path string, strict bool) (*ParseResult, error)
}
