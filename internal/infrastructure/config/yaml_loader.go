package config

import (
	"context"
	"os"

	"github.com/flowctl/flowctl/internal/ports"
	apperrors "github.com/flowctl/flowctl/pkg/errors"
)

// YAMLLoader implements ports.ConfigLoader by reading a pipeline document
// from disk and delegating to a Parser.
type YAMLLoader struct {
	parser ports.Parser
}

// NewYAMLLoader constructs a YAMLLoader around the given Parser.
func NewYAMLLoader(parser ports.Parser) *YAMLLoader {
	return &YAMLLoader{parser: parser}
}

// Load reads path and parses it. A missing or unreadable file is reported
// as a ParseError regardless of strict.
func (l *YAMLLoader) Load(ctx context.Context, path string, strict bool) (*ports.ParseResult, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewParseError(path, 0, err)
	}
	return l.parser.Parse(ctx, path, document, strict)
}

var _ ports.ConfigLoader = (*YAMLLoader)(nil)
