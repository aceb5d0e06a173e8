package logging

import (
	"context"

	"github.com/flowctl/flowctl/internal/ports"
)

// NoOpLogger discards every log entry. Used as a safe default where no
// logger was supplied.
type NoOpLogger struct{}

// NewNoOpLogger returns a logger that discards every entry.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(context.Context, string, ...interface{}) {}
func (l *NoOpLogger) Info(context.Context, string, ...interface{})  {}
func (l *NoOpLogger) Warn(context.Context, string, ...interface{})  {}
func (l *NoOpLogger) Error(context.Context, string, ...interface{}) {}
func (l *NoOpLogger) With(...interface{}) ports.Logger               { return l }

var _ ports.Logger = (*NoOpLogger)(nil)
