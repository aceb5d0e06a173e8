package notifier

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowctl/flowctl/internal/ports"
)

// LogSink writes each delivered event as a structured zerolog line. It is
// the default sink a pipeline gets for free, grounded on the same
// structured-logging idiom used throughout the rest of the orchestrator.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink builds a LogSink writing through logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, config ports.SinkConfig, notifyCtx ports.NotifyContext) ports.NotifyResult {
	start := time.Now()
	event := s.logger.Info()
	event.Str("pipeline", notifyCtx.PipelineName).
		Str("execution_id", notifyCtx.ExecutionID).
		Str("event", string(notifyCtx.Event))
	if notifyCtx.TaskID != "" {
		event.Str("task_id", notifyCtx.TaskID)
	}
	for k, v := range notifyCtx.Metadata {
		event.Interface(k, v)
	}
	event.Msg(notifyCtx.Message)

	return ports.NotifyResult{
		Success:    true,
		Service:    s.Name(),
		DurationMs: time.Since(start).Milliseconds(),
	}
}

var _ ports.NotifierSink = (*LogSink)(nil)
