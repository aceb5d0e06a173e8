package ports

import "context"

// NotifyEvent names the pipeline/task lifecycle moments a sink may
// subscribe to via its config's "on" list.
type NotifyEvent string

const (
	EventPipelineStarted   NotifyEvent = "pipeline.started"
	EventPipelineSucceeded NotifyEvent = "pipeline.succeeded"
	EventPipelineFailed    NotifyEvent = "pipeline.failed"
	EventTaskFailed        NotifyEvent = "task.failed"
)

// NotifyContext is the payload handed to a sink for one event.
type NotifyContext struct {
	Event        NotifyEvent
	PipelineName string
	ExecutionID  string
	TaskID       string
	Message      string
	Metadata     map[string]interface{}
}

// SinkConfig is the per-send configuration naming which sink to dispatch
// to and which events it cares about.
type SinkConfig struct {
	Type   string
	On     []NotifyEvent
	Params map[string]interface{}
}

// NotifyResult is the outcome of dispatching one event to one sink.
type NotifyResult struct {
	Success    bool
	Service    string
	Error      string
	DurationMs int64
}

// NotifierSink is a single named delivery mechanism (log line, webhook
// POST, chat message, ...). Sinks are side-effect only: their failure
// never affects pipeline status.
type NotifierSink interface {
	Name() string
	Send(ctx context.Context, config SinkConfig, notifyCtx NotifyContext) NotifyResult
}

// Notifier dispatches lifecycle events to whichever sink a SinkConfig
// names, filtering by the config's "on" list.
type Notifier interface {
	Register(sink NotifierSink)
	Send(ctx context.Context, config SinkConfig, notifyCtx NotifyContext) []NotifyResult
}
