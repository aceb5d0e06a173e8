package ports

import (
	"context"

	"github.com/flowctl/flowctl/internal/domain/pipeline"
	domainplugin "github.com/flowctl/flowctl/internal/domain/plugin"
)

// ExecutionContext is the contract the Executor exposes to plugins: a read
// snapshot of the pipeline and task, the run id, a scoped logger, a State
// Store handle, the results of tasks that have already succeeded, and the
// pipeline's environment variables.
type ExecutionContext struct {
	Pipeline        *pipeline.Pipeline
	Task            *pipeline.Task
	ExecutionID     string
	Logger          Logger
	State           StateStore
	PreviousResults map[string]domainplugin.Result
	Variables       map[string]string
}

// Plugin is the execute capability a Task names. A plugin is any value
// satisfying Metadata and Execute; Validate is optional and is offered via
// the PluginValidator interface below.
type Plugin interface {
	Metadata() domainplugin.Metadata
	Execute(ctx context.Context, config map[string]interface{}, ectx ExecutionContext) (domainplugin.Result, error)
}

// PluginValidator is an optional capability a Plugin may additionally
// implement to pre-flight validate a task's config before execution.
type PluginValidator interface {
	Validate(config map[string]interface{}) (bool, []string)
}

// PluginRegistry resolves plugin names to execute capabilities.
type PluginRegistry interface {
	Register(p Plugin) error
	Resolve(name string) (Plugin, bool)
	Validate(name string, config map[string]interface{}) (bool, []string)
	List() []string
}
