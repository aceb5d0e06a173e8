package main

import (
	applicationpipeline "github.com/flowctl/flowctl/internal/application/pipeline"
	"github.com/flowctl/flowctl/internal/ports"
)

// AppContext bundles the long-lived services built at startup so every
// subcommand shares one wiring of loader, executor, scheduler, and
// notifier rather than reconstructing its own.
type AppContext struct {
	Logger     ports.Logger
	Loader     ports.ConfigLoader
	DAGBuilder ports.DAGBuilder
	Executor   ports.Executor
	Scheduler  ports.Scheduler
	Store      ports.StateStore
	RunUseCase *applicationpipeline.RunUseCase
}
