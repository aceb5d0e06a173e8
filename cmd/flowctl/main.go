package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	applicationpipeline "github.com/flowctl/flowctl/internal/application/pipeline"
	configinfra "github.com/flowctl/flowctl/internal/infrastructure/config"
	engineinfra "github.com/flowctl/flowctl/internal/infrastructure/engine"
	eventsinfra "github.com/flowctl/flowctl/internal/infrastructure/events"
	logginginfra "github.com/flowctl/flowctl/internal/infrastructure/logging"
	notifierinfra "github.com/flowctl/flowctl/internal/infrastructure/notifier"
	plugininfra "github.com/flowctl/flowctl/internal/infrastructure/plugin"
	schedulerinfra "github.com/flowctl/flowctl/internal/infrastructure/scheduler"
	"github.com/flowctl/flowctl/internal/infrastructure/store/file"
	"github.com/flowctl/flowctl/internal/infrastructure/store/sqlstore"
	"github.com/flowctl/flowctl/internal/ports"
)

func main() {
	appLogger, err := logginginfra.New(logginginfra.Options{
		Level:         "info",
		HumanReadable: true,
		Component:     "cli",
		Layer:         "infrastructure",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application logger: %v\n", err)
		os.Exit(1)
	}

	correlationID := logginginfra.GenerateCorrelationID()
	ctx := ports.WithCorrelationID(context.Background(), correlationID)

	app, err := buildApp(appLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize flowctl: %v\n", err)
		os.Exit(1)
	}

	rootCmd := newRootCmd(app)
	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildStateStore selects the State Store backend from FLOWCTL_STATE_BACKEND
// ("file", the default, or "sql"), mirroring FLOWCTL_PLUGIN_DIR's env-var
// driven wiring pattern in buildApp below.
func buildStateStore() (ports.StateStore, error) {
	switch backend := os.Getenv("FLOWCTL_STATE_BACKEND"); backend {
	case "", "file":
		statePath := os.Getenv("FLOWCTL_STATE_PATH")
		if statePath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				home = "."
			}
			statePath = filepath.Join(home, ".flowctl", "state.json")
		}
		if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
			return nil, fmt.Errorf("prepare state directory: %w", err)
		}
		return file.NewStore(statePath), nil
	case "sql":
		dsn := os.Getenv("FLOWCTL_STATE_DSN")
		if dsn == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				home = "."
			}
			dsn = filepath.Join(home, ".flowctl", "state.db")
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("prepare state directory: %w", err)
		}
		store, err := sqlstore.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sql state store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown FLOWCTL_STATE_BACKEND %q (want %q or %q)", backend, "file", "sql")
	}
}

func buildApp(appLogger ports.Logger) (*AppContext, error) {
	store, err := buildStateStore()
	if err != nil {
		return nil, err
	}

	parser := configinfra.NewParser()
	loader := configinfra.NewYAMLLoader(parser)

	registry := plugininfra.NewRegistry()
	if err := registry.Register(plugininfra.NewHTTPPlugin()); err != nil {
		return nil, fmt.Errorf("register http plugin: %w", err)
	}
	if err := registry.Register(plugininfra.NewExecPlugin()); err != nil {
		return nil, fmt.Errorf("register exec plugin: %w", err)
	}
	if pluginDir := os.Getenv("FLOWCTL_PLUGIN_DIR"); pluginDir != "" {
		for _, err := range plugininfra.DiscoverDir(registry, pluginDir) {
			appLogger.Warn(context.Background(), "plugin discovery error", "error", err.Error())
		}
	}

	dagBuilder := engineinfra.NewDAGBuilder()
	executor := engineinfra.NewExecutor(registry, store, engineinfra.WithExecutorLogger(appLogger.With("component", "executor")))

	scheduler := schedulerinfra.NewScheduler(store, executor, appLogger.With("component", "scheduler"))

	notifier := notifierinfra.New(appLogger.With("component", "notifier"))
	notifier.Register(notifierinfra.NewLogSink(zerolog.New(os.Stdout).With().Timestamp().Logger()))
	notifier.Register(notifierinfra.NewWebhookSink(nil))
	notifier.Register(notifierinfra.NewSlackSink())

	eventPublisher := eventsinfra.NewLoggingPublisher(appLogger.With("component", "events"))

	sinks := []ports.SinkConfig{
		{Type: "log", On: []ports.NotifyEvent{ports.EventPipelineStarted, ports.EventPipelineSucceeded, ports.EventPipelineFailed, ports.EventTaskFailed}},
	}
	runUseCase := applicationpipeline.NewRunUseCase(loader, executor, notifier, eventPublisher, appLogger.With("component", "run_usecase"), sinks)

	return &AppContext{
		Logger:     appLogger,
		Loader:     loader,
		DAGBuilder: dagBuilder,
		Executor:   executor,
		Scheduler:  scheduler,
		Store:      store,
		RunUseCase: runUseCase,
	}, nil
}
