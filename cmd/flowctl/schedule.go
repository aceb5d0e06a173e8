package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	domainpipeline "github.com/flowctl/flowctl/internal/domain/pipeline"
)

func newScheduleCmd(root *rootFlags, app *AppContext) *cobra.Command {
	var daemon bool

	cmd := &cobra.Command{
		Use:   "schedule [config]",
		Short: "register a pipeline's cron trigger(s) with the scheduler",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(root, args)
			if err != nil {
				return err
			}
			return runSchedule(cmd, root, app, path, daemon)
		},
	}
	cmd.Flags().BoolVar(&daemon, "daemon", false, "start the scheduler and block until interrupted")
	return cmd
}

func runSchedule(cmd *cobra.Command, root *rootFlags, app *AppContext, path string, daemon bool) error {
	ctx := cmd.Context()
	out, closeOut, err := openOutput(root, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	result, err := app.Loader.Load(ctx, path, true)
	if err != nil {
		return err
	}
	if result.Pipeline == nil {
		return fmt.Errorf("%d validation error(s), nothing to schedule", len(result.Errors))
	}

	var cronTriggers []domainpipeline.Trigger
	for _, trigger := range result.Pipeline.Triggers {
		if trigger.Type == domainpipeline.TriggerCron {
			cronTriggers = append(cronTriggers, trigger)
		}
	}
	if len(cronTriggers) == 0 {
		return fmt.Errorf("pipeline %s declares no cron trigger", result.Pipeline.Name)
	}

	for _, trigger := range cronTriggers {
		id, err := app.Scheduler.SchedulePipeline(ctx, *result.Pipeline, trigger)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "scheduled %s as entry %s (%s)\n", result.Pipeline.Name, id, trigger.Cron.Expression)
	}

	if !daemon {
		return nil
	}

	if err := app.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer app.Scheduler.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	fmt.Fprintln(out, "scheduler running, press Ctrl+C to stop")
	<-sigCh
	return nil
}
