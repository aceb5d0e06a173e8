package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	domainexec "github.com/flowctl/flowctl/internal/domain/execution"
)

func newRunCmd(root *rootFlags, app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [config]",
		Short: "execute a pipeline to completion",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(root, args)
			if err != nil {
				return err
			}
			return runRun(cmd, root, app, path)
		},
	}
	return cmd
}

func runRun(cmd *cobra.Command, root *rootFlags, app *AppContext, path string) error {
	out, closeOut, err := openOutput(root, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	ctx := cmd.Context()
	run, result, err := app.RunUseCase.Run(ctx, path, true)
	if err != nil {
		return err
	}
	if run == nil {
		return printParseDiagnostics(out, root, result)
	}

	if root.json {
		if err := json.NewEncoder(out).Encode(run); err != nil {
			return err
		}
	} else {
		printRunSummary(out, run)
	}

	if run.Status != domainexec.RunSuccess {
		return fmt.Errorf("pipeline %s finished with status %s", run.PipelineName, run.Status)
	}
	return nil
}

func printRunSummary(out io.Writer, run *domainexec.PipelineRun) {
	fmt.Fprintf(out, "pipeline %s: %s\n", run.PipelineName, run.Status)
	for _, te := range run.Tasks {
		line := fmt.Sprintf("  task %-20s %-10s attempts=%d", te.TaskID, te.Status, te.Attempts)
		if te.Result != nil && te.Result.Error != "" {
			line += fmt.Sprintf(" error=%q", te.Result.Error)
		}
		fmt.Fprintln(out, line)
	}
}
