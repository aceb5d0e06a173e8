package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVisualizeCmd(root *rootFlags, app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize [config]",
		Short: "render a pipeline's dependency graph as a Mermaid flowchart",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(root, args)
			if err != nil {
				return err
			}
			return runVisualize(cmd, root, app, path)
		},
	}
	return cmd
}

func runVisualize(cmd *cobra.Command, root *rootFlags, app *AppContext, path string) error {
	out, closeOut, err := openOutput(root, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	result, err := app.Loader.Load(cmd.Context(), path, true)
	if err != nil {
		return err
	}
	if result.Pipeline == nil {
		return fmt.Errorf("%d validation error(s), nothing to visualize", len(result.Errors))
	}

	graph, err := app.DAGBuilder.Build(result.Pipeline)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "flowchart TD")
	for _, task := range result.Pipeline.Tasks {
		if len(task.DependsOn) == 0 {
			fmt.Fprintf(out, "    %s[%s]\n", task.ID, task.ID)
			continue
		}
		for _, dep := range task.DependsOn {
			fmt.Fprintf(out, "    %s --> %s\n", dep, task.ID)
		}
	}
	for i, level := range graph.Levels {
		fmt.Fprintf(out, "    %%%% level %d: %v\n", i, level)
	}
	return nil
}
