package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "flowctl orchestrates DAG pipelines of plugin-executed tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug-level logging")
	cmd.PersistentFlags().BoolVar(&flags.silent, "silent", false, "suppress all but error-level logging")
	cmd.PersistentFlags().BoolVar(&flags.json, "json", false, "emit machine-readable JSON output")
	cmd.PersistentFlags().StringVar(&flags.output, "output", "", "write output to this file instead of stdout")
	cmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "path to the pipeline configuration file")

	cmd.AddCommand(newRunCmd(flags, app))
	cmd.AddCommand(newValidateCmd(flags, app))
	cmd.AddCommand(newVisualizeCmd(flags, app))
	cmd.AddCommand(newScheduleCmd(flags, app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
