package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/flowctl/flowctl/internal/ports"
)

func newValidateCmd(root *rootFlags, app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "parse and validate a pipeline configuration without executing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(root, args)
			if err != nil {
				return err
			}
			return runValidate(cmd, root, app, path)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, root *rootFlags, app *AppContext, path string) error {
	out, closeOut, err := openOutput(root, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	result, err := app.Loader.Load(cmd.Context(), path, true)
	if err != nil {
		return err
	}
	if err := printParseDiagnostics(out, root, result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d validation error(s)", len(result.Errors))
	}
	return nil
}

func printParseDiagnostics(out io.Writer, root *rootFlags, result *ports.ParseResult) error {
	if result == nil {
		return nil
	}
	if root.json {
		return json.NewEncoder(out).Encode(result)
	}
	if result.Pipeline != nil {
		fmt.Fprintf(out, "pipeline %s is valid\n", result.Pipeline.Name)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
	return nil
}
