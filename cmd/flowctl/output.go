package main

import (
	"io"
	"os"
)

// openOutput returns the writer a subcommand should print its result to:
// the file named by --output, or stdout. The returned closer must be
// invoked by the caller once writing is complete.
func openOutput(root *rootFlags, stdout io.Writer) (io.Writer, func() error, error) {
	if root.output == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(root.output)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
