package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// rootFlags are the common flags shared by every subcommand.
type rootFlags struct {
	verbose bool
	silent  bool
	json    bool
	output  string
	config  string
}

// resolveConfigPath prefers a positional argument over --config, matching
// the CLI's "subcommand <config>" surface while still honoring the shared
// --config flag when no positional argument is given.
func resolveConfigPath(root *rootFlags, args []string) (string, error) {
	path := root.config
	if len(args) > 0 {
		path = args[0]
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("a configuration file is required (positional argument or --config)")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("config file does not exist: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config path %s is a directory", abs)
	}
	return abs, nil
}
