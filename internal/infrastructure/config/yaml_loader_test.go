package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestYAMLLoaderLoadSuccess(t *testing.T) {
	loader := NewYAMLLoader(NewParser())
	ctx := context.Background()

	configPath := filepath.Join(t.TempDir(), "pipeline.yaml")
	yamlContent := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: fetch
      plugin: http
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	result, err := loader.Load(ctx, configPath, false)
	require.NoError(t, err)
	require.Equal(t, "demo", result.Pipeline.Name)
}

func TestYAMLLoaderLoadMissingFileReturnsParseError(t *testing.T) {
	loader := NewYAMLLoader(NewParser())
	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.Error(t, err)
}

func TestYAMLLoaderLoadStrictPropagatesValidationError(t *testing.T) {
	loader := NewYAMLLoader(NewParser())
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	yamlContent := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
      dependsOn: [missing]
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	_, err := loader.Load(context.Background(), configPath, true)
	require.Error(t, err)
}
