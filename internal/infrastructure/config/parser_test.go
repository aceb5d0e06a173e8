package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const validDocument = `
pipeline:
  name: demo
  version: "1.0"
  concurrency: 3
  tasks:
    - id: fetch
      plugin: http
    - id: transform
      plugin: exec
      dependsOn: [fetch]
      retry:
        attempts: 2
        delay: 500
  triggers:
    - type: cron
      config:
        expression: "*/5 * * * *"
    - type: manual
`

func TestParseValidDocumentProducesPipeline(t *testing.T) {
	p := NewParser()
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(validDocument), false)
	require.NoError(t, err)
	require.NotNil(t, result.Pipeline)
	require.Empty(t, result.Errors)
	require.Equal(t, "demo", result.Pipeline.Name)
	require.Equal(t, 3, result.Pipeline.Concurrency)
	require.Len(t, result.Pipeline.Tasks, 2)
	require.NotNil(t, result.Pipeline.Tasks[1].Retry)
	require.Equal(t, 2, result.Pipeline.Tasks[1].Retry.Attempts)
	require.Len(t, result.Pipeline.Triggers, 2)
}

func TestParseMissingPipelineKeyIsError(t *testing.T) {
	p := NewParser()
	result, err := p.Parse(context.Background(), "demo.yaml", []byte("foo: bar"), false)
	require.NoError(t, err)
	require.Nil(t, result.Pipeline)
	require.NotEmpty(t, result.Errors)
}

func TestParseUnreadableDocumentReturnsParseError(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(context.Background(), "demo.yaml", []byte("not: [valid"), false)
	require.Error(t, err)
}

func TestParseStrictModeWithErrorsThrows(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
      dependsOn: [missing]
`
	_, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), true)
	require.Error(t, err)
}

func TestParseNonStrictModeWithErrorsReturnsResult(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
      dependsOn: [missing]
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)
}

func TestParseDuplicateTaskIDIsDropped(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
    - id: a
      plugin: exec
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.Len(t, result.Pipeline.Tasks, 1)
	require.NotEmpty(t, result.Errors)
}

func TestParseMissingTaskNameFallsBackToID(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: fetch
      plugin: http
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.Equal(t, "fetch", result.Pipeline.Tasks[0].Name)
	require.NotEmpty(t, result.Warnings)
}

func TestParseZeroRetryAttemptsDropsRetry(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: fetch
      plugin: http
      retry:
        attempts: 0
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.Nil(t, result.Pipeline.Tasks[0].Retry)
}

func TestParseNegativeRetryDelayFallsBackToDefault(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: fetch
      plugin: http
      retry:
        attempts: 1
        delay: -50
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.NotNil(t, result.Pipeline.Tasks[0].Retry)
	require.Equal(t, int64(defaultRetryDelayMs), result.Pipeline.Tasks[0].Retry.DelayMs)
	require.NotEmpty(t, result.Warnings)
}

func TestParseDisabledTaskRequiresExplicitFalse(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: fetch
      plugin: http
      enabled: false
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.False(t, result.Pipeline.Tasks[0].Enabled)
}

func TestParseCycleIsReportedAsError(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
      dependsOn: [b]
    - id: b
      plugin: exec
      dependsOn: [a]
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)
}

func TestParseMultipleRootsIsReportedAsError(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
    - id: b
      plugin: exec
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)
}

func TestParseUnknownTriggerTypeIsDroppedWithWarning(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
  triggers:
    - type: carrier-pigeon
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.Empty(t, result.Pipeline.Triggers)
	require.NotEmpty(t, result.Warnings)
}

func TestParseInvalidCronExpressionWarns(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
  triggers:
    - type: cron
      config:
        expression: "not a cron"
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
}

func TestParseApplyDefaultsSetsConcurrency(t *testing.T) {
	p := NewParser()
	doc := `
pipeline:
  name: demo
  version: "1.0"
  tasks:
    - id: a
      plugin: exec
`
	result, err := p.Parse(context.Background(), "demo.yaml", []byte(doc), false)
	require.NoError(t, err)
	require.Equal(t, 5, result.Pipeline.Concurrency)
}
