// Package config implements the Pipeline Parser/Validator: turning an
// untrusted configuration document into a validated pipeline.Pipeline plus
// ordered warnings and errors, and the ConfigLoader adapter that reads such
// a document from disk.
package config

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/flowctl/flowctl/internal/domain/pipeline"
	"github.com/flowctl/flowctl/internal/ports"
	apperrors "github.com/flowctl/flowctl/pkg/errors"
)

const defaultRetryDelayMs = 1000

// Parser implements ports.Parser.
type Parser struct{}

// NewParser constructs a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse applies the validation rules in order, collecting warnings for
// recoverable issues and errors for ones that drop data. It returns a
// non-nil error only when the document is unreadable, or when strict is
// true and errors is non-empty.
func (p *Parser) Parse(ctx context.Context, source string, document []byte, strict bool) (*ports.ParseResult, error) {
	var root map[string]interface{}
	if err := yaml.Unmarshal(document, &root); err != nil {
		return nil, apperrors.NewParseError(source, 0, err)
	}

	acc := &accumulator{}

	pipelineRaw, ok := root["pipeline"]
	if !ok {
		acc.addError("pipeline: missing required key")
		return acc.finish(nil, strict, source)
	}
	pipelineMap, ok := pipelineRaw.(map[string]interface{})
	if !ok {
		acc.addError("pipeline: must be a mapping")
		return acc.finish(nil, strict, source)
	}

	pl := &domain.Pipeline{}

	pl.Name, ok = stringField(pipelineMap, "name")
	if !ok || pl.Name == "" {
		acc.addError("pipeline.name: must be a non-empty string")
	}
	pl.Version, ok = stringField(pipelineMap, "version")
	if !ok || pl.Version == "" {
		acc.addError("pipeline.version: must be a non-empty string")
	}

	if desc, present := pipelineMap["description"]; present {
		if s, ok := desc.(string); ok {
			pl.Description = s
		} else {
			acc.addWarning("pipeline.description: expected string, ignoring")
		}
	}

	if env, present := pipelineMap["env"]; present {
		if m, ok := env.(map[string]interface{}); ok {
			pl.Env = stringifyMap(m)
		} else {
			acc.addWarning("pipeline.env: expected mapping, ignoring")
		}
	}

	if c, present := pipelineMap["concurrency"]; present {
		if n, ok := numberField(c); ok && n > 0 {
			pl.Concurrency = int(n)
		} else {
			acc.addWarning("pipeline.concurrency: expected a positive number, using default")
		}
	}

	if tmo, present := pipelineMap["timeout"]; present {
		if n, ok := numberField(tmo); ok && n >= 0 {
			pl.TimeoutMs = int64(n)
		} else {
			acc.addWarning("pipeline.timeout: expected a non-negative number, ignoring")
		}
	}

	tasksRaw, present := pipelineMap["tasks"]
	if !present {
		acc.addError("pipeline.tasks: must be an array")
	} else if tasksList, ok := tasksRaw.([]interface{}); ok {
		pl.Tasks = parseTasks(tasksList, acc)
	} else {
		acc.addError("pipeline.tasks: must be an array")
	}

	if triggersRaw, present := pipelineMap["triggers"]; present {
		if triggersList, ok := triggersRaw.([]interface{}); ok {
			pl.Triggers = parseTriggers(triggersList, acc)
		} else {
			acc.addWarning("pipeline.triggers: expected an array, ignoring")
		}
	}

	validateDAG(pl, acc)

	// Backstop: run the domain layer's own invariant check over the
	// constructed pipeline so a defect in the hand-rolled checks above
	// can't silently slip an invalid pipeline through.
	if err := pl.Validate(); err != nil {
		acc.addError(err.Error())
	}

	pl.ApplyDefaults()

	return acc.finish(pl, strict, source)
}

type accumulator struct {
	warnings []string
	errors   []string
}

func (a *accumulator) addWarning(msg string) { a.warnings = append(a.warnings, msg) }
func (a *accumulator) addError(msg string)   { a.errors = append(a.errors, msg) }

func (a *accumulator) finish(pl *domain.Pipeline, strict bool, source string) (*ports.ParseResult, error) {
	result := &ports.ParseResult{Pipeline: pl, Warnings: a.warnings, Errors: a.errors}
	if strict && len(a.errors) > 0 {
		result.Errors = append(append([]string(nil), a.errors...), a.warnings...)
		return nil, apperrors.NewValidationError(source, strings.Join(result.Errors, "; "), nil)
	}
	return result, nil
}

func parseTasks(raw []interface{}, acc *accumulator) []domain.Task {
	tasks := make([]domain.Task, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for i, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			acc.addError(fmt.Sprintf("tasks[%d]: must be a mapping", i))
			continue
		}

		id, _ := stringField(m, "id")
		plugin, _ := stringField(m, "plugin")
		if id == "" {
			acc.addError(fmt.Sprintf("tasks[%d].id: must be a non-empty string", i))
			continue
		}
		if plugin == "" {
			acc.addError(fmt.Sprintf("tasks[%d:%s].plugin: must be a non-empty string", i, id))
			continue
		}
		if seen[id] {
			acc.addError(fmt.Sprintf("tasks[%d]: duplicate task id %q, dropped", i, id))
			continue
		}
		seen[id] = true

		task := domain.Task{ID: id, Plugin: plugin, Enabled: true}

		if name, ok := stringField(m, "name"); ok && name != "" {
			task.Name = name
		} else {
			acc.addWarning(fmt.Sprintf("tasks[%s].name: missing, falling back to id", id))
			task.Name = id
		}

		if cfg, present := m["config"]; present {
			if cm, ok := cfg.(map[string]interface{}); ok {
				task.Config = cm
			} else {
				acc.addWarning(fmt.Sprintf("tasks[%s].config: expected mapping, using empty", id))
				task.Config = map[string]interface{}{}
			}
		} else {
			task.Config = map[string]interface{}{}
		}

		if deps, present := m["dependsOn"]; present {
			if list, ok := deps.([]interface{}); ok {
				task.DependsOn = toStringSlice(list)
			} else {
				acc.addError(fmt.Sprintf("tasks[%s].dependsOn: must be an array, treated as empty", id))
			}
		}

		if retryRaw, present := m["retry"]; present {
			if retryMap, ok := retryRaw.(map[string]interface{}); ok {
				task.Retry = parseRetry(retryMap, id, acc)
			} else {
				acc.addWarning(fmt.Sprintf("tasks[%s].retry: expected mapping, ignoring", id))
			}
		}

		if tmo, present := m["timeout"]; present {
			if n, ok := numberField(tmo); ok && n > 0 {
				task.TimeoutMillis = int64(n)
			} else {
				acc.addWarning(fmt.Sprintf("tasks[%s].timeout: must be a positive number, ignoring", id))
			}
		}

		task.Enabled = true
		if enabledRaw, present := m["enabled"]; present {
			if b, ok := enabledRaw.(bool); ok && !b {
				task.Enabled = false
			}
		}

		tasks = append(tasks, task)
	}

	return tasks
}

func parseRetry(m map[string]interface{}, taskID string, acc *accumulator) *domain.RetryPolicy {
	attempts := 0
	if n, ok := numberField(m["attempts"]); ok {
		attempts = int(math.Max(0, math.Floor(n)))
	}
	if attempts == 0 {
		return nil
	}

	delay := int64(defaultRetryDelayMs)
	if n, ok := numberField(m["delay"]); ok {
		candidate := int64(n)
		if err := validatorInstance().Struct(retryDelayShape{Delay: candidate}); err != nil {
			acc.addWarning(fmt.Sprintf("tasks[%s].retry.delay: must be non-negative, using default %dms", taskID, defaultRetryDelayMs))
		} else {
			delay = candidate
		}
	} else if _, present := m["delay"]; present {
		acc.addWarning(fmt.Sprintf("tasks[%s].retry.delay: expected a number, using default %dms", taskID, defaultRetryDelayMs))
	}

	return &domain.RetryPolicy{Attempts: attempts, DelayMs: delay}
}

func parseTriggers(raw []interface{}, acc *accumulator) []domain.Trigger {
	triggers := make([]domain.Trigger, 0, len(raw))

	for i, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			acc.addWarning(fmt.Sprintf("triggers[%d]: must be a mapping, dropped", i))
			continue
		}
		typ, _ := stringField(m, "type")
		cfgRaw, _ := m["config"].(map[string]interface{})
		if cfgRaw == nil {
			cfgRaw = map[string]interface{}{}
		}

		switch typ {
		case "cron":
			expr, _ := stringField(cfgRaw, "expression")
			if expr == "" {
				acc.addWarning(fmt.Sprintf("triggers[%d]: cron trigger missing expression, dropped", i))
				continue
			}
			shape := cronTriggerShape{Expression: expr}
			if tz, ok := stringField(cfgRaw, "timezone"); ok {
				shape.Timezone = tz
			}
			if err := validatorInstance().Struct(shape); err != nil {
				acc.addWarning(fmt.Sprintf("triggers[%d]: cron expression %q does not tokenize into five fields", i, expr))
			}
			triggers = append(triggers, domain.Trigger{
				Type: domain.TriggerCron,
				Cron: &domain.CronConfig{Expression: expr, Timezone: shape.Timezone},
			})
		case "webhook":
			path, _ := stringField(cfgRaw, "path")
			if path == "" {
				acc.addWarning(fmt.Sprintf("triggers[%d]: webhook trigger missing path, dropped", i))
				continue
			}
			method, _ := stringField(cfgRaw, "method")
			if method == "" {
				method = "POST"
			}
			shape := webhookTriggerShape{Path: path, Method: method}
			if err := validatorInstance().Struct(shape); err != nil {
				acc.addWarning(fmt.Sprintf("triggers[%d]: webhook method %q not in {GET,POST,PUT}", i, method))
			}
			secret, _ := stringField(cfgRaw, "secret")
			triggers = append(triggers, domain.Trigger{
				Type:    domain.TriggerWebhook,
				Webhook: &domain.WebhookConfig{Path: path, Method: method, Secret: secret},
			})
		case "manual":
			triggers = append(triggers, domain.Trigger{Type: domain.TriggerManual})
		default:
			acc.addWarning(fmt.Sprintf("triggers[%d]: unknown trigger type %q, dropped", i, typ))
		}
	}

	return triggers
}

func validateDAG(pl *domain.Pipeline, acc *accumulator) {
	index := make(map[string]bool, len(pl.Tasks))
	for _, t := range pl.Tasks {
		index[t.ID] = true
	}
	for _, t := range pl.Tasks {
		for _, dep := range t.DependsOn {
			if !index[dep] {
				acc.addError(fmt.Sprintf("task %q depends on unknown task %q", t.ID, dep))
			}
		}
	}

	for _, cycle := range domain.DetectCycles(pl.Tasks) {
		acc.addError(fmt.Sprintf("circular dependency detected: %s", cycle))
	}

	if roots := domain.FindRoots(pl.Tasks); len(roots) > 1 {
		sort.Strings(roots)
		acc.addError(fmt.Sprintf("pipeline has more than one root task: %s", strings.Join(roots, ", ")))
	}
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, present := m[key]
	if !present {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func numberField(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toStringSlice(list []interface{}) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringifyMap(m map[string]interface{}) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

var _ ports.Parser = (*Parser)(nil)
