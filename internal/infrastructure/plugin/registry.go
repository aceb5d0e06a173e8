// Package plugin implements the Plugin Registry: an in-memory, name-keyed
// lookup of execute capabilities, plus an optional discovery loader for
// plugins built as Go shared objects.
package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flowctl/flowctl/internal/ports"
)

// Registry implements ports.PluginRegistry with an in-memory map keyed by
// the free-form plugin name a Task names in its "plugin" field. Unlike a
// dependency-aware registry, plugins here declare no relationships to one
// another — a Task's dependsOn graph is the only ordering concern, and
// that lives in the domain pipeline package.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]ports.Plugin
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]ports.Plugin)}
}

// Register stores a plugin implementation keyed by its metadata name.
func (r *Registry) Register(p ports.Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin is nil")
	}
	meta := p.Metadata()
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("plugin metadata invalid: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[meta.Name]; exists {
		return fmt.Errorf("plugin %q already registered", meta.Name)
	}
	r.plugins[meta.Name] = p
	return nil
}

// Resolve looks up the plugin registered under name.
func (r *Registry) Resolve(name string) (ports.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	return p, ok
}

// Validate pre-flight checks a task's config against the named plugin, if
// that plugin additionally implements ports.PluginValidator. A plugin that
// does not implement the optional interface is assumed always valid.
func (r *Registry) Validate(name string, config map[string]interface{}) (bool, []string) {
	p, ok := r.Resolve(name)
	if !ok {
		return false, []string{fmt.Sprintf("plugin %q is not registered", name)}
	}
	validator, ok := p.(ports.PluginValidator)
	if !ok {
		return true, nil
	}
	return validator.Validate(config)
}

// List returns the names of all registered plugins in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ ports.PluginRegistry = (*Registry)(nil)
