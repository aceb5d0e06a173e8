// Package plugin holds the data the Plugin Registry deals in: plugin
// identity and the result a plugin reports for one invocation. The
// execute capability itself is an interface defined in internal/ports, so
// that neither this package nor internal/domain/pipeline need know about
// infrastructure concerns.
package plugin

import "fmt"

// Metadata identifies a registered plugin. The Registry rejects
// registrations missing Name, Version, or an execute capability.
type Metadata struct {
	Name        string
	Version     string
	Description string
}

// Validate ensures metadata values satisfy the Registry's invariants.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	return nil
}
