package plugin

import (
	"fmt"
	"os"
	gopath "path/filepath"
	goplugin "plugin"

	"github.com/flowctl/flowctl/internal/ports"
)

// SymbolName is the exported symbol every discoverable .so plugin must
// provide: a value satisfying ports.Plugin.
const SymbolName = "FlowctlPlugin"

// pluginSuffix is the filename suffix DiscoverDir scans for, chosen so a
// plugin directory can hold other shared objects without them being
// mistaken for flowctl plugins.
const pluginSuffix = ".flowctl-plugin.so"

// DiscoverDir scans dir (non-recursively) for *.flowctl-plugin.so files,
// opens each with the Go plugin loader, and registers the ports.Plugin
// each exports under SymbolName. A plugin that fails to open or whose
// symbol does not satisfy ports.Plugin is skipped with an error rather
// than aborting the scan.
func DiscoverDir(registry *Registry, dir string) []error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []error{fmt.Errorf("read plugin dir %s: %w", dir, err)}
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !isPluginFile(entry.Name()) {
			continue
		}
		path := gopath.Join(dir, entry.Name())
		if err := loadOne(registry, path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errs
}

func isPluginFile(name string) bool {
	return len(name) > len(pluginSuffix) && name[len(name)-len(pluginSuffix):] == pluginSuffix
}

func loadOne(registry *Registry, path string) error {
	lib, err := goplugin.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	sym, err := lib.Lookup(SymbolName)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", SymbolName, err)
	}
	p, ok := sym.(ports.Plugin)
	if !ok {
		ptr, ok := sym.(*ports.Plugin)
		if !ok {
			return fmt.Errorf("symbol %s does not implement Plugin", SymbolName)
		}
		p = *ptr
	}
	return registry.Register(p)
}
