package plugin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"time"

	domainplugin "github.com/flowctl/flowctl/internal/domain/plugin"
	"github.com/flowctl/flowctl/internal/ports"
)

// HTTPPlugin performs a single HTTP request and reports the response body
// as its result output and the status code in its result metadata. It is
// the "HTTP GET" built-in named alongside the Registry's own design.
type HTTPPlugin struct {
	Client *http.Client
}

// NewHTTPPlugin constructs an HTTPPlugin with a bounded default client.
func NewHTTPPlugin() *HTTPPlugin {
	return &HTTPPlugin{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (p *HTTPPlugin) Metadata() domainplugin.Metadata {
	return domainplugin.Metadata{Name: "http", Version: "1.0.0", Description: "issues a single HTTP request"}
}

func (p *HTTPPlugin) Validate(config map[string]interface{}) (bool, []string) {
	if _, ok := config["url"].(string); !ok {
		return false, []string{"config.url is required and must be a string"}
	}
	return true, nil
}

func (p *HTTPPlugin) Execute(ctx context.Context, config map[string]interface{}, ectx ports.ExecutionContext) (domainplugin.Result, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return domainplugin.Result{Success: false, Error: "config.url is required"}, nil
	}
	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return domainplugin.Result{Success: false, Error: err.Error()}, nil
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return domainplugin.Result{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainplugin.Result{Success: false, Error: err.Error()}, nil
	}

	return domainplugin.Result{
		Success: resp.StatusCode < 400,
		Output:  string(body),
		Metadata: map[string]interface{}{
			"status_code": resp.StatusCode,
		},
	}, nil
}

var _ ports.Plugin = (*HTTPPlugin)(nil)
var _ ports.PluginValidator = (*HTTPPlugin)(nil)

// ExecPlugin runs a shell command and reports its combined output.
type ExecPlugin struct{}

// NewExecPlugin constructs an ExecPlugin.
func NewExecPlugin() *ExecPlugin {
	return &ExecPlugin{}
}

func (p *ExecPlugin) Metadata() domainplugin.Metadata {
	return domainplugin.Metadata{Name: "exec", Version: "1.0.0", Description: "runs a shell command"}
}

func (p *ExecPlugin) Validate(config map[string]interface{}) (bool, []string) {
	if cmd, ok := config["command"].(string); !ok || cmd == "" {
		return false, []string{"config.command is required and must be a non-empty string"}
	}
	return true, nil
}

func (p *ExecPlugin) Execute(ctx context.Context, config map[string]interface{}, ectx ports.ExecutionContext) (domainplugin.Result, error) {
	command, _ := config["command"].(string)
	if command == "" {
		return domainplugin.Result{Success: false, Error: "config.command is required"}, nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	for k, v := range ectx.Variables {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return domainplugin.Result{
			Success:  false,
			Output:   string(output),
			Error:    err.Error(),
			Metadata: map[string]interface{}{"command": command},
		}, nil
	}

	return domainplugin.Result{
		Success:  true,
		Output:   string(output),
		Metadata: map[string]interface{}{"command": command},
	}, nil
}

var _ ports.Plugin = (*ExecPlugin)(nil)
var _ ports.PluginValidator = (*ExecPlugin)(nil)
