package plugin

import (
	"context"
	"testing"

	domainplugin "github.com/flowctl/flowctl/internal/domain/plugin"
	"github.com/flowctl/flowctl/internal/ports"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	meta domainplugin.Metadata
}

func (s *stubPlugin) Metadata() domainplugin.Metadata { return s.meta }

func (s *stubPlugin) Execute(ctx context.Context, config map[string]interface{}, ectx ports.ExecutionContext) (domainplugin.Result, error) {
	return domainplugin.Result{Success: true}, nil
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := NewRegistry()
	stub := &stubPlugin{meta: domainplugin.Metadata{Name: "stub", Version: "1.0.0"}}

	require.NoError(t, reg.Register(stub))

	got, ok := reg.Resolve("stub")
	require.True(t, ok)
	require.Equal(t, "stub", got.Metadata().Name)
}

func TestRegistryResolveMissing(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Resolve("missing")
	require.False(t, ok)
}

func TestRegistryDuplicateRegisterFails(t *testing.T) {
	reg := NewRegistry()
	stub := &stubPlugin{meta: domainplugin.Metadata{Name: "stub", Version: "1.0.0"}}

	require.NoError(t, reg.Register(stub))
	require.Error(t, reg.Register(stub))
}

func TestRegistryRegisterInvalidMetadataFails(t *testing.T) {
	reg := NewRegistry()
	stub := &stubPlugin{meta: domainplugin.Metadata{Name: "stub"}}
	require.Error(t, reg.Register(stub))
}

func TestRegistryListIsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(&stubPlugin{meta: domainplugin.Metadata{Name: name, Version: "1.0.0"}}))
	}
	require.Equal(t, []string{"alpha", "mid", "zeta"}, reg.List())
}

func TestRegistryValidateDelegatesToPluginValidator(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewHTTPPlugin()))

	valid, errs := reg.Validate("http", map[string]interface{}{})
	require.False(t, valid)
	require.NotEmpty(t, errs)

	valid, errs = reg.Validate("http", map[string]interface{}{"url": "https://example.com"})
	require.True(t, valid)
	require.Empty(t, errs)
}

func TestRegistryValidateUnregisteredPlugin(t *testing.T) {
	reg := NewRegistry()
	valid, errs := reg.Validate("missing", nil)
	require.False(t, valid)
	require.NotEmpty(t, errs)
}
