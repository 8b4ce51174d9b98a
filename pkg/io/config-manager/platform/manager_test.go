package configmanager_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	configmanagerinterface "github.com/opendatahub-io/maasctl/pkg/io/config-manager"
	configmanager "github.com/opendatahub-io/maasctl/pkg/io/config-manager/platform"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `apiVersion: maas.opendatahub.io/v1alpha1
kind: Platform
spec:
  distribution: OpenShift
  namespaces:
    ops: file-ops
    app: file-app
  connection:
    timeout: 3m
  observability:
    stack: perses
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "maasctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("ops-ns", "", "")
	cmd.Flags().String("app-ns", "", "")
	cmd.Flags().String("namespace", "", "")
	cmd.Flags().Duration("timeout", 0, "")
	cmd.Flags().String("observability-stack", "", "")

	return cmd
}

//nolint:paralleltest // uses t.Setenv
func TestLoadDefaults(t *testing.T) {
	var out bytes.Buffer

	manager := configmanager.NewConfigManager(&out)

	cfg, err := manager.Load(configmanagerinterface.LoadOptions{Silent: true, IgnoreConfigFile: true})
	require.NoError(t, err)

	assert.Equal(t, v1alpha1.DistributionOpenShift, cfg.Spec.Distribution)
	assert.Equal(t, "maas-observability", cfg.Spec.Namespaces.Ops)
	assert.Equal(t, "llm", cfg.Spec.Namespaces.App)
	assert.Equal(t, 10*time.Minute, cfg.Spec.Connection.Timeout)
	assert.Empty(t, out.String())
}

//nolint:paralleltest // uses t.Setenv
func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, testConfigYAML)

	t.Setenv("APP_NS", "env-app")
	t.Setenv("OPS_NS", "env-ops")

	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("ops-ns", "flag-ops"))

	var out bytes.Buffer

	cmd.SetOut(&out)

	manager := configmanager.NewCommandConfigManager(cmd)

	cfg, err := manager.Load(configmanagerinterface.LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "flag-ops", cfg.Spec.Namespaces.Ops, "flag beats env and file")
	assert.Equal(t, "env-app", cfg.Spec.Namespaces.App, "env beats file")
	assert.Equal(t, 3*time.Minute, cfg.Spec.Connection.Timeout, "file beats default")
	assert.Equal(t, v1alpha1.ObservabilityStackPerses, cfg.Spec.Observability.Stack)
	assert.Equal(t, "kuadrant-system", cfg.Spec.Namespaces.Kuadrant, "default survives")
	assert.Equal(t, path, manager.ConfigFileUsed())
	assert.Contains(t, out.String(), "config loaded")
}

//nolint:paralleltest // uses t.Setenv
func TestLoadPrefixedEnvWinsOverLegacyName(t *testing.T) {
	t.Setenv("MAASCTL_KUADRANT_NS", "prefixed")
	t.Setenv("KUADRANT_NS", "legacy")

	manager := configmanager.NewConfigManager(&bytes.Buffer{})

	cfg, err := manager.Load(configmanagerinterface.LoadOptions{Silent: true, IgnoreConfigFile: true})
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Spec.Namespaces.Kuadrant)
}

//nolint:paralleltest // uses t.Setenv
func TestLoadMapFlag(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("namespace", "custom-ops"))

	manager := configmanager.NewCommandConfigManager(cmd)
	manager.MapFlag("namespace", "spec.namespaces.ops")

	cfg, err := manager.Load(configmanagerinterface.LoadOptions{Silent: true, IgnoreConfigFile: true})
	require.NoError(t, err)

	assert.Equal(t, "custom-ops", cfg.Spec.Namespaces.Ops)
	assert.Equal(t, "maas-api", cfg.Spec.Namespaces.MaaSAPI)
}

//nolint:paralleltest // uses t.Setenv
func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEAM", "alpha")

	path := writeConfig(t, "spec:\n  namespaces:\n    app: llm-${TEAM}\n")

	manager := configmanager.NewConfigManager(&bytes.Buffer{})
	manager.SetConfigFile(path)

	cfg, err := manager.Load(configmanagerinterface.LoadOptions{Silent: true})
	require.NoError(t, err)

	assert.Equal(t, "llm-alpha", cfg.Spec.Namespaces.App)
}

//nolint:paralleltest // uses t.Setenv
func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "invalid distribution", env: map[string]string{"DISTRIBUTION": "Nomad"}, want: "Nomad"},
		{name: "invalid namespace", env: map[string]string{"APP_NS": "Not_A_Namespace"}, want: "Not_A_Namespace"},
		{name: "invalid csv floor", env: map[string]string{"REQ_KUADRANT_CSV": "latest"}, want: "latest"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			var out bytes.Buffer

			manager := configmanager.NewConfigManager(&out)

			_, err := manager.Load(configmanagerinterface.LoadOptions{IgnoreConfigFile: true})
			require.Error(t, err)
			require.ErrorIs(t, err, configmanager.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.want)
			assert.Contains(t, out.String(), "✗")
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

//nolint:paralleltest // uses t.Setenv
func TestLoadCachesConfig(t *testing.T) {
	manager := configmanager.NewConfigManager(&bytes.Buffer{})

	first, err := manager.Load(configmanagerinterface.LoadOptions{Silent: true, IgnoreConfigFile: true})
	require.NoError(t, err)

	t.Setenv("APP_NS", "changed")

	second, err := manager.Load(configmanagerinterface.LoadOptions{Silent: true, IgnoreConfigFile: true})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "llm", second.Spec.Namespaces.App)
}
