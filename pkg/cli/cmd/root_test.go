package cmd_test

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/opendatahub-io/maasctl/pkg/cli/cmd"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRootTest = errors.New("boom")

func TestMain(m *testing.M) {
	exitCode := m.Run()

	_, err := snaps.Clean(m, snaps.CleanOpts{Sort: true})
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to clean snapshots: " + err.Error() + "\n")

		os.Exit(1)
	}

	os.Exit(exitCode)
}

func TestNewRootCmdVersionFormatting(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCmd("1.2.3", "abc123", "2025-08-17")

	assert.Equal(t, "1.2.3 (Built on 2025-08-17 from Git SHA abc123)", root.Version)
}

func TestExecuteShowsVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := cmd.NewRootCmd("1.2.3", "abc123", "2025-08-17")
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	_ = root.Execute()

	snaps.MatchSnapshot(t, out.String())
}

func TestExecuteWithNonexistentCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := cmd.NewRootCmd("test", "test", "test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"nonexistent"})

	require.Error(t, root.Execute())

	snaps.MatchSnapshot(t, out.String())
}

func TestExecuteShowsHelp(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := cmd.NewRootCmd("", "", "")
	root.SetOut(&out)
	root.SetArgs([]string{})

	require.NoError(t, root.Execute())

	help := out.String()
	for _, command := range []string{
		"deploy", "install-dependencies", "install-observability", "wire-metrics", "validate", "cleanup", "test",
	} {
		assert.Contains(t, help, "  "+command+" ")
	}

	for _, flag := range []string{"--kubeconfig", "--context", "--timeout", "--verbose", "--config", "--distribution"} {
		assert.Contains(t, help, flag)
	}
}

func TestSubcommandFlags(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCmd("", "", "")

	for path, flags := range map[string][]string{
		"deploy": {
			"with-observability", "skip-observability", "observability-stack", "namespace", "deploy-simulator",
			"validate-manifests",
		},
		"install-dependencies":  {"kuadrant", "ocp", "odh"},
		"install-observability": {"namespace", "stack"},
		"wire-metrics":          {"ops-ns", "kuadrant-ns", "app-ns"},
		"validate":              {"namespace"},
		"cleanup":               {"include-operators", "yes"},
		"test smoke":            {"token-ttl", "rate-limit-requests"},
		"test observability":    {"expected-metrics", "prometheus-url"},
	} {
		found, _, err := root.Find(splitPath(path))
		require.NoError(t, err, path)

		for _, flag := range flags {
			assert.NotNil(t, found.Flags().Lookup(flag), "%s --%s", path, flag)
		}
	}
}

func TestExecuteWrapperSuccess(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCmd("test", "test", "test")
	root.AddCommand(&cobra.Command{Use: "ok", RunE: func(*cobra.Command, []string) error { return nil }})
	root.SetArgs([]string{"ok"})

	require.NoError(t, cmd.Execute(root))
}

func TestExecuteWrapperError(t *testing.T) {
	t.Parallel()

	root := cmd.NewRootCmd("test", "test", "test")
	root.AddCommand(&cobra.Command{Use: "fail", RunE: func(*cobra.Command, []string) error { return errRootTest }})
	root.SetArgs([]string{"fail"})
	root.SetOut(&bytes.Buffer{})

	err := cmd.Execute(root)
	require.ErrorIs(t, err, errRootTest)
}

func splitPath(path string) []string {
	var parts []string

	start := 0

	for i := range len(path) {
		if path[i] == ' ' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}

	return append(parts, path[start:])
}
