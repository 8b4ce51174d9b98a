// Package errorhandler runs the root command and turns its failures into a
// single message with a remedy for the fatal preconditions.
package errorhandler

import (
	"bytes"
	"errors"
	"strings"

	configmanager "github.com/opendatahub-io/maasctl/pkg/io/config-manager/platform"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/svc/gateway"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
	"github.com/spf13/cobra"
)

type remedy struct {
	err  error
	hint string
}

//nolint:gochecknoglobals // fixed lookup table
var remedies = []remedy{
	{k8s.ErrNotLoggedIn, "log in with `oc login` or select a context with --context"},
	{k8s.ErrRequiredCRDMissing, "install the dependencies first with `maasctl install-dependencies`"},
	{olm.ErrCSVTooOld, "upgrade the operator or lower the REQ_*_CSV floor"},
	{configmanager.ErrInvalidConfig, "check maasctl.yaml, the environment and the flags"},
	{gateway.ErrDomainRequired, "pass --domain or set CLUSTER_DOMAIN"},
}

// Hint returns the remedy for err, or "" when there is none.
func Hint(err error) string {
	for _, candidate := range remedies {
		if errors.Is(err, candidate.err) {
			return candidate.hint
		}
	}

	return ""
}

// Executor runs cobra while capturing its error stream.
type Executor struct {
	normalizer DefaultNormalizer
}

// NewExecutor constructs an Executor.
func NewExecutor() *Executor {
	return &Executor{normalizer: DefaultNormalizer{}}
}

// Execute runs cmd. It returns nil on success, or a *CommandError carrying
// cobra's normalized output, the original error and its remedy.
func (e *Executor) Execute(cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	var errBuf bytes.Buffer

	originalErrWriter := cmd.ErrOrStderr()

	cmd.SetErr(&errBuf)
	defer cmd.SetErr(originalErrWriter)

	err := cmd.Execute()
	if err == nil {
		return nil
	}

	return &CommandError{
		message: e.normalizer.Normalize(errBuf.String()),
		cause:   err,
		hint:    Hint(err),
	}
}

// CommandError is a cobra failure with its captured output.
type CommandError struct {
	message string
	cause   error
	hint    string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return e.message
	case e.message != "":
		if strings.Contains(e.message, e.cause.Error()) {
			return e.message
		}

		return e.message + ": " + e.cause.Error()
	default:
		return e.cause.Error()
	}
}

// Hint returns the suggested remedy, if any.
func (e *CommandError) Hint() string {
	if e == nil {
		return ""
	}

	return e.hint
}

// Unwrap exposes the cause for errors.Is/errors.As.
func (e *CommandError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// DefaultNormalizer cleans up cobra's error output.
type DefaultNormalizer struct{}

// Normalize trims whitespace and drops cobra's "Error: " prefix, keeping any
// usage lines that follow.
func (DefaultNormalizer) Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	lines[0] = strings.TrimPrefix(strings.TrimSpace(lines[0]), "Error: ")

	return strings.Join(lines, "\n")
}
