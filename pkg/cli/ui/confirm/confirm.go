// Package confirm asks the user before destructive commands run.
package confirm

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/opendatahub-io/maasctl/pkg/notify"
	"golang.org/x/term"
)

// ErrCleanupCancelled is returned when the user declines the prompt.
var ErrCleanupCancelled = errors.New("cleanup cancelled")

// CleanupPreview lists what a cleanup removes.
type CleanupPreview struct {
	Cluster    string
	Namespaces []string
	// Operators is set when operator subscriptions or releases are removed too.
	Operators bool
}

var (
	//nolint:gochecknoglobals // dependency injection for tests
	stdinReaderMu sync.RWMutex
	//nolint:gochecknoglobals // dependency injection for tests
	stdinReaderOverride io.Reader

	//nolint:gochecknoglobals // dependency injection for tests
	ttyCheckerMu sync.RWMutex
	//nolint:gochecknoglobals // dependency injection for tests
	ttyCheckerOverride func() bool
)

// SetStdinReaderForTests replaces stdin and returns a restore function.
func SetStdinReaderForTests(reader io.Reader) func() {
	stdinReaderMu.Lock()

	previous := stdinReaderOverride
	stdinReaderOverride = reader

	stdinReaderMu.Unlock()

	return func() {
		stdinReaderMu.Lock()

		stdinReaderOverride = previous

		stdinReaderMu.Unlock()
	}
}

// SetTTYCheckerForTests replaces the terminal check and returns a restore function.
func SetTTYCheckerForTests(checker func() bool) func() {
	ttyCheckerMu.Lock()

	previous := ttyCheckerOverride
	ttyCheckerOverride = checker

	ttyCheckerMu.Unlock()

	return func() {
		ttyCheckerMu.Lock()

		ttyCheckerOverride = previous

		ttyCheckerMu.Unlock()
	}
}

func getStdinReader() io.Reader {
	stdinReaderMu.RLock()
	defer stdinReaderMu.RUnlock()

	if stdinReaderOverride != nil {
		return stdinReaderOverride
	}

	return os.Stdin
}

// IsTTY reports whether stdin is an interactive terminal.
func IsTTY() bool {
	ttyCheckerMu.RLock()

	override := ttyCheckerOverride

	ttyCheckerMu.RUnlock()

	if override != nil {
		return override()
	}

	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ShouldSkipPrompt returns true when --yes is set or nobody can answer.
func ShouldSkipPrompt(force bool) bool {
	return force || !IsTTY()
}

// ShowCleanupPreview prints what cleanup removes, followed by the prompt.
func ShowCleanupPreview(writer io.Writer, preview *CleanupPreview) {
	notify.Warningf(writer, "The following will be removed from %s:", preview.Cluster)

	var text strings.Builder

	text.WriteString("  gateway, policies, maas-api and observability objects")

	if preview.Operators {
		text.WriteString("\n  operator subscriptions, CSVs and Helm releases")
	}

	if len(preview.Namespaces) > 0 {
		text.WriteString("\n  Namespaces:")

		for _, namespace := range preview.Namespaces {
			text.WriteString("\n    - " + namespace)
		}
	}

	notify.Infof(writer, "%s", text.String())
	notify.Warningf(writer, `Type "yes" to confirm cleanup: `)
}

// PromptForConfirmation reads one line and returns true only for "yes",
// in any case.
func PromptForConfirmation() bool {
	reader := bufio.NewReader(getStdinReader())

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(input), "yes")
}
