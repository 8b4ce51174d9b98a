package readiness

import (
	"io"

	"github.com/opendatahub-io/maasctl/pkg/notify"
)

// BestEffort reports a non-fatal failure as a warning and lets the caller
// carry on. It returns true when err is nil.
func BestEffort(writer io.Writer, what string, err error) bool {
	if err == nil {
		return true
	}

	notify.Warningf(writer, "%s: %v", what, err)

	return false
}
