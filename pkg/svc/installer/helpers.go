package installer

import (
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
)

// DefaultInstallTimeout bounds each wait of an installation.
const DefaultInstallTimeout = 5 * time.Minute

// GetInstallTimeout returns the configured connection timeout, or
// DefaultInstallTimeout when the platform or its timeout is unset.
func GetInstallTimeout(platform *v1alpha1.Platform) time.Duration {
	if platform == nil || platform.Spec.Connection.Timeout <= 0 {
		return DefaultInstallTimeout
	}

	return platform.Spec.Connection.Timeout
}
