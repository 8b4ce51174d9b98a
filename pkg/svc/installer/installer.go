package installer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer/internal/component"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
)

// Installer defines methods for installing and uninstalling components.
type Installer interface {
	// Install installs the component.
	Install(ctx context.Context) error

	// Uninstall uninstalls the component.
	Uninstall(ctx context.Context) error
}

// Deps are the cluster clients and settings shared by every installer.
type Deps = component.Deps

// Named pairs an installer with the component name used in messages.
type Named struct {
	Name      string
	Installer Installer
}

// IsFatal reports whether an install error must stop the run: a required
// CRD never appeared or an operator is older than required. Everything else
// is reported as a warning.
func IsFatal(err error) bool {
	return errors.Is(err, k8s.ErrRequiredCRDMissing) || errors.Is(err, olm.ErrCSVTooOld)
}

// InstallAll installs the components in order. Fatal errors stop the run;
// other failures are warnings.
func InstallAll(ctx context.Context, writer io.Writer, installers []Named) error {
	for _, named := range installers {
		notify.Activityf(writer, "installing %s", named.Name)

		err := named.Installer.Install(ctx)
		if err == nil {
			continue
		}

		if IsFatal(err) {
			return fmt.Errorf("install %s: %w", named.Name, err)
		}

		readiness.BestEffort(writer, "install "+named.Name, err)
	}

	return nil
}

// UninstallAll uninstalls the components in reverse order, best effort.
func UninstallAll(ctx context.Context, writer io.Writer, installers []Named) {
	for i := len(installers) - 1; i >= 0; i-- {
		named := installers[i]

		notify.Activityf(writer, "uninstalling %s", named.Name)
		readiness.BestEffort(writer, "uninstall "+named.Name, named.Installer.Uninstall(ctx))
	}
}
