package v1alpha1

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Validate reports every invalid field of the platform configuration.
func (p *Platform) Validate() error {
	spec := &p.Spec

	var errs []error

	if !spec.Distribution.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidDistribution, spec.Distribution))
	}

	if !spec.Operators.Set.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidOperatorSet, spec.Operators.Set))
	}

	if !spec.Observability.Stack.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidObservabilityStack, spec.Observability.Stack))
	}

	if spec.Connection.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTimeout, spec.Connection.Timeout))
	}

	namespaces := []struct{ field, value string }{
		{"namespaces.ops", spec.Namespaces.Ops},
		{"namespaces.kuadrant", spec.Namespaces.Kuadrant},
		{"namespaces.app", spec.Namespaces.App},
		{"namespaces.maasAPI", spec.Namespaces.MaaSAPI},
		{"gateway.namespace", spec.Gateway.Namespace},
	}

	for _, namespace := range namespaces {
		err := ValidateNamespace(namespace.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", namespace.field, err))
		}
	}

	floors := []struct{ field, value string }{
		{"operators.requiredKuadrantCSV", spec.Operators.RequiredKuadrantCSV},
		{"operators.requiredODHCSV", spec.Operators.RequiredODHCSV},
		{"operators.requiredRHOAICSV", spec.Operators.RequiredRHOAICSV},
		{"operators.requiredCertManagerCSV", spec.Operators.RequiredCertManagerCSV},
	}

	for _, floor := range floors {
		if floor.value == "" {
			continue
		}

		_, err := semver.NewVersion(strings.TrimPrefix(floor.value, "v"))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w %q: %w", floor.field, ErrInvalidCSVVersion, floor.value, err))
		}
	}

	return errors.Join(errs...)
}

// ValidateNamespace checks that name is a DNS-1123 label.
func ValidateNamespace(name string) error {
	problems := validation.IsDNS1123Label(name)
	if len(problems) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidNamespace, name, strings.Join(problems, "; "))
	}

	return nil
}
