package v1alpha1

import (
	"fmt"
	"slices"
	"strings"
)

// EnumValuer is implemented by string-based enum types to provide their valid values.
type EnumValuer interface {
	ValidValues() []string
}

func setEnum[T ~string](target *T, value string, valid []T, sentinel error) error {
	for _, candidate := range valid {
		if strings.EqualFold(value, string(candidate)) {
			*target = candidate

			return nil
		}
	}

	names := make([]string, 0, len(valid))
	for _, candidate := range valid {
		names = append(names, string(candidate))
	}

	return fmt.Errorf("%w: %s (valid options: %s)", sentinel, value, strings.Join(names, ", "))
}

func enumStrings[T ~string](valid []T) []string {
	values := make([]string, 0, len(valid))
	for _, value := range valid {
		values = append(values, string(value))
	}

	return values
}

// --- Distribution ---

// Distribution is the flavour of the target cluster.
type Distribution string

const (
	// DistributionOpenShift installs dependencies through OLM and uses OpenShift ingress and monitoring.
	DistributionOpenShift Distribution = "OpenShift"
	// DistributionKubernetes installs dependencies with Helm.
	DistributionKubernetes Distribution = "Kubernetes"
)

// ValidDistributions returns supported distribution values.
func ValidDistributions() []Distribution {
	return []Distribution{DistributionOpenShift, DistributionKubernetes}
}

// Set for Distribution (pflag.Value interface).
func (d *Distribution) Set(value string) error {
	return setEnum(d, value, ValidDistributions(), ErrInvalidDistribution)
}

// UnmarshalText lets config decoding validate the value. Empty text
// leaves the zero value for SetDefaults to fill.
func (d *Distribution) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = ""

		return nil
	}

	return d.Set(string(text))
}

// IsValid checks if the distribution value is supported.
func (d *Distribution) IsValid() bool {
	return slices.Contains(ValidDistributions(), *d)
}

// String returns the string representation of the Distribution.
func (d *Distribution) String() string {
	return string(*d)
}

// Type returns the type of the Distribution.
func (d *Distribution) Type() string {
	return "Distribution"
}

// Default returns DistributionOpenShift.
func (d *Distribution) Default() Distribution {
	return DistributionOpenShift
}

// ValidValues returns all valid Distribution values as strings.
func (d *Distribution) ValidValues() []string {
	return enumStrings(ValidDistributions())
}

// IsOpenShift reports whether the cluster is OpenShift.
func (d Distribution) IsOpenShift() bool {
	return d == DistributionOpenShift
}

// --- OperatorSet ---

// OperatorSet selects the model serving operator: Open Data Hub or Red Hat OpenShift AI.
type OperatorSet string

const (
	// OperatorSetODH is the community Open Data Hub operator.
	OperatorSetODH OperatorSet = "ODH"
	// OperatorSetRHOAI is the Red Hat OpenShift AI operator.
	OperatorSetRHOAI OperatorSet = "RHOAI"
)

// ValidOperatorSets returns supported operator set values.
func ValidOperatorSets() []OperatorSet {
	return []OperatorSet{OperatorSetODH, OperatorSetRHOAI}
}

// Set for OperatorSet (pflag.Value interface).
func (o *OperatorSet) Set(value string) error {
	return setEnum(o, value, ValidOperatorSets(), ErrInvalidOperatorSet)
}

// UnmarshalText lets config decoding validate the value. Empty text
// leaves the zero value for SetDefaults to fill.
func (o *OperatorSet) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*o = ""

		return nil
	}

	return o.Set(string(text))
}

// IsValid checks if the operator set is supported.
func (o *OperatorSet) IsValid() bool {
	return slices.Contains(ValidOperatorSets(), *o)
}

// String returns the string representation of the OperatorSet.
func (o *OperatorSet) String() string {
	return string(*o)
}

// Type returns the type of the OperatorSet.
func (o *OperatorSet) Type() string {
	return "OperatorSet"
}

// Default returns OperatorSetODH.
func (o *OperatorSet) Default() OperatorSet {
	return OperatorSetODH
}

// ValidValues returns all valid OperatorSet values as strings.
func (o *OperatorSet) ValidValues() []string {
	return enumStrings(ValidOperatorSets())
}

// Package is the OLM package name of the operator.
func (o OperatorSet) Package() string {
	if o == OperatorSetRHOAI {
		return "rhods-operator"
	}

	return "opendatahub-operator"
}

// Channel is the subscription channel.
func (o OperatorSet) Channel() string {
	return "fast"
}

// CatalogSource is the default catalog the package is published in.
func (o OperatorSet) CatalogSource() string {
	if o == OperatorSetRHOAI {
		return "redhat-operators"
	}

	return "community-operators"
}

// OperatorNamespace is the namespace the operator is subscribed in.
func (o OperatorSet) OperatorNamespace() string {
	if o == OperatorSetRHOAI {
		return "redhat-ods-operator"
	}

	return "openshift-operators"
}

// ApplicationsNamespace is where the operator deploys KServe and its webhooks.
func (o OperatorSet) ApplicationsNamespace() string {
	if o == OperatorSetRHOAI {
		return "redhat-ods-applications"
	}

	return "opendatahub"
}

// --- ObservabilityStack ---

// ObservabilityStack selects the dashboard stack.
type ObservabilityStack string

const (
	// ObservabilityStackGrafana installs the Grafana operator and dashboards.
	ObservabilityStackGrafana ObservabilityStack = "grafana"
	// ObservabilityStackPerses installs the Perses operator and dashboards.
	ObservabilityStackPerses ObservabilityStack = "perses"
	// ObservabilityStackBoth installs Grafana and Perses.
	ObservabilityStackBoth ObservabilityStack = "both"
	// ObservabilityStackNone only wires metrics, without dashboards.
	ObservabilityStackNone ObservabilityStack = "none"
)

// ValidObservabilityStacks returns supported stack values.
func ValidObservabilityStacks() []ObservabilityStack {
	return []ObservabilityStack{
		ObservabilityStackGrafana,
		ObservabilityStackPerses,
		ObservabilityStackBoth,
		ObservabilityStackNone,
	}
}

// Set for ObservabilityStack (pflag.Value interface).
func (s *ObservabilityStack) Set(value string) error {
	return setEnum(s, value, ValidObservabilityStacks(), ErrInvalidObservabilityStack)
}

// UnmarshalText lets config decoding validate the value. Empty text
// leaves the zero value for SetDefaults to fill.
func (s *ObservabilityStack) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ""

		return nil
	}

	return s.Set(string(text))
}

// IsValid checks if the stack is supported.
func (s *ObservabilityStack) IsValid() bool {
	return slices.Contains(ValidObservabilityStacks(), *s)
}

// String returns the string representation of the ObservabilityStack.
func (s *ObservabilityStack) String() string {
	return string(*s)
}

// Type returns the type of the ObservabilityStack.
func (s *ObservabilityStack) Type() string {
	return "ObservabilityStack"
}

// Default returns ObservabilityStackGrafana.
func (s *ObservabilityStack) Default() ObservabilityStack {
	return ObservabilityStackGrafana
}

// ValidValues returns all valid ObservabilityStack values as strings.
func (s *ObservabilityStack) ValidValues() []string {
	return enumStrings(ValidObservabilityStacks())
}

// IncludesGrafana reports whether Grafana is part of the stack.
func (s ObservabilityStack) IncludesGrafana() bool {
	return s == ObservabilityStackGrafana || s == ObservabilityStackBoth
}

// IncludesPerses reports whether Perses is part of the stack.
func (s ObservabilityStack) IncludesPerses() bool {
	return s == ObservabilityStackPerses || s == ObservabilityStackBoth
}
