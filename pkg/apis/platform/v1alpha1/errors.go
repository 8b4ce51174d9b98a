package v1alpha1

import "errors"

// ErrInvalidDistribution is returned when an invalid distribution is specified.
var ErrInvalidDistribution = errors.New("invalid distribution")

// ErrInvalidOperatorSet is returned when an invalid operator set is specified.
var ErrInvalidOperatorSet = errors.New("invalid operator set")

// ErrInvalidObservabilityStack is returned when an invalid observability stack is specified.
var ErrInvalidObservabilityStack = errors.New("invalid observability stack")

// ErrInvalidNamespace is returned when a namespace is not a DNS-1123 label.
var ErrInvalidNamespace = errors.New("invalid namespace")

// ErrInvalidTimeout is returned when the timeout is not positive.
var ErrInvalidTimeout = errors.New("timeout must be positive")

// ErrInvalidCSVVersion is returned when a required CSV floor is not a semantic version.
var ErrInvalidCSVVersion = errors.New("invalid required CSV version")
