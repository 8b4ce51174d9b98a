package k8s

import "errors"

// ErrNotLoggedIn is returned when the cluster rejects the current credentials.
var ErrNotLoggedIn = errors.New("not logged in to the cluster")

// ErrRequiredCRDMissing is returned when a CRD that the platform depends on is not installed.
var ErrRequiredCRDMissing = errors.New("required CRD missing")
