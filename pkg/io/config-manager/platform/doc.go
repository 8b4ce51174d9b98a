// Package configmanager loads the v1alpha1.Platform configuration of maasctl.
//
// Precedence is defaults < maasctl.yaml < environment < flags. Environment
// variables keep the names the installation scripts used (OPS_NS,
// KUADRANT_NS, CAT_IMAGE, REQ_KUADRANT_CSV, ...) and are also reachable with
// a MAASCTL_ prefix, which wins when both are set.
//
// This package shares the "configmanager" name with its parent directory.
// Import with an alias:
//
//	import platformconfig "github.com/opendatahub-io/maasctl/pkg/io/config-manager/platform"
package configmanager
