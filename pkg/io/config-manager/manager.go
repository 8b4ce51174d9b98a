// Package configmanager defines how maasctl configuration is loaded.
package configmanager

import (
	"github.com/opendatahub-io/maasctl/pkg/timer"
)

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// Timer enables timing output in notifications when provided.
	Timer timer.Timer
	// Silent suppresses all loading notifications when true.
	Silent bool
	// IgnoreConfigFile skips reading on-disk config files when true (flags/env/defaults only).
	IgnoreConfigFile bool
}

// ConfigManager provides configuration management functionality.
type ConfigManager[T any] interface {
	// Load returns the configuration, loading it on first use.
	Load(opts LoadOptions) (*T, error)
}
