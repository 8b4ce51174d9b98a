// Package apis provides the versioned configuration types of maasctl.
//
//   - platform: the Platform configuration read from maasctl.yaml
package apis
