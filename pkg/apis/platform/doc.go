// Package platform provides the configuration API types of a MaaS platform deployment.
//
//   - v1alpha1: current API version, read from maasctl.yaml, the environment and flags
package platform
