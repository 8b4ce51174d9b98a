// Package cmd provides the command-line interface for maasctl.
//
// Every command loads the platform configuration, connects to the cluster
// through the injected runtime and hands off to the orchestrator:
//   - deploy: the whole platform in one run
//   - install-dependencies, install-observability, wire-metrics: single stages
//   - validate: read-only health report
//   - cleanup: reverse of deploy
//   - test smoke, test observability: end-to-end suites
package cmd
