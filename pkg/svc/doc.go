// Package svc provides the service layer of maasctl.
//
// Subpackages:
//   - installer: OLM and Helm installers for the platform dependencies
//   - olm: subscriptions, install plans and CSV checks
//   - gateway: the MaaS gateway, its listeners and TLS
//   - policy: gateway auth, rate and token rate limit policies
//   - observability: metrics wiring and the dashboard stacks
//   - manifests: rendering of the embedded deploy bases
//   - orchestrator: deploy and cleanup flows
//   - validate: the read-only platform health report
//   - smoke: the end-to-end smoke and observability suites
package svc
