// Package readiness waits for cluster state to converge.
//
// Every wait in maasctl is built on one primitive: poll a read-only predicate
// until it holds, a deadline elapses or the context is cancelled. A missing
// resource or API group is "not yet", never fatal.
//
// Key features:
//   - Generic polling mechanism (PollForReadiness, PollWithInterval)
//   - Condition and JSONPath waits on any resource (WaitForCondition)
//   - CRD establishment, CSV success and webhook endpoint waits
//   - Deployment, DaemonSet, pod and namespace readiness
//   - Multi-resource coordination (WaitForMultipleResources)
//   - Exponential retry of mutating calls (Retry) and the best-effort policy (BestEffort)
package readiness
