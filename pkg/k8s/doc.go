// Package k8s provides Kubernetes client construction and small helpers shared
// by the installers and checks.
//
// For resource readiness polling, see the [readiness] sub-package.
//
// Key features:
//   - REST config building from kubeconfig files (BuildRESTConfig)
//   - A bundle of typed, dynamic, apiextensions and controller-runtime clients (NewClients)
//   - GroupVersionResources of the external kinds the platform manages
//   - Namespace and deployment helpers (EnsureNamespace, RestartDeployment)
//   - Unstructured condition lookup (ConditionStatus)
//   - Pod failure diagnostics (DiagnosePodFailures)
package k8s
