// Package client provides the clients maasctl drives the cluster and the
// platform with:
//
//   - apply: server-side apply of rendered objects
//   - helm: Helm chart installation on plain Kubernetes
//   - kustomize: rendering of the embedded deploy bases
//   - kubeconform: optional schema validation of rendered manifests
//   - maas: the MaaS API and the model routes behind the gateway
//   - limitador: Limitador limits and metrics through the pod proxy
//   - prometheus: PromQL queries against the cluster Prometheus
//   - netretry: retry classification of transient network errors
package client
