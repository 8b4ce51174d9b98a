// Package installer installs the platform dependencies: cert-manager,
// Kuadrant (with Authorino and Limitador), Open Data Hub or OpenShift AI with
// KServe, and the Grafana and Perses operators.
//
// Each component is an Installer in its own subpackage. On OpenShift the
// operators are subscribed through OLM; on plain Kubernetes they are
// installed from their Helm charts.
package installer
