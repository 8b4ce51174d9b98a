// Package observability wires the platform into OpenShift user workload
// monitoring and installs the Grafana and Perses dashboards.
//
// WireMetrics labels the platform namespaces and creates the ServiceMonitors,
// PodMonitor and Istio Telemetry that expose Limitador, Authorino, gateway
// and model metrics with per-user labels. InstallStack installs the dashboard
// operators, an instance per stack, a Thanos datasource authenticated with a
// service-account token, and the MaaS dashboards.
package observability
