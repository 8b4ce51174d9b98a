// Package olm manages Operator Lifecycle Manager subscriptions: catalog
// sources, operator groups, subscriptions, install plan approval and the
// resulting ClusterServiceVersions.
package olm
