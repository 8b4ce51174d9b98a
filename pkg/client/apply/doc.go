// Package apply writes rendered manifests to the cluster idempotently.
//
// Objects are decoded from multi-document YAML, mapped to their resource with
// a RESTMapper and created, updated or left alone through the dynamic client.
// Re-applying the same manifests never creates duplicates and never issues a
// write when nothing changed.
package apply
