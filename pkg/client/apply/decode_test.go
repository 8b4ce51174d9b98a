package apply_test

import (
	"testing"

	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func TestDecodeSkipsEmptyDocuments(t *testing.T) {
	t.Parallel()

	objects, err := apply.Decode([]byte("---\n# only a comment\n---\n" + policyManifests + "---\n"))
	require.NoError(t, err)
	require.Len(t, objects, 3)

	assert.Equal(t, "Namespace", objects[0].GetKind())
	assert.Equal(t, "AuthPolicy", objects[2].GetKind())
}

func TestDecodeFlattensLists(t *testing.T) {
	t.Parallel()

	objects, err := apply.Decode([]byte(`apiVersion: v1
kind: List
items:
- apiVersion: monitoring.coreos.com/v1
  kind: ServiceMonitor
  metadata:
    name: limitador-metrics
    namespace: kuadrant-system
  spec:
    endpoints:
    - port: http
      interval: 30s
- apiVersion: monitoring.coreos.com/v1
  kind: ServiceMonitor
  metadata:
    name: authorino-metrics
    namespace: kuadrant-system
`))
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "authorino-metrics", objects[1].GetName())
}

func TestDecodeKeepsIntegers(t *testing.T) {
	t.Parallel()

	objects, err := apply.Decode([]byte(`apiVersion: apps/v1
kind: Deployment
metadata:
  name: maas-api
  namespace: maas-api
spec:
  replicas: 2
`))
	require.NoError(t, err)

	replicas, found, err := unstructured.NestedInt64(objects[0].Object, "spec", "replicas")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), replicas)
}

func TestDecodeMissingTypeInfo(t *testing.T) {
	t.Parallel()

	_, err := apply.Decode([]byte("metadata:\n  name: nameless\n"))
	require.ErrorIs(t, err, apply.ErrMissingTypeInfo)
}

func TestDecodeInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := apply.Decode([]byte("kind: [unclosed"))
	require.Error(t, err)
}
