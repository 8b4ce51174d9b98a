package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/opendatahub-io/maasctl/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	t.Parallel()

	data, err := schemas.Marshal()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	t.Run("root metadata", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, schemas.Title, schema["title"])
		assert.Equal(t, false, schema["additionalProperties"])
		assert.Equal(t, []any{"spec"}, schema["required"])
	})

	t.Run("kind and apiVersion", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, []any{"Platform"}, mustProp(t, schema, "kind")["enum"])
		assert.Equal(t, []any{"maas.opendatahub.io/v1alpha1"}, mustProp(t, schema, "apiVersion")["enum"])
	})

	t.Run("enums", func(t *testing.T) {
		t.Parallel()

		spec := mustProp(t, schema, "spec")
		assert.Equal(t, []any{"OpenShift", "Kubernetes"}, mustProp(t, spec, "distribution")["enum"])
		assert.Equal(t, []any{"ODH", "RHOAI"}, mustProp(t, mustProp(t, spec, "operators"), "set")["enum"])
		assert.Contains(t, mustProp(t, mustProp(t, spec, "observability"), "stack")["enum"], "perses")
	})

	t.Run("durations are strings", func(t *testing.T) {
		t.Parallel()

		timeout := mustProp(t, mustProp(t, mustProp(t, schema, "spec"), "connection"), "timeout")
		assert.Equal(t, "string", timeout["type"])
		assert.Regexp(t, timeout["pattern"], "10m30s")
	})

	t.Run("nested objects have no required fields", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, mustProp(t, schema, "spec")["required"])
	})
}

func mustProp(t *testing.T, schema map[string]any, key string) map[string]any {
	t.Helper()

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "properties of %v", schema)

	prop, ok := props[key].(map[string]any)
	require.True(t, ok, "property %s", key)

	return prop
}
