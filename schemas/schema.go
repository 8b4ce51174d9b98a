// Package schemas reflects the JSON schema of maasctl.yaml from the
// v1alpha1 configuration types. Regenerate the committed schema with
//
//	go run gen_schema.go [output-path]
package schemas

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
)

// Title of the generated schema.
const Title = "maasctl Platform Configuration"

// Reflect builds the schema of v1alpha1.Platform.
func Reflect() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper:                    customTypeMapper,
	}
	schema := reflector.Reflect(&v1alpha1.Platform{})

	customizeSchema(schema)

	return schema
}

// Marshal returns the indented schema document.
func Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(Reflect(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return data, nil
}

func customizeSchema(schema *jsonschema.Schema) {
	schema.ID = ""
	schema.Title = Title
	schema.Description = "JSON schema for the maasctl configuration file (maasctl.yaml)"

	// Every field is optional; defaults and the environment fill the gaps.
	walkSchema(schema, func(s *jsonschema.Schema) {
		s.Required = nil
	})

	schema.Required = []string{"spec"}

	if schema.Properties != nil {
		if p, ok := schema.Properties.Get("kind"); ok && p != nil {
			p.Enum = []any{v1alpha1.Kind}
		}

		if p, ok := schema.Properties.Get("apiVersion"); ok && p != nil {
			p.Enum = []any{v1alpha1.APIVersion}
		}
	}
}

func walkSchema(schema *jsonschema.Schema, fn func(*jsonschema.Schema)) {
	if schema == nil {
		return
	}

	fn(schema)

	if schema.Properties != nil {
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			walkSchema(pair.Value, fn)
		}
	}

	if schema.Items != nil {
		walkSchema(schema.Items, fn)
	}

	if schema.AdditionalProperties != nil {
		walkSchema(schema.AdditionalProperties, fn)
	}
}

// customTypeMapper turns EnumValuer types into string enums and durations
// into Go duration strings.
func customTypeMapper(t reflect.Type) *jsonschema.Schema {
	enumValuerType := reflect.TypeFor[v1alpha1.EnumValuer]()

	if reflect.PointerTo(t).Implements(enumValuerType) {
		values := reflect.New(t).Interface().(v1alpha1.EnumValuer).ValidValues()

		enums := make([]any, len(values))
		for i, v := range values {
			enums[i] = v
		}

		return &jsonschema.Schema{Type: "string", Enum: enums}
	}

	if t == reflect.TypeFor[time.Duration]() {
		return &jsonschema.Schema{
			Type:    "string",
			Pattern: "^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$",
		}
	}

	return nil
}
