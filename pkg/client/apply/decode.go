package apply

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
)

const decodeBufferSize = 4096

// Decode splits a multi-document YAML or JSON stream into objects. Empty
// documents are dropped and List kinds are flattened.
func Decode(manifests []byte) ([]*unstructured.Unstructured, error) {
	decoder := utilyaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifests), decodeBufferSize)

	var objects []*unstructured.Unstructured

	for document := 1; ; document++ {
		var ext runtime.RawExtension

		err := decoder.Decode(&ext)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", document, err)
		}

		raw := bytes.TrimSpace(ext.Raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}

		var typeMeta metav1.TypeMeta

		err = json.Unmarshal(raw, &typeMeta)
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", document, err)
		}

		if typeMeta.Kind == "" || typeMeta.APIVersion == "" {
			return nil, fmt.Errorf("%w: document %d", ErrMissingTypeInfo, document)
		}

		obj := &unstructured.Unstructured{}

		err = obj.UnmarshalJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", document, err)
		}

		if obj.IsList() {
			list, err := obj.ToList()
			if err != nil {
				return nil, fmt.Errorf("decode list %s: %w", obj.GetKind(), err)
			}

			for i := range list.Items {
				objects = append(objects, &list.Items[i])
			}

			continue
		}

		objects = append(objects, obj)
	}

	return objects, nil
}
