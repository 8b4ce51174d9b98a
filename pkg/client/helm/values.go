package helm

import (
	"fmt"

	helmv4strvals "helm.sh/helm/v4/pkg/strvals"
	"sigs.k8s.io/yaml"
)

// mergeValues layers ValuesYaml, then SetValues, then SetJSONVals.
func mergeValues(spec *ChartSpec) (map[string]any, error) {
	base := map[string]any{}

	if spec.ValuesYaml != "" {
		var parsed map[string]any

		err := yaml.Unmarshal([]byte(spec.ValuesYaml), &parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ValuesYaml: %w", err)
		}

		mergeMapsInto(base, parsed)
	}

	for key, val := range spec.SetValues {
		err := helmv4strvals.ParseInto(fmt.Sprintf("%s=%s", key, val), base)
		if err != nil {
			return nil, fmt.Errorf("failed to parse set value %s=%s: %w", key, val, err)
		}
	}

	for key, val := range spec.SetJSONVals {
		err := helmv4strvals.ParseJSON(fmt.Sprintf("%s=%s", key, val), base)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON value %s=%s: %w", key, val, err)
		}
	}

	return base, nil
}

func mergeMapsInto(dest, src map[string]any) {
	for key, srcVal := range src {
		if srcMap, ok := srcVal.(map[string]any); ok {
			if destMap, ok := dest[key].(map[string]any); ok {
				mergeMapsInto(destMap, srcMap)

				continue
			}
		}

		dest[key] = srcVal
	}
}
