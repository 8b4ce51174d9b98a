package k8s

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ConditionStatus looks up status.conditions[type==condType] on obj and
// returns its status and message.
func ConditionStatus(obj *unstructured.Unstructured, condType string) (string, string, bool) {
	if obj == nil {
		return "", "", false
	}

	conditions, found, err := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if err != nil || !found {
		return "", "", false
	}

	for _, raw := range conditions {
		condition, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		if condition["type"] != condType {
			continue
		}

		status, _ := condition["status"].(string)
		message, _ := condition["message"].(string)

		return status, message, true
	}

	return "", "", false
}
