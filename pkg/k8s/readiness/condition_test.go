package readiness_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	k8stesting "k8s.io/client-go/testing"
)

func TestCondition_Evaluate(t *testing.T) {
	t.Parallel()

	kuadrant := newObject("kuadrant.io/v1beta1", "Kuadrant", "kuadrant-system", "kuadrant",
		conditions("Ready", "True"))
	csv := newObject("operators.coreos.com/v1alpha1", "ClusterServiceVersion", "kuadrant-system",
		"kuadrant-operator.v1.3.0", map[string]any{"phase": "Installing"})

	tests := []struct {
		name      string
		cond      readiness.Condition
		object    map[string]any
		wantValue string
		wantOK    bool
	}{
		{
			name:      "condition defaults to True",
			cond:      readiness.Condition{ConditionType: "Ready"},
			object:    kuadrant.Object,
			wantValue: "True",
			wantOK:    true,
		},
		{
			name:      "condition expecting False",
			cond:      readiness.Condition{ConditionType: "Ready", Expected: "False"},
			object:    kuadrant.Object,
			wantValue: "True",
		},
		{
			name:   "missing condition",
			cond:   readiness.Condition{ConditionType: "Enforced"},
			object: kuadrant.Object,
		},
		{
			name:      "jsonpath without braces",
			cond:      readiness.Condition{JSONPath: ".status.phase", Expected: "Succeeded"},
			object:    csv.Object,
			wantValue: "Installing",
		},
		{
			name:      "jsonpath with filter",
			cond:      readiness.Condition{JSONPath: `{.status.conditions[?(@.type=="Ready")].status}`, Expected: "True"},
			object:    kuadrant.Object,
			wantValue: "True",
			wantOK:    true,
		},
		{
			name:      "jsonpath any value",
			cond:      readiness.Condition{JSONPath: ".metadata.name"},
			object:    csv.Object,
			wantValue: "kuadrant-operator.v1.3.0",
			wantOK:    true,
		},
		{
			name:   "jsonpath missing key",
			cond:   readiness.Condition{JSONPath: ".status.connectionState.lastObservedState", Expected: "READY"},
			object: csv.Object,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			obj := newObject("v1", "Any", "", "any", nil)
			obj.Object = test.object

			value, ok, err := test.cond.Evaluate(obj)
			require.NoError(t, err)
			assert.Equal(t, test.wantValue, value)
			assert.Equal(t, test.wantOK, ok)
		})
	}
}

func TestCondition_String(t *testing.T) {
	t.Parallel()

	cond := readiness.Condition{
		GVR:           k8s.KuadrantGVR,
		Namespace:     "kuadrant-system",
		Name:          "kuadrant",
		ConditionType: "Ready",
	}

	assert.Equal(t, "kuadrants.kuadrant.io kuadrant-system/kuadrant Ready=True", cond.String())
}

func TestWaitForCondition_AlreadyMet(t *testing.T) {
	t.Parallel()

	dyn := newDynamicClient(newObject("kuadrant.io/v1beta1", "Kuadrant", "kuadrant-system", "kuadrant",
		conditions("Ready", "True")))

	err := readiness.WaitForCondition(context.Background(), dyn, readiness.Condition{
		GVR:           k8s.KuadrantGVR,
		Namespace:     "kuadrant-system",
		Name:          "kuadrant",
		ConditionType: "Ready",
		Timeout:       time.Second,
	})
	require.NoError(t, err)
}

func TestWaitForCondition_ClusterScopedJSONPath(t *testing.T) {
	t.Parallel()

	dyn := newDynamicClient(newObject("config.openshift.io/v1", "Ingress", "", "cluster", nil))

	err := readiness.WaitForCondition(context.Background(), dyn, readiness.Condition{
		GVR:      k8s.IngressConfigGVR,
		Name:     "cluster",
		JSONPath: ".metadata.name",
		Expected: "cluster",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
}

func TestWaitForCondition_MissingResourceIsNotFatal(t *testing.T) {
	t.Parallel()

	dyn := newDynamicClient()

	var gets atomic.Int32

	dyn.PrependReactor("get", "kuadrants", func(k8stesting.Action) (bool, runtime.Object, error) {
		if gets.Add(1) < 3 {
			return false, nil, nil
		}

		return true, newObject("kuadrant.io/v1beta1", "Kuadrant", "kuadrant-system", "kuadrant",
			conditions("Ready", "True")), nil
	})

	err := readiness.WaitForCondition(context.Background(), dyn, readiness.Condition{
		GVR:           k8s.KuadrantGVR,
		Namespace:     "kuadrant-system",
		Name:          "kuadrant",
		ConditionType: "Ready",
		Timeout:       5 * time.Second,
		Interval:      5 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, gets.Load(), int32(3))
}

func TestWaitForCondition_Timeout(t *testing.T) {
	t.Parallel()

	dyn := newDynamicClient(newObject("kuadrant.io/v1", "AuthPolicy", "openshift-ingress", "gateway-auth-policy",
		conditions("Accepted", "True", "Enforced", "False")))

	err := readiness.WaitForCondition(context.Background(), dyn, readiness.Condition{
		GVR:           k8s.AuthPolicyGVR,
		Namespace:     "openshift-ingress",
		Name:          "gateway-auth-policy",
		ConditionType: "Enforced",
		Timeout:       30 * time.Millisecond,
		Interval:      5 * time.Millisecond,
	})

	require.ErrorIs(t, err, readiness.ErrTimeoutExceeded)
	assert.Contains(t, err.Error(), `last observed "False"`)
	assert.Contains(t, err.Error(), "authpolicies.kuadrant.io openshift-ingress/gateway-auth-policy Enforced=True")
}

func TestWaitForCondition_InvalidSpec(t *testing.T) {
	t.Parallel()

	dyn := newDynamicClient()

	err := readiness.WaitForCondition(context.Background(), dyn, readiness.Condition{
		GVR:  k8s.KuadrantGVR,
		Name: "kuadrant",
	})
	require.ErrorIs(t, err, readiness.ErrInvalidCondition)

	err = readiness.WaitForCondition(context.Background(), dyn, readiness.Condition{
		GVR:      k8s.KuadrantGVR,
		Name:     "kuadrant",
		JSONPath: "{.status[",
	})
	require.ErrorIs(t, err, readiness.ErrInvalidCondition)
}
