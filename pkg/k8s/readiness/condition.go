package readiness

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/log"
	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/util/jsonpath"
)

// Condition describes a state to wait for on a single resource.
//
// Exactly one of ConditionType and JSONPath is used; ConditionType wins when
// both are set.
type Condition struct {
	GVR       schema.GroupVersionResource
	Namespace string
	Name      string
	// ConditionType matches .status.conditions[?(@.type==ConditionType)].status.
	ConditionType string
	// JSONPath is a kubectl-style template such as {.status.phase}. The
	// braces are optional.
	JSONPath string
	// Expected defaults to "True" for condition waits. For JSONPath waits an
	// empty Expected accepts any non-empty value.
	Expected string
	Timeout  time.Duration
	// Interval defaults to DefaultPollInterval.
	Interval time.Duration
}

// String renders the condition like "kuadrants.kuadrant.io kuadrant-system/kuadrant Ready=True".
func (c Condition) String() string {
	target := c.Name
	if c.Namespace != "" {
		target = c.Namespace + "/" + c.Name
	}

	what := c.ConditionType
	if what == "" {
		what = c.JSONPath
	}

	return fmt.Sprintf("%s %s %s=%s", c.GVR.GroupResource(), target, what, c.expected())
}

func (c Condition) expected() string {
	if c.Expected == "" && c.ConditionType != "" {
		return "True"
	}

	return c.Expected
}

// Evaluate reports the observed value of the condition on obj and whether it
// matches.
func (c Condition) Evaluate(obj *unstructured.Unstructured) (string, bool, error) {
	if c.ConditionType != "" {
		status, _, found := k8s.ConditionStatus(obj, c.ConditionType)
		if !found {
			return "", false, nil
		}

		return status, status == c.expected(), nil
	}

	parser, err := c.parser()
	if err != nil {
		return "", false, err
	}

	var buf bytes.Buffer

	err = parser.Execute(&buf, obj.Object)
	if err != nil {
		return "", false, nil //nolint:nilerr // an unresolvable path is "not yet"
	}

	value := strings.TrimSpace(buf.String())

	if c.Expected == "" {
		return value, value != "", nil
	}

	return value, value == c.Expected, nil
}

func (c Condition) parser() (*jsonpath.JSONPath, error) {
	if c.JSONPath == "" {
		return nil, ErrInvalidCondition
	}

	template := c.JSONPath
	if !strings.HasPrefix(template, "{") {
		template = "{" + template + "}"
	}

	parser := jsonpath.New("condition").AllowMissingKeys(true)

	err := parser.Parse(template)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %w", ErrInvalidCondition, c.JSONPath, err)
	}

	return parser, nil
}

// WaitForCondition polls the resource until the condition holds.
//
// Missing resources, missing APIs and transient read errors count as "not
// yet"; only the timeout or a cancelled ctx end the wait early.
func WaitForCondition(ctx context.Context, dyn dynamic.Interface, cond Condition) error {
	if cond.ConditionType == "" {
		_, err := cond.parser()
		if err != nil {
			return err
		}
	}

	var resource dynamic.ResourceInterface = dyn.Resource(cond.GVR)
	if cond.Namespace != "" {
		resource = dyn.Resource(cond.GVR).Namespace(cond.Namespace)
	}

	lastSeen := "<missing>"

	err := PollWithInterval(ctx, cond.Timeout, cond.Interval, func(ctx context.Context) (bool, error) {
		obj, err := resource.Get(ctx, cond.Name, metav1.GetOptions{})
		if err != nil {
			log.Debug(ctx, "resource not readable yet", zap.Stringer("condition", cond), zap.Error(err))

			return false, nil
		}

		value, ok, err := cond.Evaluate(obj)
		if err != nil {
			return false, err
		}

		lastSeen = value
		if !ok {
			log.Debug(ctx, "condition not met", zap.Stringer("condition", cond), zap.String("observed", value))
		}

		return ok, nil
	})
	if err != nil {
		return fmt.Errorf("wait for %s (last observed %q): %w", cond, lastSeen, err)
	}

	return nil
}
