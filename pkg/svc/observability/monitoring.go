package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

// ErrNoPrometheus is returned when no query endpoint can be found.
var ErrNoPrometheus = errors.New("no Prometheus endpoint")

const (
	// MonitoringNamespace hosts the platform Prometheus stack.
	MonitoringNamespace = "openshift-monitoring"
	// MonitoringConfigMap configures the cluster monitoring operator.
	MonitoringConfigMap = "cluster-monitoring-config"

	monitoringConfigKey = "config.yaml"
	userWorkloadKey     = "enableUserWorkload"
)

// EnableUserWorkloadMonitoring sets enableUserWorkload: true in the cluster
// monitoring config, creating the ConfigMap when needed and keeping every
// other setting. It reports whether anything changed.
func EnableUserWorkloadMonitoring(ctx context.Context, kube kubernetes.Interface) (bool, error) {
	configMaps := kube.CoreV1().ConfigMaps(MonitoringNamespace)

	current, err := configMaps.Get(ctx, MonitoringConfigMap, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		config, _ := setUserWorkload("")

		_, err = configMaps.Create(ctx, &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: MonitoringConfigMap, Namespace: MonitoringNamespace},
			Data:       map[string]string{monitoringConfigKey: config},
		}, metav1.CreateOptions{FieldManager: k8s.FieldManager})
		if err != nil {
			return false, fmt.Errorf("create %s: %w", MonitoringConfigMap, err)
		}

		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("get %s: %w", MonitoringConfigMap, err)
	}

	config, changed := setUserWorkload(current.Data[monitoringConfigKey])
	if !changed {
		return false, nil
	}

	if current.Data == nil {
		current.Data = map[string]string{}
	}

	current.Data[monitoringConfigKey] = config

	_, err = configMaps.Update(ctx, current, metav1.UpdateOptions{FieldManager: k8s.FieldManager})
	if err != nil {
		return false, fmt.Errorf("update %s: %w", MonitoringConfigMap, err)
	}

	return true, nil
}

// setUserWorkload edits the YAML document in place so comments and key order
// survive. Unparseable documents are replaced.
func setUserWorkload(config string) (string, bool) {
	var doc yaml.Node

	err := yaml.Unmarshal([]byte(config), &doc)
	if err != nil || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}

	root := doc.Content[0]

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != userWorkloadKey {
			continue
		}

		value := root.Content[i+1]
		if value.Value == "true" {
			return config, false
		}

		value.Kind = yaml.ScalarNode
		value.Tag = "!!bool"
		value.Value = "true"

		return encode(&doc), true
	}

	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: userWorkloadKey},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"},
	)

	return encode(&doc), true
}

func encode(doc *yaml.Node) string {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return userWorkloadKey + ": true\n"
	}

	return string(out)
}

// ThanosQuerierRoute is the route exposing the cluster query endpoint.
const ThanosQuerierRoute = "thanos-querier"

// PrometheusURL returns override when set, otherwise the https URL of the
// thanos-querier route.
func PrometheusURL(ctx context.Context, dyn dynamic.Interface, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	route, err := dyn.Resource(k8s.RouteGVR).Namespace(MonitoringNamespace).
		Get(ctx, ThanosQuerierRoute, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("get route %s/%s: %w", MonitoringNamespace, ThanosQuerierRoute, err)
	}

	host, _, _ := unstructured.NestedString(route.Object, "spec", "host")
	if host == "" {
		return "", fmt.Errorf("%w: route %s has no host", ErrNoPrometheus, ThanosQuerierRoute)
	}

	return "https://" + host, nil
}
