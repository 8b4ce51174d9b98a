package readiness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/log"
	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
)

// CSVPhaseSucceeded is the phase of a fully installed operator.
const CSVPhaseSucceeded = "Succeeded"

// WaitForCSVSucceeded waits until a ClusterServiceVersion whose name starts
// with csvPrefix reaches phase Succeeded in namespace, and returns its name.
func WaitForCSVSucceeded(
	ctx context.Context,
	dyn dynamic.Interface,
	namespace, csvPrefix string,
	deadline time.Duration,
) (string, error) {
	var found string

	err := PollForReadiness(ctx, deadline, func(ctx context.Context) (bool, error) {
		list, err := dyn.Resource(k8s.ClusterServiceVersionGVR).Namespace(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			log.Debug(ctx, "cannot list CSVs yet", zap.String("namespace", namespace), zap.Error(err))

			return false, nil
		}

		name, ok := FindSucceededCSV(list.Items, csvPrefix)
		if ok {
			found = name
		}

		return ok, nil
	})
	if err != nil {
		return "", fmt.Errorf("wait for CSV %s* in %s to succeed: %w", csvPrefix, namespace, err)
	}

	return found, nil
}

// FindSucceededCSV returns the name of the first CSV with the given prefix in phase Succeeded.
func FindSucceededCSV(csvs []unstructured.Unstructured, csvPrefix string) (string, bool) {
	for i := range csvs {
		csv := &csvs[i]
		if !strings.HasPrefix(csv.GetName(), csvPrefix) {
			continue
		}

		phase, _, _ := unstructured.NestedString(csv.Object, "status", "phase")
		if phase == CSVPhaseSucceeded {
			return csv.GetName(), true
		}
	}

	return "", false
}
