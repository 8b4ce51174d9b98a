package report_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/opendatahub-io/maasctl/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCountsAndSummary(t *testing.T) {
	t.Parallel()

	var rep report.Report

	rep.Add(
		report.Passed("health", "200 OK"),
		report.Warned("policies", "check the kuadrant operator logs", "1 pending"),
		report.Failed("models", "deploy a model", "catalog is empty"),
		report.Skipped("vllm metrics", "simulators do not expose vLLM metrics"),
	)

	assert.True(t, rep.HasFailures())
	assert.Equal(t, "1 passed, 1 warnings, 1 failed, 1 skipped", rep.Summary())
}

func TestReportAddIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	var (
		rep report.Report
		wg  sync.WaitGroup
	)

	for range 20 {
		wg.Go(func() {
			rep.Add(report.Passed("check", "ok"))
		})
	}

	wg.Wait()

	assert.Len(t, rep.Results(), 20)
	assert.False(t, rep.HasFailures())
}

func TestRenderListsResultsAndHints(t *testing.T) {
	t.Parallel()

	var (
		rep report.Report
		out bytes.Buffer
	)

	rep.Add(
		report.Passed("maas-api health", "200 OK"),
		report.Failed("gateway", "oc describe gateway -n openshift-ingress maas-default-gateway", "not programmed"),
	)

	require.NoError(t, rep.Render(&out))

	rendered := out.String()
	assert.Contains(t, rendered, "maas-api health")
	assert.Contains(t, rendered, "not programmed")
	assert.Contains(t, rendered, "Hints:")
	assert.Contains(t, rendered, "gateway: oc describe gateway")
	assert.NotContains(t, rendered, "maas-api health: ")
}
