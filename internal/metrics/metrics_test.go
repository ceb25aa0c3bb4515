package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRun("daily", "success", 1500*time.Millisecond)
	reg.RecordRun("daily", "success", 500*time.Millisecond)
	reg.RecordRun("weekly", "error", time.Second)

	assert.InDelta(t, 2.0, testutil.ToFloat64(reg.RunsTotal.WithLabelValues("daily", "success")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(reg.RunsTotal.WithLabelValues("weekly", "error")), 1e-9)
	assert.Greater(t, testutil.ToFloat64(reg.LastRun.WithLabelValues("daily")), 0.0)
}

func TestRecordCoverageAndIssues(t *testing.T) {
	reg := NewRegistry()

	reg.RecordCoverage("bonds", 0.5)
	reg.RecordCoverage("equities", 1.0)
	reg.RecordIssueFiled()

	assert.InDelta(t, 0.5, testutil.ToFloat64(reg.ClassCoverage.WithLabelValues("bonds")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(reg.ClassCoverage.WithLabelValues("equities")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(reg.IssuesFiled), 1e-9)
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.RecordRun("daily", "success", time.Second)
	reg.RecordHTTPRequest("GET", "/api/runs", 200)

	recorder := httptest.NewRecorder()
	reg.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, recorder.Code)
	body := recorder.Body.String()
	assert.True(t, strings.Contains(body, "vigil_runs_total"), "scrape output lists run counter")
	assert.True(t, strings.Contains(body, "vigil_http_requests_total"), "scrape output lists http counter")
}

func TestIndependentRegistries(t *testing.T) {
	// Two registries must not share state or panic on duplicate registration
	first := NewRegistry()
	second := NewRegistry()

	first.RecordIssueFiled()

	assert.InDelta(t, 1.0, testutil.ToFloat64(first.IssuesFiled), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(second.IssuesFiled), 1e-9)
}
