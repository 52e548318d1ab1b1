package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/outstaff/outstaff/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// histogramCount returns the sample count of one HistogramVec series.
func histogramCount(t *testing.T, method, path string) uint64 {
	t.Helper()
	obs, err := telemetry.HTTPRequestDuration.GetMetricWithLabelValues(method, path)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	var m dto.Metric
	if err := obs.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

const entryRoute = "/api/v1/orgs/:org_id/time/entries/:entry_id"

func serveMetrics(status int, url string) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET(entryRoute, func(c *gin.Context) { c.Status(status) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, url, nil))
}

// ---------------------------------------------------------------------------
// MetricsMiddleware
// ---------------------------------------------------------------------------

func TestMetricsMiddleware_CountsByRouteTemplate(t *testing.T) {
	counter := telemetry.HTTPRequestsTotal.WithLabelValues("GET", entryRoute, "200")
	before := testutil.ToFloat64(counter)

	serveMetrics(http.StatusOK, "/api/v1/orgs/4/time/entries/42")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("http_requests_total delta = %v, want 1", got)
	}
	raw := telemetry.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/orgs/4/time/entries/42", "200")
	if testutil.ToFloat64(raw) != 0 {
		t.Error("raw URL used as path label")
	}
}

func TestMetricsMiddleware_ObservesDuration(t *testing.T) {
	before := histogramCount(t, "GET", entryRoute)

	serveMetrics(http.StatusOK, "/api/v1/orgs/4/time/entries/7")

	if after := histogramCount(t, "GET", entryRoute); after != before+1 {
		t.Errorf("histogram sample count = %d, want %d", after, before+1)
	}
}

func TestMetricsMiddleware_RecordsErrorStatus(t *testing.T) {
	counter := telemetry.HTTPRequestsTotal.WithLabelValues("GET", entryRoute, "500")
	before := testutil.ToFloat64(counter)

	serveMetrics(http.StatusInternalServerError, "/api/v1/orgs/4/time/entries/9")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("status=500 delta = %v, want 1", got)
	}
}

func TestMetricsMiddleware_NoRouteLabel(t *testing.T) {
	counter := telemetry.HTTPRequestsTotal.WithLabelValues("GET", noRouteLabel, "404")
	before := testutil.ToFloat64(counter)

	r := gin.New()
	r.Use(MetricsMiddleware())
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("<no-route> delta = %v, want 1", got)
	}
}
