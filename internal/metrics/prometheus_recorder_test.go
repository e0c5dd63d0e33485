package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("shelf.edit", "mutate", 15*time.Millisecond)
	pr.ObserveOperationDuration("shelf.edit", 40*time.Millisecond)
	pr.IncOperationResult("shelf.edit", ResultSuccess)
	pr.IncOperationResult("shelf.edit", ResultRejected)
	pr.IncOperationResult("shelf.edit", ResultRejected)
	pr.IncRegistryFlush(ResultSuccess)
	pr.SetRegistrySize(12)
	pr.IncEventRelayed("container-updated", true)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 6)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.operationResults.WithLabelValues("shelf.edit", "rejected")), 0.001)
	assert.InDelta(t, 12, testutil.ToFloat64(pr.registrySize), 0.001)
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRegistryFlush(ResultFailed)
	pr.SetRegistrySize(1)
	pr.ObserveStageDuration("a", "b", time.Second)
}

func TestServerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).SetRegistrySize(3)
	srv := NewServer(":0", "/metrics", reg)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shelfkeeper_registry_locations 3")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `promhttp_metric_handler_requests_total{code="200"} 1`)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopRecorder{}, OrNoop(nil))
	pr := NewPrometheusRecorder(nil)
	assert.Same(t, pr, OrNoop(pr))
}
