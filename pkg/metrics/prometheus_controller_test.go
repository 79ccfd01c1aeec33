package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusController_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "newsletter_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	c := &PrometheusController{path: DefaultPath, gatherer: reg}
	r := mux.NewRouter()
	c.Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, DefaultPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "newsletter_test_total 1")
}

func TestNewPrometheusController_DefaultPath(t *testing.T) {
	require.Equal(t, DefaultPath, NewPrometheusController("").Key())
	require.Equal(t, "/metrics", NewPrometheusController("/metrics").Key())
}
