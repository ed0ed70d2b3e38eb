package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetBuildInfo(t *testing.T) {
	SetBuildInfo("1.2.3", "abc123", "2026-01-01")
	assert.Equal(t, 1.0, testutil.ToFloat64(BuildInfo.WithLabelValues("1.2.3", "abc123", "2026-01-01")))
}

func TestHandlerServesMetrics(t *testing.T) {
	AlertsFiring.Set(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alertd_alerts_firing 3")

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
