package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentCountsByRoute(t *testing.T) {
	m := New()
	h := m.Instrument("/api/organ-requests/:id/status", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/organ-requests/"+id+"/status", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	count := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodPatch, "/api/organ-requests/:id/status", "404"))
	assert.Equal(t, float64(2), count)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.httpInFlight))
}

func TestReviewDecided(t *testing.T) {
	m := New()
	m.ReviewDecided("donor", "approve")
	m.ReviewDecided("donor", "approve")
	m.ReviewDecided("recipient", "conflict")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.reviewsTotal.WithLabelValues("donor", "approve")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reviewsTotal.WithLabelValues("recipient", "conflict")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "organlink_rate_limited_requests_total 1")
}
