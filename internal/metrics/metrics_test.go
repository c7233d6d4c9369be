package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	m := New(nil)

	m.ObserveHTTP(http.MethodGet, "/api/v1/farms", 200, 10*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/api/v1/sales", 422, time.Millisecond)
	m.ObserveGrid("farms", "ok", time.Millisecond)
	m.ObserveOperation("sale", errors.New("boom"))
	m.AddSeeded("recordings", 35)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPErrors.WithLabelValues(http.MethodPost, "/api/v1/sales", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GridRequests.WithLabelValues("farms", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookkeepingOps.WithLabelValues("sale", "error")))
	assert.Equal(t, 35.0, testutil.ToFloat64(m.SeededRows.WithLabelValues("recordings")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "farmdesk_http_requests_total"))
}
