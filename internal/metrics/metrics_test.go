package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/v1/crops", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/crops", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/api/v1/crops", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "agronity_http_requests_total"))
}

func TestObservers(t *testing.T) {
	m := New()
	m.ObserveEvaluation("sklearn", "feasible")
	m.ObserveEvaluation("", "error")
	m.ObserveClassification("fallback", "Diseased")
	m.ObserveClassification("", "")
	m.ObserveAlert()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("sklearn", "feasible")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("none", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("none", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts))
}
