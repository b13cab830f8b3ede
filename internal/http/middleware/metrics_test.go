package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dydqjadlsp/detailpage/internal/observability"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

func TestMetricsSkipsProbesAndLabelsUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics(logger.Nop())
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/healthcheck", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/api/projects/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/healthcheck", "/metrics", "/api/projects/1", "/api/projects/2", "/wp-login.php", "/.env"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `detailpage_http_requests_total{method="GET",route="/api/projects/:id",status="404"} 2`)
	assert.Contains(t, body, `detailpage_http_requests_total{method="GET",route="unmatched",status="404"} 2`)
	assert.NotContains(t, body, `route="/healthcheck"`)
	assert.NotContains(t, body, `route="/metrics"`)
	assert.Contains(t, body, `detailpage_http_inflight_requests 0`)
}
