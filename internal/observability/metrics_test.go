package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Second)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveLLMCall("text", "m", "ok", time.Second)
	m.ObserveImageTask("stored", time.Second)
	m.ObserveTransition("a", "b")
	m.ObserveRun("done", time.Second)
	m.ObserveRateLimited("/api/generate")
	m.SetDependencyUp("db", true)
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}

func TestMetricsCounts(t *testing.T) {
	m := NewMetrics(logger.Nop())
	m.ObserveImageTask("stored", time.Second)
	m.ObserveImageTask("stored", time.Second)
	m.ObserveImageTask("failed", time.Second)
	m.ObserveRun("done", 3*time.Second)
	m.ObserveTransition("pending", "text_received")
	m.ObserveLLMCall("image", "", "ok", time.Second)

	body := scrape(t, m)
	assert.Contains(t, body, `detailpage_pagegen_image_tasks_total{result="stored"} 2`)
	assert.Contains(t, body, `detailpage_pagegen_image_tasks_total{result="failed"} 1`)
	assert.Contains(t, body, `detailpage_pagegen_runs_total{outcome="done"} 1`)
	assert.Contains(t, body, `detailpage_llm_requests_total{model="unknown",op="image",status="ok"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsHandlerExposition(t *testing.T) {
	m := NewMetrics(logger.Nop())
	m.ObserveAPI("post", "/api/generate", "200", 2*time.Second)
	m.SetDependencyUp("postgres", true)

	body := scrape(t, m)
	assert.True(t, strings.Contains(body, `detailpage_http_requests_total{method="POST",route="/api/generate",status="200"} 1`), body)
	assert.Contains(t, body, `detailpage_dependency_up{name="postgres"} 1`)
}
