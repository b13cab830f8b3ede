package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

const namespace = "detailpage"

// Metrics owns a private registry. Every method is safe on a nil receiver so
// callers never have to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec

	imageTasks    *prometheus.CounterVec
	imageLatency  prometheus.Histogram
	runOutcomes   *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runTransition *prometheus.CounterVec

	rateLimited *prometheus.CounterVec
	dependency  *prometheus.GaugeVec
}

func NewMetrics(log *logger.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "requests_total",
			Help: "Model provider calls by operation, model and status.",
		}, []string{"op", "model", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "llm", Name: "request_duration_seconds",
			Help:    "Model provider call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 90},
		}, []string{"op", "model"}),
		imageTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pagegen", Name: "image_tasks_total",
			Help: "Settled image tasks by result.",
		}, []string{"result"}),
		imageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pagegen", Name: "image_task_duration_seconds",
			Help:    "Time from task start to settle, including upload.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 90},
		}),
		runOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pagegen", Name: "runs_total",
			Help: "Generation runs by terminal state.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pagegen", Name: "run_duration_seconds",
			Help:    "Generation run latency by terminal state.",
			Buckets: []float64{1, 5, 10, 20, 40, 60, 90, 120, 180},
		}, []string{"outcome"}),
		runTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pagegen", Name: "state_transitions_total",
			Help: "Run state transitions.",
		}, []string{"from", "to"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the per-user limiter.",
		}, []string{"route"}),
		dependency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dependency_up",
			Help: "1 when the last readiness probe of a dependency succeeded.",
		}, []string{"name"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency,
		m.imageTasks, m.imageLatency,
		m.runOutcomes, m.runDuration, m.runTransition,
		m.rateLimited, m.dependency,
	)
	if log != nil {
		log.Info("metrics registry initialized")
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format. A nil
// Metrics serves an empty registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orUnknown(strings.ToUpper(method))
	route = orUnknown(route)
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMCall(op, model, status string, dur time.Duration) {
	if m == nil {
		return
	}
	op, model = orUnknown(op), orUnknown(model)
	m.llmRequests.WithLabelValues(op, model, orUnknown(status)).Inc()
	m.llmLatency.WithLabelValues(op, model).Observe(dur.Seconds())
}

func (m *Metrics) ObserveImageTask(result string, dur time.Duration) {
	if m == nil {
		return
	}
	m.imageTasks.WithLabelValues(orUnknown(result)).Inc()
	m.imageLatency.Observe(dur.Seconds())
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.runTransition.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

func (m *Metrics) ObserveRun(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	outcome = orUnknown(outcome)
	m.runOutcomes.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(dur.Seconds())
}

func (m *Metrics) ObserveRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(orUnknown(route)).Inc()
}

func (m *Metrics) SetDependencyUp(name string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.dependency.WithLabelValues(orUnknown(name)).Set(v)
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
