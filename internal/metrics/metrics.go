package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	checkpointFailures *prometheus.CounterVec
	templateFetches    *prometheus.CounterVec
	resultsCommitted   prometheus.Counter
	summaryFailures    prometheus.Counter
	historyFallbacks   prometheus.Counter
	httpDuration       *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checkpointFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "in8_checkpoint_failures_total",
			Help: "Progress checkpoint writes that failed, by target store.",
		}, []string{"target"}),
		templateFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "in8_template_fetch_total",
			Help: "Template fetches by the source that served them.",
		}, []string{"source"}),
		resultsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "in8_results_committed_total",
			Help: "Survey results appended to history.",
		}),
		summaryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "in8_summary_update_failures_total",
			Help: "User summary updates that failed after the result was stored.",
		}),
		historyFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "in8_history_fallback_total",
			Help: "History queries served by the unindexed fallback.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "in8_http_request_duration_seconds",
			Help:    "HTTP request durations by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.checkpointFailures,
		m.templateFetches,
		m.resultsCommitted,
		m.summaryFailures,
		m.historyFallbacks,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) CheckpointFailed(target string) {
	if m == nil {
		return
	}
	m.checkpointFailures.WithLabelValues(target).Inc()
}

func (m *Metrics) TemplateServed(source string) {
	if m == nil {
		return
	}
	m.templateFetches.WithLabelValues(source).Inc()
}

func (m *Metrics) ResultCommitted() {
	if m == nil {
		return
	}
	m.resultsCommitted.Inc()
}

func (m *Metrics) SummaryUpdateFailed() {
	if m == nil {
		return
	}
	m.summaryFailures.Inc()
}

func (m *Metrics) HistoryFallback() {
	if m == nil {
		return
	}
	m.historyFallbacks.Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Middleware times every request under its mux route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpDuration.WithLabelValues(route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
