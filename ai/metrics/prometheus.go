// Package metrics provides Prometheus metrics export for the tutor pipeline.
package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/polyglot/ai/memory"
	"github.com/hrygo/polyglot/ai/pedagogy"
)

const namespace = "polyglot"

// CacheStatsSource reports session memory cache statistics.
type CacheStatsSource interface {
	GetCacheStats() memory.CacheStats
}

// PedagogyStatsSource reports pedagogy engine statistics.
type PedagogyStatsSource interface {
	Snapshot() pedagogy.StatsSnapshot
}

// PrometheusExporter exports tutor metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Turn metrics
	turnLatency  *prometheus.HistogramVec
	turnRequests *prometheus.CounterVec
	activeTurns  prometheus.Gauge

	// LLM metrics
	llmTokensUsed *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	llmErrors     *prometheus.CounterVec

	// Store metrics
	storeErrors *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.turnLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tutor",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end tutor turn latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"mode"},
	)

	e.turnRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tutor",
			Name:      "turns_total",
			Help:      "Total number of processed tutor turns",
		},
		[]string{"mode", "status"},
	)

	e.activeTurns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tutor",
			Name:      "turns_in_flight",
			Help:      "Number of turns currently being processed",
		},
	)

	e.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"model", "token_type"},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "LLM request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model", "purpose"},
	)

	e.llmErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "errors_total",
			Help:      "Total number of failed LLM calls",
		},
		[]string{"model", "purpose"},
	)

	e.storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total number of failed store operations",
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		e.turnLatency,
		e.turnRequests,
		e.activeTurns,
		e.llmTokensUsed,
		e.llmLatency,
		e.llmErrors,
		e.storeErrors,
	)

	return e
}

// RegisterCacheStats exposes session memory statistics, read at scrape time.
func (e *PrometheusExporter) RegisterCacheStats(src CacheStatsSource) {
	gauge := func(name, help string, value func(memory.CacheStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(src.GetCacheStats()) })
	}
	counter := func(name, help string, value func(memory.CacheStats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(src.GetCacheStats()) })
	}

	e.registry.MustRegister(
		gauge("cached_sessions", "Sessions currently held in the cache",
			func(s memory.CacheStats) float64 { return float64(s.CachedSessions) }),
		gauge("cached_messages", "Messages currently held in the cache",
			func(s memory.CacheStats) float64 { return float64(s.TotalCachedMessages) }),
		gauge("capacity_sessions", "Maximum number of cached sessions",
			func(s memory.CacheStats) float64 { return float64(s.Capacity) }),
		counter("cache_hits_total", "Session cache hits",
			func(s memory.CacheStats) float64 { return float64(s.Hits) }),
		counter("cache_misses_total", "Session cache misses",
			func(s memory.CacheStats) float64 { return float64(s.Misses) }),
		counter("overflow_persisted_total", "Messages handed to the store on overflow",
			func(s memory.CacheStats) float64 { return float64(s.OverflowPersistedCount) }),
		counter("session_evictions_total", "Sessions evicted from the cache",
			func(s memory.CacheStats) float64 { return float64(s.SessionEvictions) }),
	)
}

// RegisterPedagogyStats exposes pedagogy engine statistics, read at scrape time.
func (e *PrometheusExporter) RegisterPedagogyStats(src PedagogyStatsSource) {
	counter := func(name, help string, value func(pedagogy.StatsSnapshot) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pedagogy",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(src.Snapshot()) })
	}

	e.registry.MustRegister(
		counter("messages_processed_total", "Tutor responses run through the engine",
			func(s pedagogy.StatsSnapshot) float64 { return float64(s.MessagesProcessed) }),
		counter("corrections_selected_total", "Corrections surfaced to learners",
			func(s pedagogy.StatsSnapshot) float64 { return float64(s.CorrectionsSelected) }),
		counter("exercises_generated_total", "Micro-exercises scheduled",
			func(s pedagogy.StatsSnapshot) float64 { return float64(s.ExercisesGenerated) }),
		counter("feedback_generated_total", "Structured feedback reports produced",
			func(s pedagogy.StatsSnapshot) float64 { return float64(s.FeedbackGenerated) }),
	)
}

// RecordTurn records a processed tutor turn.
func (e *PrometheusExporter) RecordTurn(mode string, latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	e.turnRequests.WithLabelValues(mode, status).Inc()
	e.turnLatency.WithLabelValues(mode).Observe(latency.Seconds())
}

// TurnStarted marks a turn in flight; call the returned func when it ends.
func (e *PrometheusExporter) TurnStarted() func() {
	e.activeTurns.Inc()
	return e.activeTurns.Dec
}

// RecordLLMCall records the latency and token usage of a model call.
func (e *PrometheusExporter) RecordLLMCall(model, purpose string, latency time.Duration, promptTokens, completionTokens int) {
	e.llmLatency.WithLabelValues(model, purpose).Observe(latency.Seconds())
	if promptTokens > 0 {
		e.llmTokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		e.llmTokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordLLMError records a failed model call.
func (e *PrometheusExporter) RecordLLMError(model, purpose string) {
	e.llmErrors.WithLabelValues(model, purpose).Inc()
}

// RecordStoreError records a failed store operation.
func (e *PrometheusExporter) RecordStoreError(operation string) {
	e.storeErrors.WithLabelValues(operation).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// Registry returns the Prometheus registry.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}

// ExportText renders counters and gauges in a compact text form for CLI output.
func (e *PrometheusExporter) ExportText() (string, error) {
	var sb strings.Builder

	families, err := e.registry.Gather()
	if err != nil {
		return "", err
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}

			sb.WriteString(mf.GetName())
			if len(m.GetLabel()) > 0 {
				labels := make([]string, 0, len(m.GetLabel()))
				for _, label := range m.GetLabel() {
					labels = append(labels, label.GetName()+"=\""+label.GetValue()+"\"")
				}
				sort.Strings(labels)
				sb.WriteString("{" + strings.Join(labels, ",") + "}")
			}
			sb.WriteString(" ")
			sb.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
