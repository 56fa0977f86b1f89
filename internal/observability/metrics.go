package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each instance
// owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry
	latency  *latencyWindow

	GenerationTiers    *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	ProviderErrors     *prometheus.CounterVec
	ProviderLatency    *prometheus.HistogramVec
	VoiceCacheLookups  *prometheus.CounterVec
	NarrationBytes     *prometheus.CounterVec
	SessionSaves       *prometheus.CounterVec
	StoredSessions     prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		latency:  newLatencyWindow(256),
		GenerationTiers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tier_total",
			Help:      "Generated passages by the fallback tier that produced them.",
		}, []string{"tier"}),
		GenerationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Failed generation attempts by tier and failure kind.",
		}, []string{"tier", "failure"}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_ms",
			Help:      "Outbound provider call latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000},
		}, []string{"provider", "op"}),
		VoiceCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_cache_lookups_total",
			Help:      "Voice catalog lookups by result (hit, miss, error).",
		}, []string{"result"}),
		NarrationBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narration_bytes_total",
			Help:      "Audio bytes relayed to clients by transport mode.",
		}, []string{"mode"}),
		SessionSaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_saves_total",
			Help:      "Session save attempts by result.",
		}, []string{"result"}),
		StoredSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_sessions",
			Help:      "Number of sessions held in memory.",
		}),
	}
}

// ObserveProviderCall records latency both in Prometheus and in the rolling
// window served by /v1/perf/latency.
func (m *Metrics) ObserveProviderCall(provider, op string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Milliseconds())
	m.ProviderLatency.WithLabelValues(provider, op).Observe(ms)
	m.latency.Observe(provider+"_"+op, ms)
}

func (m *Metrics) SnapshotLatency() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.latency.Snapshot()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
