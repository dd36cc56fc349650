package metrics

import "github.com/prometheus/client_golang/prometheus"

// BackendMetrics exposes counters/histograms for calls to the clinic API.
type BackendMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	timelineCache   *prometheus.CounterVec
	supersededTotal *prometheus.CounterVec
}

func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	m := &BackendMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vet_agenda",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total calls to the clinic API",
		}, []string{"operation", "outcome"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vet_agenda",
			Subsystem: "backend",
			Name:      "request_latency_seconds",
			Help:      "Latency of clinic API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		timelineCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vet_agenda",
			Subsystem: "screen",
			Name:      "timeline_cache_total",
			Help:      "Timeline cache lookups by result",
		}, []string{"result"}),
		supersededTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vet_agenda",
			Subsystem: "form",
			Name:      "superseded_loads_total",
			Help:      "Dependent field loads canceled by a newer request",
		}, []string{"field"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.timelineCache, m.supersededTotal)
	return m
}

func (m *BackendMetrics) ObserveRequest(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
	m.requestLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BackendMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.timelineCache.WithLabelValues(result).Inc()
}

func (m *BackendMetrics) ObserveSuperseded(field string) {
	if m == nil {
		return
	}
	m.supersededTotal.WithLabelValues(field).Inc()
}
