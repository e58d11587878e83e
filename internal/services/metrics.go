package services

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics keeps in-process counters for the JSON snapshot and mirrors them
// into Prometheus collectors on a private registry.
type Metrics struct {
	totalDetections   atomic.Int64
	totalErrors       atomic.Int64
	totalLatency      atomic.Int64
	lastDetectionTime atomic.Int64

	wsConnections atomic.Int64
	wsMessages    atomic.Int64
	wsErrors      atomic.Int64

	started time.Time

	registry   *prometheus.Registry
	detections *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	wsGauge    prometheus.Gauge
	wsCounter  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		started:  time.Now(),
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emotion_detections_total",
			Help: "Completed detections by modality and resulting emotion.",
		}, []string{"modality", "emotion"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emotion_detection_errors_total",
			Help: "Failed detections by modality.",
		}, []string{"modality"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emotion_detection_latency_seconds",
			Help:    "Detection latency by modality.",
			Buckets: prometheus.DefBuckets,
		}, []string{"modality"}),
		wsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "emotion_ws_connections",
			Help: "Open websocket connections.",
		}),
		wsCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "emotion_ws_messages_total",
			Help: "Websocket messages received.",
		}),
	}
	m.registry.MustRegister(
		m.detections, m.errors, m.latency, m.wsGauge, m.wsCounter,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordDetection(modality, emotion string, d time.Duration) {
	m.totalDetections.Add(1)
	m.totalLatency.Add(d.Milliseconds())
	m.lastDetectionTime.Store(time.Now().Unix())
	m.detections.WithLabelValues(modality, emotion).Inc()
	m.latency.WithLabelValues(modality).Observe(d.Seconds())
}

func (m *Metrics) RecordError(modality string) {
	m.totalErrors.Add(1)
	m.errors.WithLabelValues(modality).Inc()
}

func (m *Metrics) GetTotalDetections() int64 {
	return m.totalDetections.Load()
}

func (m *Metrics) GetTotalErrors() int64 {
	return m.totalErrors.Load()
}

func (m *Metrics) GetAvgLatency() float64 {
	n := m.totalDetections.Load()
	if n == 0 {
		return 0
	}
	return float64(m.totalLatency.Load()) / float64(n)
}

func (m *Metrics) GetLastDetectionTime() int64 {
	return m.lastDetectionTime.Load()
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.started)
}

func (m *Metrics) IncrementWebSocketConnections() {
	m.wsConnections.Add(1)
	m.wsGauge.Inc()
}

func (m *Metrics) DecrementWebSocketConnections() {
	m.wsConnections.Add(-1)
	m.wsGauge.Dec()
}

func (m *Metrics) GetWebSocketConnections() int64 {
	return m.wsConnections.Load()
}

func (m *Metrics) IncrementWebSocketMessages() {
	m.wsMessages.Add(1)
	m.wsCounter.Inc()
}

func (m *Metrics) IncrementWebSocketErrors() {
	m.wsErrors.Add(1)
}

// Snapshot returns the counters for the JSON metrics endpoint.
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"total_detections":  m.totalDetections.Load(),
		"total_errors":      m.totalErrors.Load(),
		"avg_latency_ms":    m.GetAvgLatency(),
		"last_detection":    m.lastDetectionTime.Load(),
		"system_uptime_sec": int64(m.Uptime().Seconds()),
		"websocket": map[string]interface{}{
			"connections": m.wsConnections.Load(),
			"messages":    m.wsMessages.Load(),
			"errors":      m.wsErrors.Load(),
		},
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
