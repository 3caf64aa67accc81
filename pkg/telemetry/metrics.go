// Package telemetry holds the bridge's Prometheus collectors and its
// OpenTelemetry tracer setup.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "termmarkup"

// Metrics are the bridge collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive   prometheus.Gauge
	sessionsTotal    *prometheus.CounterVec
	rejected         prometheus.Counter
	framesSent       prometheus.Counter
	frameBytes       *prometheus.CounterVec
	encodeDuration   prometheus.Histogram
	encodeErrors     prometheus.Counter
	inputBytes       prometheus.Counter
	processOutputLen prometheus.Histogram
}

// NewMetrics registers the bridge collectors on a fresh registry, plus the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected websocket sessions (0 or 1).",
		}),
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions ended, by end reason.",
		}, []string{"reason"}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Websocket connections refused because a session was active.",
		}),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Background and foreground frame pairs sent to the renderer.",
		}),
		frameBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_bytes_total",
			Help:      "Bytes of encoded markup sent, by layer.",
		}, []string{"layer"}),
		encodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Time spent encoding the screen into markup.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		encodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encode_errors_total",
			Help:      "Screens that could not be encoded.",
		}),
		inputBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_bytes_total",
			Help:      "Bytes forwarded from the renderer to the program.",
		}),
		processOutputLen: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_output_chunk_bytes",
			Help:      "Size of each chunk read from the program.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 7),
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SessionStarted marks a session as active.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionEnded marks a session as finished for reason.
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
	m.sessionsTotal.WithLabelValues(reason).Inc()
}

// ConnectionRejected counts a refused connection.
func (m *Metrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

// FrameSent records one B/F pair.
func (m *Metrics) FrameSent(backgroundBytes, foregroundBytes int) {
	if m == nil {
		return
	}
	m.framesSent.Inc()
	m.frameBytes.WithLabelValues("background").Add(float64(backgroundBytes))
	m.frameBytes.WithLabelValues("foreground").Add(float64(foregroundBytes))
}

// ObserveEncode records an encode call and whether it failed.
func (m *Metrics) ObserveEncode(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.encodeDuration.Observe(d.Seconds())
	if err != nil {
		m.encodeErrors.Inc()
	}
}

// InputForwarded counts bytes written to the program.
func (m *Metrics) InputForwarded(n int) {
	if m == nil {
		return
	}
	m.inputBytes.Add(float64(n))
}

// OutputRead records the size of a chunk read from the program.
func (m *Metrics) OutputRead(n int) {
	if m == nil {
		return
	}
	m.processOutputLen.Observe(float64(n))
}
