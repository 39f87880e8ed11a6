package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the liveness service.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	publishEventsTotal  *prometheus.CounterVec
	viewerActivityTotal prometheus.Counter
	scanCyclesTotal     prometheus.Counter
	scanErrorsTotal     prometheus.Counter
	scanDuration        prometheus.Histogram
	streamTransitions   *prometheus.CounterVec
	liveStreams         prometheus.Gauge
	knownStreams        prometheus.Gauge
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	publishEventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_publish_events_total",
		Help: "Publish callbacks received from the ingest server, by event",
	}, []string{"event"})
	viewerActivityTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_viewer_activity_total",
		Help: "Total number of playlist fetches served",
	})
	scanCyclesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_scan_cycles_total",
		Help: "Total number of playlist directory scans",
	})
	scanErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_scan_errors_total",
		Help: "Total number of scans skipped because the directory could not be read",
	})
	scanDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hls_scan_duration_seconds",
		Help:    "Time spent scanning the playlist directory",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
	streamTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_stream_transitions_total",
		Help: "Liveness transitions applied by directory scans, by transition",
	}, []string{"transition"})
	liveStreams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hls_live_streams",
		Help: "Number of streams currently marked live",
	})
	knownStreams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hls_known_streams",
		Help: "Number of streams the registry has ever observed",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		publishEventsTotal,
		viewerActivityTotal,
		scanCyclesTotal,
		scanErrorsTotal,
		scanDuration,
		streamTransitions,
		liveStreams,
		knownStreams,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		publishEventsTotal:  publishEventsTotal,
		viewerActivityTotal: viewerActivityTotal,
		scanCyclesTotal:     scanCyclesTotal,
		scanErrorsTotal:     scanErrorsTotal,
		scanDuration:        scanDuration,
		streamTransitions:   streamTransitions,
		liveStreams:         liveStreams,
		knownStreams:        knownStreams,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncPublishEvent counts a publish callback ("publish" or "publish_done").
func (m *Metrics) IncPublishEvent(event string) {
	m.publishEventsTotal.WithLabelValues(event).Inc()
}

// IncViewerActivity increments the playlist fetch counter.
func (m *Metrics) IncViewerActivity() {
	m.viewerActivityTotal.Inc()
}

// ObserveScan records one scan cycle. failed marks a cycle that could not
// read the directory.
func (m *Metrics) ObserveScan(d time.Duration, failed bool) {
	m.scanCyclesTotal.Inc()
	m.scanDuration.Observe(d.Seconds())
	if failed {
		m.scanErrorsTotal.Inc()
	}
}

// IncTransition counts a scan-driven liveness transition.
func (m *Metrics) IncTransition(transition string) {
	m.streamTransitions.WithLabelValues(transition).Inc()
}

// SetStreams sets the live and known stream gauges.
func (m *Metrics) SetStreams(live, known int) {
	m.liveStreams.Set(float64(live))
	m.knownStreams.Set(float64(known))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Registry exposes the underlying Prometheus registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
