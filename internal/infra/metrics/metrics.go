package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the relay's collectors and the registry they live in.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	upstreamErrors  *prometheus.CounterVec
	pdfSize         *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfrelay_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"path", "status_code"},
		),

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pdfrelay_request_duration_seconds",
				Help:    "Time taken to process requests",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"path"},
		),

		activeRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pdfrelay_active_requests",
				Help: "Number of requests currently being processed",
			},
		),

		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfrelay_upstream_errors_total",
				Help: "Failed calls to the converter or the object store",
			},
			[]string{"service"},
		),

		pdfSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pdfrelay_pdf_size_bytes",
				Help:    "Size of PDFs passing through the relay",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"source"},
		),
	}
}

func (m *Recorder) IncreaseActiveRequests() {
	m.activeRequests.Inc()
}

func (m *Recorder) DecreaseActiveRequests() {
	m.activeRequests.Dec()
}

func (m *Recorder) ObserveRequest(path string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

func (m *Recorder) IncreaseUpstreamError(service string) {
	m.upstreamErrors.WithLabelValues(service).Inc()
}

// ObservePDFSize records a document size; source is "client" or "converter".
func (m *Recorder) ObservePDFSize(source string, size int) {
	m.pdfSize.WithLabelValues(source).Observe(float64(size))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests and for registering extra collectors.
func (m *Recorder) Registry() *prometheus.Registry {
	return m.registry
}
