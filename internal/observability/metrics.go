package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments for provisioning and speech.
// Each instance owns its registry, so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Downloads        *prometheus.CounterVec
	DownloadBytes    prometheus.Counter
	Provisions       *prometheus.CounterVec
	Syntheses        *prometheus.CounterVec
	SynthesisLatency prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Asset downloads by outcome.",
		}, []string{"outcome"}),
		DownloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written by successful downloads.",
		}),
		Provisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_total",
			Help:      "Binary and voice provisioning by where the asset came from.",
		}, []string{"component", "source"}),
		Syntheses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_total",
			Help:      "Speak requests by outcome.",
		}, []string{"outcome"}),
		SynthesisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_ms",
			Help:      "Time from text to finished playback in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 16000},
		}),
	}
}

// DownloadFinished records one finished download.
func (m *Metrics) DownloadFinished(outcome string, bytes int64) {
	m.Downloads.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		m.DownloadBytes.Add(float64(bytes))
	}
}

// Provisioned records where a binary or voice came from.
func (m *Metrics) Provisioned(component, source string) {
	m.Provisions.WithLabelValues(component, source).Inc()
}

// SynthesisFinished records one speak request.
func (m *Metrics) SynthesisFinished(outcome string, d time.Duration) {
	m.Syntheses.WithLabelValues(outcome).Inc()
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
