/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-asyncrest/internal/libinfo"
)

const resultLabelSuccess = "success"

// MetricsCollector collects metrics of the request pipeline.
type MetricsCollector interface {
	// ObservePermitWait is called when a request got its permit.
	ObservePermitWait(wait time.Duration)

	// AddInFlight is called with +1 when a request gets a permit and with -1 when it releases it.
	AddInFlight(delta int)

	// AddUnprocessed is called with +1 when a request is submitted and with -1 when it's finished.
	AddUnprocessed(delta int)

	// IncResults is called once per finished request with "success" or the ErrorKind string.
	IncResults(result string)

	// IncPaced is called when a finished request was held for the pacing delay.
	IncPaced()
}

type disabledMetrics struct{}

func (disabledMetrics) ObservePermitWait(time.Duration) {}
func (disabledMetrics) AddInFlight(int)                 {}
func (disabledMetrics) AddUnprocessed(int)              {}
func (disabledMetrics) IncResults(string)               {}
func (disabledMetrics) IncPaced()                       {}

// PrometheusMetrics is a Prometheus implementation of MetricsCollector.
type PrometheusMetrics struct {
	InFlight    prometheus.Gauge
	Unprocessed prometheus.Gauge
	Results     *prometheus.CounterVec
	Paced       prometheus.Counter
	PermitWait  prometheus.Histogram
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
// constLabels may be used to tell metrics of different clients apart.
// The library version label is always added.
func NewPrometheusMetrics(namespace string, constLabels prometheus.Labels) *PrometheusMetrics {
	constLabels = libinfo.AddPrometheusLibVersionLabel(constLabels)
	return &PrometheusMetrics{
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "rest_client_in_flight_requests",
			Help:        "Number of requests holding a permit.",
			ConstLabels: constLabels,
		}),
		Unprocessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "rest_client_unprocessed_requests",
			Help:        "Number of submitted requests that are not finished yet.",
			ConstLabels: constLabels,
		}),
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rest_client_results_total",
			Help:        "Number of finished requests by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		Paced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rest_client_paced_total",
			Help:        "Number of requests that held their permit for the pacing delay.",
			ConstLabels: constLabels,
		}),
		PermitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "rest_client_permit_wait_seconds",
			Help:        "A histogram of time spent waiting for a permit.",
			Buckets:     []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}),
	}
}

// MustRegister registers the Prometheus metrics.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.InFlight, pm.Unprocessed, pm.Results, pm.Paced, pm.PermitWait)
}

// Unregister unregisters the Prometheus metrics.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.InFlight)
	prometheus.Unregister(pm.Unprocessed)
	prometheus.Unregister(pm.Results)
	prometheus.Unregister(pm.Paced)
	prometheus.Unregister(pm.PermitWait)
}

// ObservePermitWait is a part of MetricsCollector interface.
func (pm *PrometheusMetrics) ObservePermitWait(wait time.Duration) {
	pm.PermitWait.Observe(wait.Seconds())
}

// AddInFlight is a part of MetricsCollector interface.
func (pm *PrometheusMetrics) AddInFlight(delta int) {
	pm.InFlight.Add(float64(delta))
}

// AddUnprocessed is a part of MetricsCollector interface.
func (pm *PrometheusMetrics) AddUnprocessed(delta int) {
	pm.Unprocessed.Add(float64(delta))
}

// IncResults is a part of MetricsCollector interface.
func (pm *PrometheusMetrics) IncResults(result string) {
	pm.Results.WithLabelValues(result).Inc()
}

// IncPaced is a part of MetricsCollector interface.
func (pm *PrometheusMetrics) IncPaced() {
	pm.Paced.Inc()
}
