package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	forecastSteps *prometheus.CounterVec
	clipsTotal    *prometheus.CounterVec
	lastForecast  *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salescast_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "platform"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salescast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		forecastSteps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salescast_forecast_steps_total",
				Help: "Total number of recursive forecast steps executed",
			},
			[]string{"platform", "model"},
		),
		clipsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salescast_forecast_clips_total",
				Help: "Predictions clipped at the historical maximum",
			},
			[]string{"platform", "model"},
		),
		lastForecast: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "salescast_last_forecast_value",
				Help: "Final step value of the latest forecast run",
			},
			[]string{"platform", "model"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salescast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, platform string) {
	r.messagesSent.WithLabelValues(backend, platform).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordForecastStep records one completed recursive step.
func (r *Recorder) RecordForecastStep(platform, model string) {
	r.forecastSteps.WithLabelValues(platform, model).Inc()
}

// RecordClip records a prediction clipped at the historical maximum.
func (r *Recorder) RecordClip(platform, model string) {
	r.clipsTotal.WithLabelValues(platform, model).Inc()
}

// RecordLastForecast records the final value of a completed run.
func (r *Recorder) RecordLastForecast(platform, model string, value float64) {
	r.lastForecast.WithLabelValues(platform, model).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
