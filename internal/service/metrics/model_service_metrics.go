package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ModelServiceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "salescast",
			Subsystem: "model_service",
			Name:      "latency_seconds",
			Help:      "Latency of model service calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ModelServiceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salescast",
			Subsystem: "model_service",
			Name:      "errors_total",
			Help:      "Errors by model service endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ModelServiceLatency, ModelServiceErrors)
	})
}
