// Package metrics defines the Prometheus instrumentation for the receiver.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DeliveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hooksink_deliveries_total",
			Help: "Total number of webhook deliveries accepted and stored",
		},
	)

	DeliveriesRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hooksink_deliveries_rejected_total",
			Help: "Total number of deliveries rejected for an invalid signature",
		},
	)

	DecodeFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hooksink_decode_fallbacks_total",
			Help: "Total number of stored deliveries whose payload failed to decode",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hooksink_ingest_duration_seconds",
			Help:    "Duration of delivery ingestion (verify, decode, store)",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the default registry. Call once at
// startup.
func Register() {
	prometheus.MustRegister(DeliveriesTotal)
	prometheus.MustRegister(DeliveriesRejectedTotal)
	prometheus.MustRegister(DecodeFallbacksTotal)
	prometheus.MustRegister(IngestDuration)
}
