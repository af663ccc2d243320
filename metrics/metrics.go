// Package metrics registers the Prometheus collectors of the service:
//   - http_request_total, http_request_duration_seconds, http_request_in_flight
//     for every routed request;
//   - ocr_recognition_duration_seconds and ocr_recognition_errors_total per backend;
//   - extraction_fields_total by field and outcome;
//   - ocr_backend_up from the scheduled probe;
//   - rate_limiter_buckets_total for the per-client limiter.
//
// All collectors are registered with the default registry at init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	OCRDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocr_recognition_duration_seconds",
			Help:    "Time spent in the recognition backend per image",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 40, 80, 120},
		},
		[]string{"backend"},
	)

	OCRErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_recognition_errors_total",
			Help: "Failed recognitions by backend and reason",
		},
		[]string{"backend", "reason"},
	)

	FieldsExtractedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_fields_total",
			Help: "Extracted fields by name and outcome (found or empty)",
		},
		[]string{"field", "outcome"},
	)

	BackendUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ocr_backend_up",
			Help: "1 when the last probe of the recognition backend succeeded",
		},
		[]string{"backend"},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		OCRDuration,
		OCRErrorsTotal,
		FieldsExtractedTotal,
		BackendUp,
		RateLimiterBucketsTotal,
	)
}

// ObserveExtraction counts each field of a record as found or empty.
func ObserveExtraction(values map[string]string) {
	for field, v := range values {
		outcome := "found"
		if v == "" {
			outcome = "empty"
		}
		FieldsExtractedTotal.WithLabelValues(field, outcome).Inc()
	}
}

// SetBackendUp records a probe outcome.
func SetBackendUp(backend string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	BackendUp.WithLabelValues(backend).Set(v)
}
