package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submissions     *prometheus.CounterVec
	ServiceErrors   prometheus.Counter
	RequestSeconds  prometheus.Histogram
	InFlight        prometheus.Gauge
	PointSelections *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Submissions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_submissions_total",
			Help: "Total number of prediction submissions by outcome.",
		}, []string{"outcome"}),
		ServiceErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "prediction_service_errors_total",
			Help: "Total number of errors received from the estimation service API.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_request_duration_seconds",
			Help:    "Duration of requests to the estimation service API.",
			Buckets: prometheus.DefBuckets,
		}),
		InFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "prediction_requests_in_flight",
			Help: "Current number of in-flight prediction requests (0 or 1).",
		}),
		PointSelections: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "location_selections_total",
			Help: "Total number of accepted map point selections by role.",
		}, []string{"role"}),
	}
}
