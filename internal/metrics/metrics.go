// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReviewSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_submissions_total",
			Help: "Review submissions by outcome",
		},
		[]string{"outcome"},
	)

	ReviewCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_cancellations_total",
			Help: "Review cancellations by outcome",
		},
		[]string{"outcome"},
	)

	RatingHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_rating",
			Help:    "Distribution of submitted ratings",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		},
		[]string{"dimension"},
	)

	CourseImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_import_rows_total",
			Help: "Spreadsheet rows processed by the course importer",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
