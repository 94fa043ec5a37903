package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument tags every response with a request id and records its duration
// under the matched route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// the mux fills in Pattern on the same request while routing
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		duration := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(
			pattern,
			r.Method,
			strconv.Itoa(rec.status),
		).Observe(duration.Seconds())

		logger.Debug.Printf("[%s] %s %s %d %s", requestID, r.Method, r.URL.Path, rec.status, duration)
	})
}
