package http

import (
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rocicorp/datadog-util/metrics"
)

// responseWriter is a wrapper around http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records server-side request metrics into reg:
//
//	http_requests_in_flight   gauge, handlers currently executing
//	http_request_duration_ms  gauge, duration of the latest request
//	http_status               state, bucket of the latest status code
//
// It returns a function that takes an http.Handler and returns an
// http.Handler, suitable for use with frameworks like chi. A nil
// registry returns a no-op middleware.
func Middleware(reg *metrics.Registry) func(http.Handler) http.Handler {
	if reg == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	var inFlight int64
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.Gauge("http_requests_in_flight").Set(float64(atomic.AddInt64(&inFlight, 1)))
			defer func() {
				reg.Gauge("http_requests_in_flight").Set(float64(atomic.AddInt64(&inFlight, -1)))
			}()

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			duration := time.Since(start)

			reg.Gauge("http_request_duration_ms").Set(float64(duration) / float64(time.Millisecond))
			reg.State("http_status", false).Set(statusBucket(rw.statusCode))
		})
	}
}

// statusBucket maps a status code to its reporting bucket.
func statusBucket(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// NewMiddleware wraps handler with OpenTelemetry tracing so requests
// show up as server spans. Combined with the span exporter in this
// module, the span durations land in the metrics registry too.
func NewMiddleware(handler http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(handler, operation)
}
