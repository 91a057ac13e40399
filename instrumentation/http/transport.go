package http

import (
	"net/http"
	"time"

	"github.com/rocicorp/datadog-util/metrics"
)

// Transport is an http.RoundTripper that measures outgoing requests
// and records them as client-side metrics:
//
//	http_client_request_duration_ms  gauge, duration of the latest call
//	http_client_status               state, bucket of the latest status
type Transport struct {
	// Base is the underlying RoundTripper to execute the request.
	// If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	reg *metrics.Registry
}

// NewTransport creates a Transport recording into reg.
func NewTransport(base http.RoundTripper, reg *metrics.Registry) *Transport {
	return &Transport{Base: base, reg: reg}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the request `req`.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)

	duration := time.Since(start)

	// Without a response there is no status to record.
	if err != nil {
		return nil, err
	}

	t.reg.Gauge("http_client_request_duration_ms").Set(float64(duration) / float64(time.Millisecond))
	t.reg.State("http_client_status", false).Set(statusBucket(resp.StatusCode))

	return resp, nil
}
