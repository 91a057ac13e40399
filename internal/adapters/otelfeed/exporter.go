package otelfeed

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocicorp/datadog-util/domain"
	"github.com/rocicorp/datadog-util/metrics"
)

// Exporter turns finished spans into gauges and states on a metrics
// registry, so trace timings ride the same reporting pipeline as
// hand-set metrics.
//
// Server spans become span_<name>_duration_ms gauges. Client spans
// that talk to a database become db_query_duration_ms. A span that
// ended in an error flips the span_error state to the span's name;
// the state clears itself after one report.
//
// It implements the OpenTelemetry SpanExporter interface.
var _ sdktrace.SpanExporter = (*Exporter)(nil)

type Exporter struct {
	reg    *metrics.Registry
	prefix string
	log    domain.Logger
}

// New creates an exporter recording into reg. Every metric name is
// prefixed with prefix. A nil logger keeps the exporter silent.
func New(reg *metrics.Registry, prefix string, logger domain.Logger) (*Exporter, error) {
	if reg == nil {
		return nil, errors.New("otelfeed: registry is required")
	}
	return &Exporter{reg: reg, prefix: prefix, log: logger}, nil
}

func (e *Exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		switch span.SpanKind() {
		case trace.SpanKindServer:
			e.processServerSpan(span)
		case trace.SpanKindClient:
			e.processClientSpan(span)
		}
	}
	return nil
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	e.debugf("span exporter shut down")
	return nil
}

func (e *Exporter) processServerSpan(span sdktrace.ReadOnlySpan) {
	duration := span.EndTime().Sub(span.StartTime())
	name := metricName(span.Name())

	e.reg.Gauge(e.prefix + "span_" + name + "_duration_ms").Set(durationMillis(duration))
	if span.Status().Code == codes.Error {
		e.reg.State(e.prefix+"span_error", true).Set(name)
	}
	e.debugf("recorded server span %s (%s)", name, duration)
}

func (e *Exporter) processClientSpan(span sdktrace.ReadOnlySpan) {
	duration := span.EndTime().Sub(span.StartTime())

	for _, attr := range span.Attributes() {
		if attr.Key == semconv.DBSystemKey {
			e.reg.Gauge(e.prefix + "db_query_duration_ms").Set(durationMillis(duration))
			e.debugf("recorded db client span %s (%s)", span.Name(), duration)
			break
		}
	}
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var nonMetricChars = regexp.MustCompile(`[^a-z0-9]+`)

// metricName turns a span name like "GET /api/users" into a safe
// metric name component like "get_api_users".
func metricName(name string) string {
	s := strings.Trim(nonMetricChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if s == "" {
		return "unknown"
	}
	return s
}

func (e *Exporter) debugf(format string, args ...any) {
	if e.log != nil {
		e.log.Debugf(format, args...)
	}
}
