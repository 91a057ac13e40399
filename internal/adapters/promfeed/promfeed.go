// Package promfeed drains a Prometheus gatherer into the metrics
// registry, so applications that already carry Prometheus
// instrumentation can ship their current values without double
// bookkeeping. Gauges, counters, and untyped metrics map to gauges;
// histograms and summaries have no distribution-point equivalent
// here and are skipped.
package promfeed

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rocicorp/datadog-util/metrics"
)

// Feeder copies the current value of every compatible metric from a
// Prometheus gatherer into a metrics registry.
type Feeder struct {
	// Gatherer supplies the Prometheus metric families. If nil,
	// prometheus.DefaultGatherer is used.
	Gatherer prometheus.Gatherer

	// Metrics receives the values. Required.
	Metrics *metrics.Registry

	// Prefix is prepended to every metric name.
	Prefix string
}

// Collect gathers once and records every gauge, counter, and untyped
// value. Labeled metrics are flattened by appending the label values
// to the family name in declaration order, so
// http_requests_total{code="200"} lands as http_requests_total_200.
func (f *Feeder) Collect() error {
	gatherer := f.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering prometheus metrics: %w", err)
	}

	for _, family := range families {
		for _, m := range family.GetMetric() {
			value, ok := metricValue(family.GetType(), m)
			if !ok {
				continue
			}
			f.Metrics.Gauge(f.Prefix + flatName(family.GetName(), m)).Set(value)
		}
	}
	return nil
}

func metricValue(typ dto.MetricType, m *dto.Metric) (float64, bool) {
	switch typ {
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), true
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), true
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue(), true
	default:
		return 0, false
	}
}

func flatName(name string, m *dto.Metric) string {
	for _, label := range m.GetLabel() {
		name += "_" + label.GetValue()
	}
	return name
}
