// Package otelfeed bridges OpenTelemetry tracing into the metrics
// registry. Installed as a span exporter on a tracer provider, it
// converts finished server and database client spans into duration
// gauges and error states, which the periodic reporter then ships
// with everything else.
package otelfeed
