package datadog

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/rocicorp/datadog-util/domain"
	"github.com/rocicorp/datadog-util/intake"
	"github.com/rocicorp/datadog-util/internal/adapters/otelfeed"
	"github.com/rocicorp/datadog-util/internal/application/runtimestats"
	"github.com/rocicorp/datadog-util/metrics"
	"github.com/rocicorp/datadog-util/reporter"
)

// Options configures an Agent. Only APIKey matters for real
// submissions; everything else has a workable default.
type Options struct {
	// APIKey authenticates against the intake.
	APIKey string

	// Endpoint overrides the intake URL. Empty means the Datadog
	// default.
	Endpoint string

	// Tags is attached to every emitted series, e.g. "service:api".
	Tags []string

	// ReportInterval is the period between submissions. Defaults to
	// reporter.DefaultInterval.
	ReportInterval time.Duration

	// Logger receives lifecycle and failure notifications. Nil keeps
	// the agent silent.
	Logger domain.Logger

	// HTTPClient executes intake requests. Nil means
	// http.DefaultClient.
	HTTPClient intake.Doer

	// RuntimeStats enables periodic sampling of Go runtime gauges.
	RuntimeStats         bool
	RuntimeStatsInterval time.Duration

	// Tracing installs a global OpenTelemetry tracer provider whose
	// finished spans feed the metrics registry.
	Tracing     bool
	ServiceName string
}

// Agent bundles a metrics registry, its periodic reporter, and the
// optional runtime and tracing feeds behind a single lifecycle.
type Agent struct {
	metrics *metrics.Registry
	rep     *reporter.Reporter
	log     domain.Logger

	stopRuntime func()
	tp          *sdktrace.TracerProvider
}

// New wires up an agent and starts reporting immediately. The context
// governs the reporter: cancelling it stops all future submissions.
func New(ctx context.Context, opts Options) (*Agent, error) {
	registry := metrics.NewRegistry(metrics.Config{Tags: opts.Tags})

	headers := map[string]string{}
	if opts.APIKey != "" {
		headers[intake.APIKeyHeader] = opts.APIKey
	}
	client := &intake.Client{
		Endpoint:   opts.Endpoint,
		Headers:    headers,
		HTTPClient: opts.HTTPClient,
	}

	rep, err := reporter.New(reporter.Config{
		Metrics:   registry,
		Submitter: client,
		Interval:  opts.ReportInterval,
		Logger:    opts.Logger,
		Context:   ctx,
	})
	if err != nil {
		return nil, err
	}

	agent := &Agent{metrics: registry, rep: rep, log: opts.Logger}

	if opts.RuntimeStats {
		agent.stopRuntime = runtimestats.Start(registry, opts.RuntimeStatsInterval)
	}

	if opts.Tracing {
		exporter, err := otelfeed.New(registry, "", opts.Logger)
		if err != nil {
			agent.stop()
			return nil, fmt.Errorf("creating span exporter: %w", err)
		}

		serviceName := opts.ServiceName
		if serviceName == "" {
			serviceName = "datadog-util"
		}
		res, err := newResource(serviceName, "1.0.0")
		if err != nil {
			agent.stop()
			return nil, fmt.Errorf("building tracer resource: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		agent.tp = tp
	}

	return agent, nil
}

// Metrics returns the agent's registry for direct use.
func (a *Agent) Metrics() *metrics.Registry {
	return a.metrics
}

// Gauge returns the gauge registered under name, creating it on first
// access.
func (a *Agent) Gauge(name string) *metrics.Gauge {
	return a.metrics.Gauge(name)
}

// State returns the state registered under name, creating it on first
// access.
func (a *Agent) State(name string, clearOnFlush bool) *metrics.State {
	return a.metrics.State(name, clearOnFlush)
}

// Report forces one flush-and-submit cycle outside the timer.
// Failures surface through the configured logger only.
func (a *Agent) Report(ctx context.Context) {
	a.rep.Report(ctx)
}

// Shutdown stops the periodic reporter and the optional feeds, then
// sends one final report with whatever is left. The tracer provider
// is shut down before that report so batched spans still make it into
// the registry. In-flight submissions are not awaited.
func (a *Agent) Shutdown(ctx context.Context) {
	a.stop()
	if a.tp != nil {
		if err := a.tp.Shutdown(ctx); err != nil {
			a.errorf("error shutting down tracer provider: %v", err)
		}
	}
	a.rep.Report(ctx)
}

func (a *Agent) stop() {
	if a.stopRuntime != nil {
		a.stopRuntime()
	}
	a.rep.Stop()
}

func (a *Agent) errorf(format string, args ...any) {
	if a.log != nil {
		a.log.Errorf(format, args...)
	}
}

func newResource(serviceName, serviceVersion string) (*resource.Resource, error) {
	// Schemaless so the merge never conflicts with the schema URL of
	// the SDK's default resource.
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
}
