// Package sql instruments database access in two flavors: Open routes
// queries through OpenTelemetry client spans (which the span exporter
// turns into db_query_duration_ms), while Register wraps a driver
// with direct metric recording for callers that do not run a tracer
// provider.
//
// The package shadows database/sql by name; import it under a name
// like ddsql to keep call sites readable.
package sql

import (
	"database/sql"
	"database/sql/driver"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rocicorp/datadog-util/internal/adapters/ddsql"
	"github.com/rocicorp/datadog-util/metrics"
)

// Open opens a database whose queries are traced as client spans.
// Optional attributes are attached to every span.
func Open(driverName, dataSourceName string, attrs ...attribute.KeyValue) (*sql.DB, error) {
	db, err := otelsql.Open(driverName, dataSourceName, otelsql.WithAttributes(attrs...))
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Register wraps d with direct metric recording and registers it in
// database/sql under name. Panics if the driver or registry is nil or
// the name is already taken.
func Register(name string, d driver.Driver, reg *metrics.Registry) {
	ddsql.Register(name, d, reg)
}
