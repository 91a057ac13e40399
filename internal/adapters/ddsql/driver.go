// Package ddsql wraps database/sql drivers so every executed
// statement lands in the metrics registry: a db_query_duration_ms
// gauge and a db_last_op state. It is the direct recording path for
// callers that do not run a tracer provider; the OpenTelemetry route
// lives in instrumentation/sql.
package ddsql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"time"

	"github.com/rocicorp/datadog-util/metrics"
)

// ---------------- Driver registration ----------------

var (
	driversMu sync.Mutex
	drivers   = make(map[string]driver.Driver)
)

// Register wraps the provided driver with metric recording and
// registers it in database/sql under the given name. Typical usage:
//
//	import "github.com/mattn/go-sqlite3"
//	ddsql.Register("sqlite3-dd", &sqlite3.SQLiteDriver{}, registry)
//	db, _ := sql.Open("sqlite3-dd", dsn)
//
// Panics if the driver or registry is nil or the name is already
// taken.
func Register(name string, d driver.Driver, reg *metrics.Registry) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if d == nil {
		panic("ddsql: Register driver is nil")
	}
	if reg == nil {
		panic("ddsql: Register registry is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("ddsql: Register called twice for driver " + name)
	}

	drivers[name] = d
	sql.Register(name, &meteredDriver{real: d, reg: reg})
}

func record(reg *metrics.Registry, op string, d time.Duration) {
	reg.Gauge("db_query_duration_ms").Set(float64(d) / float64(time.Millisecond))
	reg.State("db_last_op", false).Set(op)
}

// ---------------- Driver wrappers ----------------

type meteredDriver struct {
	real driver.Driver
	reg  *metrics.Registry
}

func (d *meteredDriver) Open(name string) (driver.Conn, error) {
	conn, err := d.real.Open(name)
	if err != nil {
		return nil, err
	}
	return &meteredConn{real: conn, reg: d.reg}, nil
}

type meteredConn struct {
	real driver.Conn
	reg  *metrics.Registry
}

func (c *meteredConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.real.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &meteredStmt{real: stmt, reg: c.reg}, nil
}

func (c *meteredConn) Close() error              { return c.real.Close() }
func (c *meteredConn) Begin() (driver.Tx, error) { return c.real.Begin() }

// Context-aware exec/query
func (c *meteredConn) QueryContext(ctx context.Context, q string, a []driver.NamedValue) (driver.Rows, error) {
	if qx, ok := c.real.(driver.QueryerContext); ok {
		start := time.Now()
		rows, err := qx.QueryContext(ctx, q, a)
		record(c.reg, "query", time.Since(start))
		return rows, err
	}
	return nil, driver.ErrSkip
}

func (c *meteredConn) ExecContext(ctx context.Context, q string, a []driver.NamedValue) (driver.Result, error) {
	if ex, ok := c.real.(driver.ExecerContext); ok {
		start := time.Now()
		res, err := ex.ExecContext(ctx, q, a)
		record(c.reg, "exec", time.Since(start))
		return res, err
	}
	return nil, driver.ErrSkip
}

type meteredStmt struct {
	real driver.Stmt
	reg  *metrics.Registry
}

func (s *meteredStmt) Close() error  { return s.real.Close() }
func (s *meteredStmt) NumInput() int { return s.real.NumInput() }

func (s *meteredStmt) Exec(args []driver.Value) (driver.Result, error) {
	start := time.Now()
	res, err := s.real.Exec(args)
	record(s.reg, "exec", time.Since(start))
	return res, err
}

func (s *meteredStmt) Query(args []driver.Value) (driver.Rows, error) {
	start := time.Now()
	rows, err := s.real.Query(args)
	record(s.reg, "query", time.Since(start))
	return rows, err
}

func (s *meteredStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if ex, ok := s.real.(driver.StmtExecContext); ok {
		start := time.Now()
		res, err := ex.ExecContext(ctx, args)
		record(s.reg, "exec", time.Since(start))
		return res, err
	}
	return s.Exec(namedValueToValue(args))
}

func (s *meteredStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if qx, ok := s.real.(driver.StmtQueryContext); ok {
		start := time.Now()
		rows, err := qx.QueryContext(ctx, args)
		record(s.reg, "query", time.Since(start))
		return rows, err
	}
	return s.Query(namedValueToValue(args))
}

func namedValueToValue(named []driver.NamedValue) []driver.Value {
	vs := make([]driver.Value, len(named))
	for i, nv := range named {
		vs[i] = nv.Value
	}
	return vs
}
