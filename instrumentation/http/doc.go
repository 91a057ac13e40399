// Package http instruments HTTP servers and clients with request
// metrics. It provides a server middleware recording in-flight,
// duration, and status-bucket metrics, an OpenTelemetry tracing
// wrapper, and a transport wrapper for HTTP clients.
//
// The package is designed to work with the standard library's net/http
// package; import it under a name like ddhttp to avoid shadowing.
package http
