// Package reporter drives the periodic flush-and-submit cycle: on a
// fixed interval it drains a metrics registry and hands the result to
// a submitter. Empty flushes are skipped, submission failures are
// logged and swallowed, and cancellation stops future ticks without
// touching work already in flight.
package reporter
