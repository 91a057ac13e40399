// Package intake submits flushed series to the Datadog
// distribution-points API over HTTP. It exposes both a low-level Post
// function that returns the raw response for inspection and a Client
// that satisfies the domain.Submitter contract for use with the
// periodic reporter.
//
// The transport is injectable through the Doer interface, so tests
// and callers with custom HTTP stacks never touch the network.
package intake
