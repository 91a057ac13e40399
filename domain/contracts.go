package domain

import (
	"context"

	"github.com/rocicorp/datadog-util/domain/series"
)

// Flusher defines the contract for draining accumulated metrics.
// Flush returns the current state of every registered metric as
// submittable series and is safe for concurrent use.
type Flusher interface {
	Flush() []series.Series
}

// Submitter defines the contract for delivering flushed series to a
// metrics intake.
type Submitter interface {
	Submit(ctx context.Context, series []series.Series) error
}

// Logger is the optional logging capability callers may hand to
// components of this module. A nil Logger disables logging; callers of
// the interface must guard for that.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}
