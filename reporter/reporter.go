package reporter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rocicorp/datadog-util/domain"
)

// DefaultInterval is how often metrics are flushed and submitted when
// no interval is configured.
const DefaultInterval = 2 * time.Minute

// Config carries the construction options for a Reporter.
type Config struct {
	// Metrics is the registry drained on every tick. Required.
	Metrics domain.Flusher

	// Submitter delivers the flushed series. Required.
	Submitter domain.Submitter

	// Interval between reports. Defaults to DefaultInterval.
	Interval time.Duration

	// Logger receives lifecycle and failure notifications. A nil
	// logger keeps the reporter silent.
	Logger domain.Logger

	// Context stops the reporter when cancelled. The reporter only
	// subscribes to it and never cancels submissions already in
	// flight. Defaults to context.Background().
	Context context.Context
}

// Reporter periodically flushes a metrics registry and submits the
// result. The timer starts at construction and fires at a fixed
// period so client-side reporting windows stay aligned with the
// backend's rollup windows; a slow submission never delays the next
// tick.
type Reporter struct {
	metrics   domain.Flusher
	submitter domain.Submitter
	interval  time.Duration
	log       domain.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a reporter and starts its timer. If the supplied
// context is already cancelled the timer is never armed and the
// reporter is returned already stopped.
func New(cfg Config) (*Reporter, error) {
	if cfg.Metrics == nil {
		return nil, errors.New("reporter: Metrics is required")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("reporter: Submitter is required")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	r := &Reporter{
		metrics:   cfg.Metrics,
		submitter: cfg.Submitter,
		interval:  interval,
		log:       cfg.Logger,
		done:      make(chan struct{}),
	}

	if ctx.Err() != nil {
		r.Stop()
		r.debugf("reporting cancelled before start: %v", ctx.Err())
		return r, nil
	}

	go r.run(ctx)
	return r, nil
}

func (r *Reporter) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.debugf("reporting every %v", r.interval)
	for {
		select {
		case <-ticker.C:
			// Each report runs on its own goroutine so the period
			// stays fixed. Overlapping submissions are accepted
			// rather than serialized.
			go r.Report(ctx)
		case <-ctx.Done():
			r.debugf("reporting stopped: %v", ctx.Err())
			return
		case <-r.done:
			r.debugf("reporting stopped")
			return
		}
	}
}

// Stop halts the timer. It is idempotent and safe for concurrent use.
// Submissions already in flight are not awaited or aborted.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// Report flushes the registry once and submits the result. The timer
// calls it on every tick; callers may also invoke it directly for a
// forced flush. When the flush is empty no request is made at all.
// Submission failures are logged and swallowed, never returned:
// metrics reporting must not affect the host application's control
// flow, and a failed cycle must not stop future ones.
func (r *Reporter) Report(ctx context.Context) {
	flushed := r.metrics.Flush()
	if len(flushed) == 0 {
		r.debugf("no series to report")
		return
	}
	if err := r.submitter.Submit(ctx, flushed); err != nil {
		r.errorf("error reporting %d series: %v", len(flushed), err)
		return
	}
	r.debugf("reported %d series", len(flushed))
}

func (r *Reporter) debugf(format string, args ...any) {
	if r.log != nil {
		r.log.Debugf(format, args...)
	}
}

func (r *Reporter) errorf(format string, args ...any) {
	if r.log != nil {
		r.log.Errorf(format, args...)
	}
}
