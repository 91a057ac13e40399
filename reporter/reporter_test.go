package reporter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocicorp/datadog-util/domain/series"
)

// fakeFlusher hands out a canned series list on every flush.
type fakeFlusher struct {
	mu     sync.Mutex
	series []series.Series
}

func (f *fakeFlusher) Flush() []series.Series {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]series.Series, len(f.series))
	copy(out, f.series)
	return out
}

// fakeSubmitter records every submission and signals it on a channel.
type fakeSubmitter struct {
	mu    sync.Mutex
	err   error
	got   [][]series.Series
	calls chan struct{}
}

func newFakeSubmitter(err error) *fakeSubmitter {
	return &fakeSubmitter{err: err, calls: make(chan struct{}, 64)}
}

func (f *fakeSubmitter) Submit(ctx context.Context, s []series.Series) error {
	f.mu.Lock()
	f.got = append(f.got, s)
	f.mu.Unlock()
	f.calls <- struct{}{}
	return f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func (f *fakeSubmitter) first() []series.Series {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got[0]
}

// capturingLogger collects formatted log lines per level.
type capturingLogger struct {
	mu     sync.Mutex
	debugs []string
	errs   []string
}

func (l *capturingLogger) Debugf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, fmt.Sprintf(format, args...))
}

func (l *capturingLogger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, fmt.Sprintf(format, args...))
}

func (l *capturingLogger) hasError(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.errs {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func (l *capturingLogger) hasDebug(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.debugs {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func waitForSubmissions(t *testing.T, sub *fakeSubmitter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-sub.calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for submission %d of %d", i+1, n)
		}
	}
}

func testSeries() []series.Series {
	return []series.Series{{
		Metric: "latency_ms",
		Points: []series.Point{{Ts: 42, Values: []float64{3}}},
	}}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{Submitter: newFakeSubmitter(nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Metrics")

	_, err = New(Config{Metrics: &fakeFlusher{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Submitter")
}

func TestNewDefaultsInterval(t *testing.T) {
	r, err := New(Config{Metrics: &fakeFlusher{}, Submitter: newFakeSubmitter(nil)})
	require.NoError(t, err)
	defer r.Stop()

	assert.Equal(t, DefaultInterval, r.interval)
}

func TestReporterSendsOnTick(t *testing.T) {
	// 1. Setup: A flusher with data and a short interval.
	flusher := &fakeFlusher{series: testSeries()}
	sub := newFakeSubmitter(nil)

	r, err := New(Config{Metrics: flusher, Submitter: sub, Interval: 20 * time.Millisecond})
	require.NoError(t, err)
	defer r.Stop()

	// 2. Execution: Wait for the timer to fire a few times.
	waitForSubmissions(t, sub, 3)

	// 3. Verification: Each submission carries exactly the flushed series.
	assert.GreaterOrEqual(t, sub.count(), 3)
	assert.Equal(t, testSeries(), sub.first())
}

func TestReporterSkipsEmptyFlush(t *testing.T) {
	sub := newFakeSubmitter(nil)
	logger := &capturingLogger{}

	r, err := New(Config{
		Metrics:   &fakeFlusher{},
		Submitter: sub,
		Interval:  10 * time.Millisecond,
		Logger:    logger,
	})
	require.NoError(t, err)
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return logger.hasDebug("no series to report")
	}, 2*time.Second, 5*time.Millisecond, "ticks should fire and notice there is nothing to send")
	assert.Equal(t, 0, sub.count(), "no request may be made for an empty flush")
}

func TestReporterStop(t *testing.T) {
	flusher := &fakeFlusher{series: testSeries()}
	sub := newFakeSubmitter(nil)

	r, err := New(Config{Metrics: flusher, Submitter: sub, Interval: 10 * time.Millisecond})
	require.NoError(t, err)
	waitForSubmissions(t, sub, 1)

	r.Stop()

	// Let reports spawned just before the stop land, then require the
	// count to hold still.
	time.Sleep(50 * time.Millisecond)
	n := sub.count()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, sub.count(), "no submissions may occur after Stop")
}

func TestReporterStopIdempotent(t *testing.T) {
	r, err := New(Config{Metrics: &fakeFlusher{}, Submitter: newFakeSubmitter(nil), Interval: time.Hour})
	require.NoError(t, err)

	r.Stop()
	r.Stop()
}

func TestReporterContextCancellation(t *testing.T) {
	flusher := &fakeFlusher{series: testSeries()}
	sub := newFakeSubmitter(nil)
	logger := &capturingLogger{}
	ctx, cancel := context.WithCancel(context.Background())

	r, err := New(Config{
		Metrics:   flusher,
		Submitter: sub,
		Interval:  10 * time.Millisecond,
		Logger:    logger,
		Context:   ctx,
	})
	require.NoError(t, err)
	defer r.Stop()
	waitForSubmissions(t, sub, 1)

	cancel()

	time.Sleep(50 * time.Millisecond)
	n := sub.count()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, sub.count(), "no ticks may fire after cancellation")
	assert.Eventually(t, func() bool {
		return logger.hasDebug("reporting stopped")
	}, time.Second, 5*time.Millisecond)
}

func TestReporterPreCancelledContext(t *testing.T) {
	flusher := &fakeFlusher{series: testSeries()}
	sub := newFakeSubmitter(nil)
	logger := &capturingLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := New(Config{
		Metrics:   flusher,
		Submitter: sub,
		Interval:  10 * time.Millisecond,
		Logger:    logger,
		Context:   ctx,
	})
	require.NoError(t, err)
	defer r.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, sub.count(), "a pre-cancelled context never arms the timer")
	assert.True(t, logger.hasDebug("cancelled before start"))
}

func TestReporterFailureIsolation(t *testing.T) {
	// 1. Setup: A submitter that always fails.
	flusher := &fakeFlusher{series: testSeries()}
	sub := newFakeSubmitter(errors.New("boom"))
	logger := &capturingLogger{}

	r, err := New(Config{
		Metrics:   flusher,
		Submitter: sub,
		Interval:  10 * time.Millisecond,
		Logger:    logger,
	})
	require.NoError(t, err)
	defer r.Stop()

	// 2. Execution: Let several cycles fail.
	waitForSubmissions(t, sub, 3)

	// 3. Verification: The timer kept ticking and the failure reached the
	// logger instead of the caller.
	assert.GreaterOrEqual(t, sub.count(), 3, "a failed cycle must not stop future ticks")
	assert.True(t, logger.hasError("boom"), "the failure text must reach the error log")
}

func TestReporterManualReport(t *testing.T) {
	flusher := &fakeFlusher{series: testSeries()}
	sub := newFakeSubmitter(nil)

	r, err := New(Config{Metrics: flusher, Submitter: sub, Interval: time.Hour})
	require.NoError(t, err)
	defer r.Stop()

	r.Report(context.Background())

	require.Equal(t, 1, sub.count(), "a forced report must not wait for the timer")
	assert.Equal(t, testSeries(), sub.first())
}

func TestReporterManualReportSwallowsFailure(t *testing.T) {
	flusher := &fakeFlusher{series: testSeries()}
	sub := newFakeSubmitter(errors.New("boom"))
	logger := &capturingLogger{}

	r, err := New(Config{Metrics: flusher, Submitter: sub, Interval: time.Hour, Logger: logger})
	require.NoError(t, err)
	defer r.Stop()

	r.Report(context.Background())

	assert.True(t, logger.hasError("boom"), "failures are observable through the logger only")
}

func TestReporterSilentWithoutLogger(t *testing.T) {
	flusher := &fakeFlusher{series: testSeries()}
	sub := newFakeSubmitter(errors.New("boom"))

	r, err := New(Config{Metrics: flusher, Submitter: sub, Interval: time.Hour})
	require.NoError(t, err)
	defer r.Stop()

	r.Report(context.Background())
}
