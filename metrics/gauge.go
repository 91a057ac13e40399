package metrics

import (
	"sync"
	"time"

	"github.com/rocicorp/datadog-util/domain/series"
)

// Gauge tracks the latest value for one metric name. Set replaces the
// value; Flush stamps it with the current time, so the reported
// instant is "value as of this reporting window", not the instant the
// value last changed.
type Gauge struct {
	mu    sync.Mutex
	name  string
	value float64
	set   bool
	now   func() time.Time
}

// NewGauge creates a standalone gauge using the wall clock. Gauges
// obtained through a Registry share the registry's clock and tags.
func NewGauge(name string) *Gauge {
	return newGauge(name, time.Now)
}

func newGauge(name string, now func() time.Time) *Gauge {
	return &Gauge{name: name, now: now}
}

// Name returns the metric name the gauge reports under.
func (g *Gauge) Name() string {
	return g.name
}

// Set replaces the current value. Non-finite values are accepted
// unchecked.
func (g *Gauge) Set(value float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = value
	g.set = true
}

// Flush returns the gauge as a series with one point stamped at the
// current time, or with no points if the gauge was never set.
// Flushing does not clear the value. The result shares no storage
// with the gauge, so callers may mutate it freely.
func (g *Gauge) Flush() series.Series {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := series.Series{Metric: g.name, Points: []series.Point{}}
	if g.set {
		s.Points = append(s.Points, series.Point{
			Ts:     g.now().Unix(),
			Values: []float64{g.value},
		})
	}
	return s
}
