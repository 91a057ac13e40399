package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocicorp/datadog-util/domain/series"
)

func TestGaugeFlushUnset(t *testing.T) {
	g := NewGauge("requests")

	s := g.Flush()

	assert.Equal(t, "requests", s.Metric)
	assert.Empty(t, s.Points, "an unset gauge should flush to a series with no points")
	assert.True(t, s.Empty())
}

func TestGaugeFlushPointShape(t *testing.T) {
	// 1. Setup: A gauge on a virtual clock frozen at 42000ms.
	clock := newFakeClock(42000)
	g := newGauge("name", clock.Now)
	g.Set(3)

	// 2. Execution: Flush it.
	s := g.Flush()

	// 3. Verification: Exactly one point, stamped with truncated seconds.
	require.Len(t, s.Points, 1)
	assert.Equal(t, "name", s.Metric)
	assert.Equal(t, series.Point{Ts: 42, Values: []float64{3}}, s.Points[0])
}

func TestGaugeSetReplacesValue(t *testing.T) {
	clock := newFakeClock(42000)
	g := newGauge("name", clock.Now)

	g.Set(3)
	g.Set(7)
	s := g.Flush()

	require.Len(t, s.Points, 1)
	assert.Equal(t, []float64{7}, s.Points[0].Values, "only the latest value should survive to flush")
}

func TestGaugeFlushKeepsValue(t *testing.T) {
	clock := newFakeClock(42000)
	g := newGauge("name", clock.Now)
	g.Set(3)

	first := g.Flush()
	second := g.Flush()

	require.Len(t, first.Points, 1)
	require.Len(t, second.Points, 1, "flushing must not clear a gauge")
	assert.Equal(t, first.Points[0].Values, second.Points[0].Values)
}

func TestGaugeFlushDoesNotAlias(t *testing.T) {
	// 1. Setup: A gauge with a value.
	clock := newFakeClock(42000)
	g := newGauge("name", clock.Now)
	g.Set(3)

	// 2. Execution: Mutate everything the first flush handed back.
	first := g.Flush()
	first.Metric = "mangled"
	first.Points[0].Ts = 0
	first.Points[0].Values[0] = 99

	// 3. Verification: A later flush is unaffected.
	second := g.Flush()
	require.Len(t, second.Points, 1)
	assert.Equal(t, "name", second.Metric)
	assert.Equal(t, series.Point{Ts: 42, Values: []float64{3}}, second.Points[0])
}

func TestGaugeFlushRestamps(t *testing.T) {
	clock := newFakeClock(42000)
	g := newGauge("name", clock.Now)
	g.Set(3)

	first := g.Flush()
	clock.SetMillis(43123)
	second := g.Flush()

	assert.Equal(t, int64(42), first.Points[0].Ts)
	assert.Equal(t, int64(43), second.Points[0].Ts, "each flush should stamp the current time, not the set time")
}

func TestGaugeSetAcceptsNonFinite(t *testing.T) {
	clock := newFakeClock(42000)
	g := newGauge("name", clock.Now)

	g.Set(math.Inf(1))
	g.Set(math.NaN())
	s := g.Flush()

	require.Len(t, s.Points, 1)
	assert.True(t, math.IsNaN(s.Points[0].Values[0]))
}
