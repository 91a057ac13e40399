package metrics

import (
	"sync"
	"time"

	"github.com/rocicorp/datadog-util/domain/series"
)

// State tracks which label out of an open set is currently active,
// e.g. State("connection") with labels "open" and "closed". On flush
// the active label is reported as a one-point gauge named
// prefix + "_" + label with value 1, so per-label counting works on
// the backend without tag-based aggregation.
type State struct {
	mu           sync.Mutex
	prefix       string
	label        string
	clearOnFlush bool
	now          func() time.Time
}

// NewState creates a standalone state using the wall clock. States
// obtained through a Registry share the registry's clock and tags.
// With clearOnFlush, the label resets after every flush so a one-shot
// transition is reported exactly once.
func NewState(prefix string, clearOnFlush bool) *State {
	return newState(prefix, clearOnFlush, time.Now)
}

func newState(prefix string, clearOnFlush bool, now func() time.Time) *State {
	return &State{prefix: prefix, clearOnFlush: clearOnFlush, now: now}
}

// Set replaces the active label unconditionally. Setting the empty
// string is equivalent to Clear.
func (st *State) Set(label string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.label = label
}

// Clear unsets the active label so the next flush reports nothing.
func (st *State) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.label = ""
}

// Flush reports the active label as a one-point gauge series. The
// second return is false when no label is set, which is distinct from
// an empty series: it tells the registry to skip this state entirely.
// The reported metric name is derived on each flush, so consecutive
// flushes with different labels report under different names.
func (st *State) Flush() (series.Series, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.label == "" {
		return series.Series{}, false
	}
	g := newGauge(st.prefix+"_"+st.label, st.now)
	g.Set(1)
	if st.clearOnFlush {
		st.label = ""
	}
	return g.Flush(), true
}
