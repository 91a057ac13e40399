package metrics

import (
	"sync"
	"time"

	"github.com/rocicorp/datadog-util/domain"
	"github.com/rocicorp/datadog-util/domain/series"
)

// Config carries the construction options for a Registry.
type Config struct {
	// Tags is attached to every series the registry emits. The list
	// is fixed for the registry's lifetime.
	Tags []string

	// Now supplies timestamps for flushed points. Defaults to
	// time.Now.
	Now func() time.Time
}

// Registry is a thread-safe collection of gauges and states keyed by
// name, with get-or-create semantics. Flush aggregates every member
// into one ordered series list ready for submission.
//
// Gauges and states live in separate namespaces, so a gauge and a
// state may share a name and produce two separate series.
//
// It implements the domain.Flusher interface.
var _ domain.Flusher = (*Registry)(nil)

type Registry struct {
	mu         sync.RWMutex
	tags       []string
	now        func() time.Time
	gauges     map[string]*Gauge
	gaugeOrder []string
	states     map[string]*State
	stateOrder []string
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		tags:   append([]string(nil), cfg.Tags...),
		now:    now,
		gauges: make(map[string]*Gauge),
		states: make(map[string]*State),
	}
}

// Gauge returns the gauge registered under name, creating it on first
// access. Repeated calls with the same name return the identical
// instance, so external code may cache the handle.
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge, ok := r.gauges[name]
	if !ok {
		gauge = newGauge(name, r.now)
		r.gauges[name] = gauge
		r.gaugeOrder = append(r.gaugeOrder, name)
	}
	return gauge
}

// State returns the state registered under name, creating it on first
// access. clearOnFlush is honored only on first creation; later calls
// with a different flag keep the original configuration.
func (r *Registry) State(name string, clearOnFlush bool) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[name]
	if !ok {
		state = newState(name, clearOnFlush, r.now)
		r.states[name] = state
		r.stateOrder = append(r.stateOrder, name)
	}
	return state
}

// Tags returns a copy of the registry's tag list.
func (r *Registry) Tags() []string {
	return append([]string(nil), r.tags...)
}

// Flush collects the current state of every registered metric: gauges
// in creation order, then states in creation order. Members with
// nothing to report are skipped. Every emitted series carries a copy
// of the registry's tags when the tag list is non-empty.
//
// Gauges keep their value across flushes; states created with
// clearOnFlush reset as a side effect of this call.
func (r *Registry) Flush() []series.Series {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []series.Series
	for _, name := range r.gaugeOrder {
		s := r.gauges[name].Flush()
		if s.Empty() {
			continue
		}
		all = append(all, r.tagged(s))
	}
	for _, name := range r.stateOrder {
		s, ok := r.states[name].Flush()
		if !ok {
			continue
		}
		all = append(all, r.tagged(s))
	}
	return all
}

func (r *Registry) tagged(s series.Series) series.Series {
	if len(r.tags) > 0 {
		s.Tags = append([]string(nil), r.tags...)
	}
	return s
}
