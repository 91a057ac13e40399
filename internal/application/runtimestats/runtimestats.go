// Package runtimestats periodically samples Go runtime counters into
// the metrics registry, giving every reporting window a fresh view of
// goroutine and heap pressure.
package runtimestats

import (
	"runtime"
	"sync"
	"time"

	"github.com/rocicorp/datadog-util/metrics"
)

// DefaultInterval is how often the runtime is sampled when no
// interval is configured.
const DefaultInterval = 10 * time.Second

// Start launches a background goroutine that samples the runtime into
// m on the given interval. An initial sample is taken immediately so
// the first reporting window is never empty. It returns a function
// that stops the goroutine; calling it more than once is safe.
func Start(m *metrics.Registry, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	sample(m)

	done := make(chan struct{})
	var once sync.Once
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sample(m)
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

func sample(m *metrics.Registry) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.Gauge("go_goroutines").Set(float64(runtime.NumGoroutine()))
	m.Gauge("go_heap_alloc_bytes").Set(float64(memStats.HeapAlloc))
	m.Gauge("go_heap_sys_bytes").Set(float64(memStats.HeapSys))
	m.Gauge("go_total_alloc_bytes").Set(float64(memStats.TotalAlloc))
}
