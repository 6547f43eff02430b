// Package perf collects lightweight per-function call counters used to
// profile hot paths. Tracking is disabled by default and costs a single
// atomic load per call site.
package perf

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cachekeep/cachekeep/pkg/schema"
)

var (
	trackingEnabled atomic.Bool

	mu    sync.Mutex
	stats = make(map[string]*entry)
)

type entry struct {
	count int64
	total time.Duration
	max   time.Duration
}

// Stat is a snapshot of the accumulated timings for one tracked function.
type Stat struct {
	Name  string
	Count int64
	Total time.Duration
	Avg   time.Duration
	Max   time.Duration
}

// EnableTracking switches collection on or off globally.
func EnableTracking(enabled bool) {
	trackingEnabled.Store(enabled)
}

// Enabled reports whether collection is currently on.
func Enabled() bool {
	return trackingEnabled.Load()
}

// Track records one invocation of name and returns the function to defer.
// Call sites that run before configuration is loaded pass a nil config; a
// non-nil config with Perf.Enabled set turns tracking on for this call even
// when global tracking is off.
//
//	defer perf.Track(nil, "dircache.Manager.Acquire")()
func Track(cfg *schema.Configuration, name string) func() {
	if !trackingEnabled.Load() && (cfg == nil || !cfg.Perf.Enabled) {
		return func() {}
	}

	start := time.Now()
	return func() {
		elapsed := time.Since(start)

		mu.Lock()
		defer mu.Unlock()

		e, ok := stats[name]
		if !ok {
			e = &entry{}
			stats[name] = e
		}
		e.count++
		e.total += elapsed
		if elapsed > e.max {
			e.max = elapsed
		}
	}
}

// Snapshot returns the collected stats sorted by total time, descending.
func Snapshot() []Stat {
	mu.Lock()
	defer mu.Unlock()

	out := make([]Stat, 0, len(stats))
	for name, e := range stats {
		s := Stat{
			Name:  name,
			Count: e.count,
			Total: e.total,
			Max:   e.max,
		}
		if e.count > 0 {
			s.Avg = time.Duration(int64(e.total) / e.count)
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})

	return out
}

// Reset clears all collected stats.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	stats = make(map[string]*entry)
}
