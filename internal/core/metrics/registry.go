// Package metrics provides the process-wide counter registry that backs the
// translator's CounterSink, plus a Recorder that persists snapshots.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry is a set of named monotonic counters.
// Known names take only a read lock on Increment; unknown names are created on first use.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Uint64
}

// NewRegistry creates a registry with names pre-registered at zero.
func NewRegistry(names ...string) *Registry {
	r := &Registry{counters: make(map[string]*atomic.Uint64, len(names))}
	for _, n := range names {
		r.counters[n] = new(atomic.Uint64)
	}
	return r
}

// Increment adds one to the named counter.
func (r *Registry) Increment(name string) {
	r.counter(name).Add(1)
}

// Count returns the current value of the named counter.
func (r *Registry) Count(name string) uint64 {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return c.Load()
}

// Sample is one counter value at snapshot time.
type Sample struct {
	Name  string `json:"name" db:"counter_name"`
	Value uint64 `json:"value" db:"counter_value"`
}

// Snapshot returns all counters sorted by name.
// Values are read individually; the snapshot is not atomic across counters.
func (r *Registry) Snapshot() []Sample {
	r.mu.RLock()
	out := make([]Sample, 0, len(r.counters))
	for name, c := range r.counters {
		out = append(out, Sample{Name: name, Value: c.Load()})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) counter(name string) *atomic.Uint64 {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; ok {
		return c
	}
	c = new(atomic.Uint64)
	r.counters[name] = c
	return c
}
