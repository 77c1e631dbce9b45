// Package status holds process-wide counters and gauges
// Components cache metric pointers at construction and update them lock-free
package status

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Gauge is an atomically updated float64, zero value reads 0
type Gauge struct {
	bits atomic.Uint64
}

// Set stores v
func (g *Gauge) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

// Value loads the current value
func (g *Gauge) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Add adds delta and returns the new value
func (g *Gauge) Add(delta float64) float64 {
	for {
		old := g.bits.Load()
		v := math.Float64frombits(old) + delta
		if g.bits.CompareAndSwap(old, math.Float64bits(v)) {
			return v
		}
	}
}

// Map is a named set of metrics of one kind
// Get allocates on first use; returned pointers stay valid for the map's lifetime
type Map[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
}

// NewMap creates an empty map
func NewMap[T any]() *Map[T] {
	return &Map[T]{items: make(map[string]*T)}
}

// Get returns the metric for name, creating it if absent
func (m *Map[T]) Get(name string) *T {
	m.mu.RLock()
	ptr, ok := m.items[name]
	m.mu.RUnlock()
	if ok {
		return ptr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ptr, ok := m.items[name]; ok {
		return ptr
	}
	ptr = new(T)
	m.items[name] = ptr
	return ptr
}

// Has reports whether name was registered
func (m *Map[T]) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[name]
	return ok
}

// Range visits metrics in name order
func (m *Map[T]) Range(fn func(name string, ptr *T)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.items))
	for k := range m.items {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fn(k, m.items[k])
	}
}

// Len returns the number of registered metrics
func (m *Map[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Registry groups the counters and gauges of one process
type Registry struct {
	Counters *Map[atomic.Int64]
	Gauges   *Map[Gauge]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		Counters: NewMap[atomic.Int64](),
		Gauges:   NewMap[Gauge](),
	}
}

// Counter is shorthand for Counters.Get
func (r *Registry) Counter(name string) *atomic.Int64 {
	return r.Counters.Get(name)
}

// Gauge is shorthand for Gauges.Get
func (r *Registry) Gauge(name string) *Gauge {
	return r.Gauges.Get(name)
}

// Snapshot copies every metric into a flat map
func (r *Registry) Snapshot() map[string]float64 {
	out := make(map[string]float64, r.Counters.Len()+r.Gauges.Len())
	r.Counters.Range(func(name string, c *atomic.Int64) {
		out[name] = float64(c.Load())
	})
	r.Gauges.Range(func(name string, g *Gauge) {
		out[name] = g.Value()
	})
	return out
}

// String formats the snapshot as sorted name=value pairs for log lines
func (r *Registry) String() string {
	snap := r.Snapshot()
	names := make([]string, 0, len(snap))
	for k := range snap {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%g", k, snap[k])
	}
	return strings.Join(parts, " ")
}
