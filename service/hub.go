package service

import (
	"fmt"
	"log"
	"sync"
)

// Hub is the runtime container for service instances
// Manages lifecycle in dependency order and routes contributed resources
type Hub struct {
	mu        sync.RWMutex
	services  map[string]Service
	order     []string // Registration order, tie-breaker for sorting
	sorted    []string // Topological order, computed on InitAll
	started   []string // Services that completed Start(), for rollback
	resources []any    // Contributed during InitAll, in init order
}

// NewHub creates an empty service hub
func NewHub() *Hub {
	return &Hub{
		services: make(map[string]Service),
	}
}

// Register adds a service instance to the hub
// Clears cached sort order to force recomputation
func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := svc.Name()
	if _, exists := h.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateService, name)
	}

	h.services[name] = svc
	h.order = append(h.order, name)
	h.sorted = nil
	return nil
}

// Get retrieves a service by name
func (h *Hub) Get(name string) (Service, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	svc, ok := h.services[name]
	return svc, ok
}

// MustGet retrieves a service and casts to type T
// Panics if service not found or type mismatch
func MustGet[T any](h *Hub, name string) T {
	h.mu.RLock()
	svc, ok := h.services[name]
	h.mu.RUnlock()

	if !ok {
		panic(fmt.Sprintf("service not found: %s", name))
	}

	typed, ok := svc.(T)
	if !ok {
		panic(fmt.Sprintf("service %s: type mismatch, got %T", name, svc))
	}
	return typed
}

// Resource returns the first contributed resource of type T
func Resource[T any](h *Hub) (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Find[T](h.resources)
}

// InitAll resolves dependencies and calls Init on all services
// Each service receives args[name] followed by resources contributed by
// services initialized before it
// On failure, calls Stop on already-initialized services in reverse order
func (h *Hub) InitAll(args map[string][]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sorted == nil {
		order, err := h.topologicalSort()
		if err != nil {
			return err
		}
		h.sorted = order
	}

	h.resources = nil
	publish := func(r any) {
		h.resources = append(h.resources, r)
	}

	var initialized []string
	for _, name := range h.sorted {
		svc := h.services[name]

		svcArgs := make([]any, 0, len(args[name])+len(h.resources))
		svcArgs = append(svcArgs, args[name]...)
		svcArgs = append(svcArgs, h.resources...)

		if err := svc.Init(svcArgs...); err != nil {
			for i := len(initialized) - 1; i >= 0; i-- {
				h.stopOne(initialized[i])
			}
			h.resources = nil
			return fmt.Errorf("service %s init failed: %w", name, err)
		}
		initialized = append(initialized, name)

		if c, ok := svc.(ResourceContributor); ok {
			c.Contribute(publish)
		}
	}

	return nil
}

// StartAll calls Start on all services in topological order
// On failure, calls Stop on already-started services in reverse order
func (h *Hub) StartAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sorted == nil {
		return ErrNotInitialized
	}

	h.started = nil

	for _, name := range h.sorted {
		svc := h.services[name]
		if err := svc.Start(); err != nil {
			for i := len(h.started) - 1; i >= 0; i-- {
				h.stopOne(h.started[i])
			}
			h.started = nil
			return fmt.Errorf("service %s start failed: %w", name, err)
		}
		h.started = append(h.started, name)
	}

	return nil
}

// StopAll calls Stop on all started services in reverse topological order
// Logs errors but does not fail - ensures all services get Stop called
func (h *Hub) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.started) - 1; i >= 0; i-- {
		h.stopOne(h.started[i])
	}
	h.started = nil
}

func (h *Hub) stopOne(name string) {
	svc, ok := h.services[name]
	if !ok {
		return
	}
	if err := svc.Stop(); err != nil {
		log.Printf("service %s stop: %v", name, err)
	}
}

// topologicalSort computes initialization order using Kahn's algorithm
// Services with no ordering constraint keep their registration order
func (h *Hub) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(h.services))
	dependents := make(map[string][]string) // dep -> services that depend on it

	for _, name := range h.order {
		inDegree[name] = 0
	}

	for _, name := range h.order {
		for _, dep := range h.services[name].Dependencies() {
			if _, exists := h.services[dep]; !exists {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrMissingDependency, name, dep)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for _, name := range h.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	result := make([]string, 0, len(h.services))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, name)

		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(h.services) {
		return nil, ErrCircularDependency
	}

	return result, nil
}

// Names returns registered service names in registration order
func (h *Hub) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, len(h.order))
	copy(names, h.order)
	return names
}

// Order returns the computed initialization order, nil before InitAll
func (h *Hub) Order() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.sorted == nil {
		return nil
	}
	order := make([]string, len(h.sorted))
	copy(order, h.sorted)
	return order
}
