package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/cartridge/internal/ir"
)

// Registry is an arena of engines keyed by entity id. Each entity gets its
// own engine; nothing is shared between them, so independent simulations
// can run side by side.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	ids     IDGenerator
	opts    []Option
}

// NewRegistry creates an empty registry. opts are applied to every engine
// it spawns, before the per-spawn options.
func NewRegistry(ids IDGenerator, opts ...Option) *Registry {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Registry{
		engines: make(map[string]*Engine),
		ids:     ids,
		opts:    opts,
	}
}

// Spawn creates an engine for chart under id and stores it. An empty id is
// replaced with a generated one. The engine is not started.
func (r *Registry) Spawn(id string, chart *ir.Statechart, opts ...Option) (*Engine, error) {
	if id == "" {
		id = r.ids.Generate()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[id]; exists {
		return nil, fmt.Errorf("registry: entity %q already exists", id)
	}

	all := make([]Option, 0, len(r.opts)+len(opts)+1)
	all = append(all, r.opts...)
	all = append(all, opts...)
	all = append(all, WithID(id))

	e, err := New(chart, all...)
	if err != nil {
		return nil, fmt.Errorf("registry: spawn %q: %w", id, err)
	}
	r.engines[id] = e
	return e, nil
}

// Get returns the engine for id.
func (r *Registry) Get(id string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[id]
	return e, ok
}

// Remove stops and forgets the engine for id. Returns false if there was
// none.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.engines[id]
	delete(r.engines, id)
	r.mu.Unlock()

	if ok {
		e.Stop()
	}
	return ok
}

// IDs returns every entity id in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

// StopAll stops and forgets every engine.
func (r *Registry) StopAll() {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]*Engine)
	r.mu.Unlock()

	for _, e := range engines {
		e.Stop()
	}
}
