package process

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a process. d is nil for a fresh start, otherwise the
// persisted descriptor to restore from.
type Factory func(d *Descriptor) (Process, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs a factory. Returns an error if the type already exists.
func (r *Registry) Register(typ string, f Factory) error {
	if typ == "" {
		return fmt.Errorf("process: type is required")
	}
	if f == nil {
		return fmt.Errorf("process: factory is required for %s", typ)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typ]; exists {
		return fmt.Errorf("process: %s already registered", typ)
	}
	r.factories[typ] = f
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(typ string, f Factory) {
	if err := r.Register(typ, f); err != nil {
		panic(err)
	}
}

func (r *Registry) Has(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typ]
	return ok
}

// New builds a process of type typ, restoring from d when it is not nil.
func (r *Registry) New(typ string, d *Descriptor) (Process, error) {
	r.mu.RLock()
	f, ok := r.factories[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	p, err := f(d)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", typ, err)
	}
	if p == nil {
		return nil, fmt.Errorf("process %s: factory returned nil", typ)
	}
	return p, nil
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for typ := range r.factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
