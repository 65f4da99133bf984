package part

import (
	"sort"
	"sync"

	"github.com/roach88/cellsim/internal/fault"
)

// Registry holds the parts available to a simulation, keyed by id.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	parts map[string]*Part
}

// NewRegistry creates a registry holding parts.
func NewRegistry(parts ...*Part) (*Registry, error) {
	r := &Registry{parts: make(map[string]*Part, len(parts))}
	for _, p := range parts {
		if err := r.Include(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Include adds p. An id already present fails with CodeDuplicatePart.
func (r *Registry) Include(p *Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.parts[p.id]; exists {
		return fault.New(fault.CodeDuplicatePart, "part %s already included", p.id).WithPart(p.id)
	}
	r.parts[p.id] = p
	return nil
}

// Lookup returns the part with the given id.
func (r *Registry) Lookup(id string) (*Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parts[id]
	if !ok {
		return nil, fault.New(fault.CodeUnknownPart, "unknown part %q", id).WithPart(id)
	}
	return p, nil
}

// Remove drops the part with the given id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.parts[id]; !ok {
		return fault.New(fault.CodeUnknownPart, "unknown part %q", id).WithPart(id)
	}
	delete(r.parts, id)
	return nil
}

// All returns every part sorted by id.
func (r *Registry) All() []*Part {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Part, 0, len(r.parts))
	for _, p := range r.parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len returns the number of parts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parts)
}
