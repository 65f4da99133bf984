package value

import "github.com/roach88/cellsim/internal/fault"

// Set is an ordered collection of properties, built from a part schema.
type Set struct {
	props []*Property
	index map[PropertyID]int
}

// NewSet builds a set from properties in schema order. A repeated id fails
// with CodeDuplicateProperty.
func NewSet(props ...*Property) (*Set, error) {
	s := &Set{
		props: make([]*Property, 0, len(props)),
		index: make(map[PropertyID]int, len(props)),
	}
	for _, p := range props {
		if _, dup := s.index[p.id]; dup {
			return nil, fault.New(fault.CodeDuplicateProperty, "property %s declared twice", p.id)
		}
		s.index[p.id] = len(s.props)
		s.props = append(s.props, p)
	}
	return s, nil
}

// Lookup returns the property with the given id.
func (s *Set) Lookup(id PropertyID) (*Property, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.props[i], true
}

// Must returns the property with the given id or a CodeUnknownProperty error.
func (s *Set) Must(id PropertyID) (*Property, error) {
	p, ok := s.Lookup(id)
	if !ok {
		return nil, fault.New(fault.CodeUnknownProperty, "no property %s", id)
	}
	return p, nil
}

// All returns the properties in schema order. The slice must not be modified.
func (s *Set) All() []*Property {
	if s == nil {
		return nil
	}
	return s.props
}

// Len returns the number of properties.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.props)
}

// CommitAll commits every property and returns how many current values
// changed. fn, when non-nil, is called for each changed property in schema
// order.
func (s *Set) CommitAll(fn func(p *Property)) int {
	changed := 0
	for _, p := range s.All() {
		if !p.Commit() {
			continue
		}
		changed++
		if fn != nil {
			fn(p)
		}
	}
	return changed
}

// Dirty reports whether any property has a pending staged write.
func (s *Set) Dirty() bool {
	for _, p := range s.All() {
		if p.dirty {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the set, including staged slots.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	c := &Set{
		props: make([]*Property, len(s.props)),
		index: make(map[PropertyID]int, len(s.index)),
	}
	for i, p := range s.props {
		c.props[i] = p.clone()
	}
	for id, i := range s.index {
		c.index[id] = i
	}
	return c
}

// Snapshot returns the current values keyed by id.
func (s *Set) Snapshot() map[PropertyID]Value {
	out := make(map[PropertyID]Value, s.Len())
	for _, p := range s.All() {
		out[p.id] = p.current
	}
	return out
}
