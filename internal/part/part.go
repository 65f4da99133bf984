package part

import (
	"image"
	"sort"

	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/value"
)

// Reserved delegate names. Every built part answers to both.
const (
	DelegateCycle = "cycle"
	DelegateDraw  = "draw"
)

// CycleFunc is the per-cycle behavior of a part.
type CycleFunc func(c Cell) error

// DrawFunc renders a cell into img.
type DrawFunc func(c Cell, img *image.RGBA) error

// ActionFunc is a named delegate invoked on request, such as "press".
type ActionFunc func(c Cell, args ...value.Value) error

// PropertySpec declares one property of a part schema.
type PropertySpec struct {
	ID         value.PropertyID `yaml:"id"`
	Key        string           `yaml:"key"`
	Name       string           `yaml:"name"`
	Default    value.Value      `yaml:"-"`
	Access     value.Access     `yaml:"access"`
	Persistent bool             `yaml:"persistent"`
}

// Part is an immutable cell type: a property schema plus a delegate table.
// Parts are shared by every cell they are placed on and are safe for
// concurrent use once built.
type Part struct {
	id          string
	name        string
	description string
	traits      Traits
	props       []PropertySpec
	cycle       CycleFunc
	draw        DrawFunc
	delegates   map[string]ActionFunc
}

// ID returns the unique part identifier.
func (p *Part) ID() string { return p.id }

// Name returns the display name.
func (p *Part) Name() string { return p.name }

// Description returns the free-form description.
func (p *Part) Description() string { return p.description }

// Traits returns the trait flags.
func (p *Part) Traits() Traits { return p.traits }

// Properties returns a copy of the property schema in declaration order.
func (p *Part) Properties() []PropertySpec {
	out := make([]PropertySpec, len(p.props))
	copy(out, p.props)
	return out
}

// Property returns the schema entry for id.
func (p *Part) Property(id value.PropertyID) (PropertySpec, bool) {
	for _, spec := range p.props {
		if spec.ID == id {
			return spec, true
		}
	}
	return PropertySpec{}, false
}

// NewProperties builds a fresh property set holding the schema defaults.
func (p *Part) NewProperties() *value.Set {
	props := make([]*value.Property, len(p.props))
	for i, spec := range p.props {
		props[i] = value.NewProperty(spec.ID, spec.Default, spec.Access, spec.Persistent)
	}
	// Build already rejected duplicate ids.
	set, _ := value.NewSet(props...)
	return set
}

// Cycle runs the cycle delegate.
func (p *Part) Cycle(c Cell) error {
	return p.cycle(c)
}

// Draw runs the draw delegate.
func (p *Part) Draw(c Cell, img *image.RGBA) error {
	return p.draw(c, img)
}

// HasDelegate reports whether name resolves to a delegate.
func (p *Part) HasDelegate(name string) bool {
	if name == DelegateCycle || name == DelegateDraw {
		return true
	}
	_, ok := p.delegates[name]
	return ok
}

// Delegates returns the named action delegates, sorted. The reserved cycle
// and draw entries are not included.
func (p *Part) Delegates() []string {
	names := make([]string, 0, len(p.delegates))
	for name := range p.delegates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the delegate called name. "cycle" runs the cycle delegate;
// "draw" cannot be invoked without an image and is rejected.
func (p *Part) Invoke(name string, c Cell, args ...value.Value) error {
	if name == DelegateCycle {
		return p.cycle(c)
	}
	fn, ok := p.delegates[name]
	if !ok {
		return fault.New(fault.CodeNoDelegate, "part %s has no delegate %q", p.id, name).WithPart(p.id)
	}
	return fn(c, args...)
}

func noopCycle(Cell) error { return nil }

func noopDraw(Cell, *image.RGBA) error { return nil }
