package part

import (
	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/value"
)

// Builder assembles a Part. The first error encountered is reported by Build;
// later calls after an error are ignored.
//
//	p, err := part.New("button").
//		Name("Button").
//		Traits(part.TraitPlaceable | part.CategoryInput).
//		Property(part.PropertySpec{ID: value.PropFiring, Default: value.Bool(false)}).
//		Delegate("press", press).
//		Build()
type Builder struct {
	p    Part
	seen map[string]bool
	err  error
}

// New starts a builder for the part with the given id.
func New(id string) *Builder {
	return &Builder{
		p: Part{
			id:        id,
			delegates: make(map[string]ActionFunc),
		},
		seen: make(map[string]bool),
	}
}

// Name sets the display name. Defaults to the id.
func (b *Builder) Name(name string) *Builder {
	b.p.name = name
	return b
}

// Description sets the description.
func (b *Builder) Description(desc string) *Builder {
	b.p.description = desc
	return b
}

// Traits sets the trait flags.
func (b *Builder) Traits(t Traits) *Builder {
	b.p.traits = t
	return b
}

// Property appends a schema entry.
func (b *Builder) Property(spec PropertySpec) *Builder {
	if b.err != nil {
		return b
	}
	if spec.Default == nil {
		b.err = fault.New(fault.CodeTypeMismatch, "property %s has no default", spec.ID).WithPart(b.p.id)
		return b
	}
	for _, existing := range b.p.props {
		if existing.ID == spec.ID {
			b.err = fault.New(fault.CodeDuplicateProperty, "property %s declared twice", spec.ID).WithPart(b.p.id)
			return b
		}
	}
	if spec.Key == "" {
		spec.Key = spec.ID.String()
	}
	if spec.Name == "" {
		spec.Name = spec.Key
	}
	b.p.props = append(b.p.props, spec)
	return b
}

// Cycle sets the cycle delegate.
func (b *Builder) Cycle(fn CycleFunc) *Builder {
	if b.claim(DelegateCycle) {
		b.p.cycle = fn
	}
	return b
}

// Draw sets the draw delegate.
func (b *Builder) Draw(fn DrawFunc) *Builder {
	if b.claim(DelegateDraw) {
		b.p.draw = fn
	}
	return b
}

// Delegate registers a named action.
func (b *Builder) Delegate(name string, fn ActionFunc) *Builder {
	if name == DelegateCycle || name == DelegateDraw {
		if b.err == nil {
			b.err = fault.New(fault.CodeDuplicateDelegate, "delegate %q is reserved", name).WithPart(b.p.id)
		}
		return b
	}
	if b.claim(name) {
		b.p.delegates[name] = fn
	}
	return b
}

func (b *Builder) claim(name string) bool {
	if b.err != nil {
		return false
	}
	if b.seen[name] {
		b.err = fault.New(fault.CodeDuplicateDelegate, "delegate %q registered twice", name).WithPart(b.p.id)
		return false
	}
	b.seen[name] = true
	return true
}

// Build validates and returns the part. Missing cycle and draw delegates
// become no-ops.
func (b *Builder) Build() (*Part, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.p.id == "" {
		return nil, fault.New(fault.CodeUnknownPart, "part id is empty")
	}
	for _, spec := range b.p.props {
		if spec.Default.Kind() == value.KindInvalid {
			return nil, fault.New(fault.CodeTypeMismatch, "property %s has an invalid default", spec.ID).WithPart(b.p.id)
		}
	}

	p := b.p
	if p.name == "" {
		p.name = p.id
	}
	if p.cycle == nil {
		p.cycle = noopCycle
	}
	if p.draw == nil {
		p.draw = noopDraw
	}
	p.props = append([]PropertySpec(nil), b.p.props...)
	p.delegates = make(map[string]ActionFunc, len(b.p.delegates))
	for name, fn := range b.p.delegates {
		p.delegates[name] = fn
	}
	return &p, nil
}

// MustBuild is Build for package-level tables of known-good parts.
func (b *Builder) MustBuild() *Part {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
