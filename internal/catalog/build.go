package catalog

import (
	"fmt"

	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/parts"
	"github.com/roach88/cellsim/internal/value"
)

// DefaultAccess applies to catalog properties that do not name an access
// level.
const DefaultAccess = value.AccessVisible

// Build binds the declaration to its behavior in lib and builds the part.
func (s *PartSpec) Build(lib map[string]parts.Behavior) (*part.Part, error) {
	behavior, ok := lib[s.Behavior]
	if !ok {
		return nil, fault.New(fault.CodeNoDelegate, "part %s: unknown behavior %q", s.ID, s.Behavior).WithPart(s.ID)
	}

	traits, err := part.ParseTraits(s.Traits)
	if err != nil {
		return nil, fmt.Errorf("part %s: %w", s.ID, err)
	}

	b := part.New(s.ID).
		Name(s.Name).
		Description(s.Description).
		Traits(traits)

	for _, ps := range s.Properties {
		spec, err := ps.resolve()
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", s.ID, err)
		}
		b.Property(spec)
	}

	p, err := behavior.Bind(b).Build()
	if err != nil {
		return nil, fmt.Errorf("part %s: %w", s.ID, err)
	}
	return p, nil
}

// resolve converts the declared strings and scalar default into a typed
// part.PropertySpec.
func (ps PropertySpec) resolve() (part.PropertySpec, error) {
	id, err := value.ParsePropertyID(ps.ID)
	if err != nil {
		return part.PropertySpec{}, err
	}
	kind, err := value.ParseKind(ps.Kind)
	if err != nil {
		return part.PropertySpec{}, fmt.Errorf("property %s: %w", ps.ID, err)
	}

	def := value.Zero(kind)
	if ps.Default != nil {
		if def, err = value.Convert(kind, ps.Default); err != nil {
			return part.PropertySpec{}, fmt.Errorf("property %s default: %w", ps.ID, err)
		}
	}

	access := DefaultAccess
	if ps.Access != "" {
		if access, err = value.ParseAccess(ps.Access); err != nil {
			return part.PropertySpec{}, fmt.Errorf("property %s: %w", ps.ID, err)
		}
	}

	return part.PropertySpec{
		ID:         id,
		Key:        ps.Key,
		Name:       ps.Name,
		Default:    def,
		Access:     access,
		Persistent: ps.Persistent,
	}, nil
}
