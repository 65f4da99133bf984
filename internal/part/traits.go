package part

import (
	"fmt"
	"strings"
)

// Traits is a bit set of placement and category flags.
type Traits uint32

const (
	// TraitPlaceable marks a part that may be placed on a grid cell.
	TraitPlaceable Traits = 1 << iota
	// TraitCargo marks a part that may be spawned as cargo.
	TraitCargo
	// TraitSolid marks a part that blocks cargo from entering its cell.
	TraitSolid
	// TraitVisible marks a part that has a draw routine worth calling.
	TraitVisible

	CategoryLogic
	CategoryInput
	CategoryOutput
	CategoryTransport
)

var traitNames = []struct {
	trait Traits
	name  string
}{
	{TraitPlaceable, "placeable"},
	{TraitCargo, "cargo"},
	{TraitSolid, "solid"},
	{TraitVisible, "visible"},
	{CategoryLogic, "logic"},
	{CategoryInput, "input"},
	{CategoryOutput, "output"},
	{CategoryTransport, "transport"},
}

// Has reports whether every bit of want is set.
func (t Traits) Has(want Traits) bool {
	return t&want == want
}

// Names returns the trait names in declaration order.
func (t Traits) Names() []string {
	var names []string
	for _, tn := range traitNames {
		if t.Has(tn.trait) {
			names = append(names, tn.name)
		}
	}
	return names
}

func (t Traits) String() string {
	if t == 0 {
		return "none"
	}
	return strings.Join(t.Names(), "|")
}

// ParseTrait parses a single trait name such as "placeable".
func ParseTrait(name string) (Traits, error) {
	for _, tn := range traitNames {
		if tn.name == name {
			return tn.trait, nil
		}
	}
	return 0, fmt.Errorf("unknown trait %q", name)
}

// ParseTraits combines a list of trait names.
func ParseTraits(names []string) (Traits, error) {
	var t Traits
	for _, name := range names {
		bit, err := ParseTrait(name)
		if err != nil {
			return 0, err
		}
		t |= bit
	}
	return t, nil
}
