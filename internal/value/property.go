package value

import (
	"fmt"
	"sort"

	"github.com/roach88/cellsim/internal/fault"
)

// PropertyID enumerates the attributes a part schema may declare.
type PropertyID uint16

const (
	PropNone PropertyID = iota
	PropAlive
	PropPoweringPin
	PropFiring
	PropLit
	PropDirection
	PropSpeed
	PropLabel
	PropTint
	PropCount
	PropVoltage
	PropState
)

var propertyNames = map[PropertyID]string{
	PropNone:        "NONE",
	PropAlive:       "ALIVE",
	PropPoweringPin: "POWERING_PIN",
	PropFiring:      "FIRING",
	PropLit:         "LIT",
	PropDirection:   "DIRECTION",
	PropSpeed:       "SPEED",
	PropLabel:       "LABEL",
	PropTint:        "TINT",
	PropCount:       "COUNT",
	PropVoltage:     "VOLTAGE",
	PropState:       "STATE",
}

func (id PropertyID) String() string {
	if name, ok := propertyNames[id]; ok {
		return name
	}
	return fmt.Sprintf("PROPERTY(%d)", uint16(id))
}

// MarshalText implements encoding.TextMarshaler.
func (id PropertyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *PropertyID) UnmarshalText(text []byte) error {
	parsed, err := ParsePropertyID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParsePropertyID parses a property name such as "POWERING_PIN".
func ParsePropertyID(s string) (PropertyID, error) {
	for id, name := range propertyNames {
		if id != PropNone && name == s {
			return id, nil
		}
	}
	return PropNone, fault.New(fault.CodeUnknownProperty, "unknown property %q", s)
}

// PropertyIDs returns every declared id except PropNone, in numeric order.
func PropertyIDs() []PropertyID {
	ids := make([]PropertyID, 0, len(propertyNames)-1)
	for id := range propertyNames {
		if id != PropNone {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Access is the UI access level of a property.
type Access uint8

const (
	AccessHidden Access = iota
	AccessVisible
	AccessUser
)

func (a Access) String() string {
	switch a {
	case AccessVisible:
		return "visible"
	case AccessUser:
		return "user"
	default:
		return "hidden"
	}
}

// ParseAccess parses "hidden", "visible" or "user".
func ParseAccess(s string) (Access, error) {
	switch s {
	case "hidden":
		return AccessHidden, nil
	case "visible":
		return AccessVisible, nil
	case "user":
		return AccessUser, nil
	}
	return AccessHidden, fmt.Errorf("unknown access level %q", s)
}

// Property is one staged attribute of a cell.
//
// Thread-safety: none. The simulation serializes access through its tier lock;
// a Property is only touched by the goroutine holding the lock.
type Property struct {
	id         PropertyID
	kind       Kind
	access     Access
	persistent bool

	current Value
	staged  Value
	dirty   bool
}

// NewProperty creates a property whose current value is def. The property's
// kind is fixed to def's kind.
func NewProperty(id PropertyID, def Value, access Access, persistent bool) *Property {
	return &Property{
		id:         id,
		kind:       def.Kind(),
		access:     access,
		persistent: persistent,
		current:    def,
	}
}

// ID returns the property identifier.
func (p *Property) ID() PropertyID { return p.id }

// Kind returns the declared variant.
func (p *Property) Kind() Kind { return p.kind }

// Access returns the UI access level.
func (p *Property) Access() Access { return p.access }

// Persistent reports whether the property is saved with a model.
func (p *Property) Persistent() bool { return p.persistent }

// Get returns the current value.
func (p *Property) Get() Value { return p.current }

// GetNow returns the staged value if one was written this cycle, otherwise
// the current value.
func (p *Property) GetNow() Value {
	if p.dirty {
		return p.staged
	}
	return p.current
}

// Set stages v. It becomes current at the next Commit.
func (p *Property) Set(v Value) error {
	if v == nil || v.Kind() != p.kind {
		return fault.New(fault.CodeTypeMismatch, "property %s holds %s, got %s", p.id, p.kind, kindOf(v))
	}
	p.staged = v
	p.dirty = true
	return nil
}

// Dirty reports whether a staged write is pending.
func (p *Property) Dirty() bool { return p.dirty }

// Commit promotes a pending staged write to current. It returns true if the
// current value changed.
func (p *Property) Commit() bool {
	if !p.dirty {
		return false
	}
	changed := !Equal(p.current, p.staged)
	p.current = p.staged
	p.staged = nil
	p.dirty = false
	return changed
}

// Discard drops a pending staged write.
func (p *Property) Discard() {
	p.staged = nil
	p.dirty = false
}

// clone returns a deep-enough copy: values are immutable, so slots are shared.
func (p *Property) clone() *Property {
	c := *p
	return &c
}

func kindOf(v Value) Kind {
	if v == nil {
		return KindInvalid
	}
	return v.Kind()
}
