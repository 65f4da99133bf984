// Package parts holds the built-in part behaviors and the parts assembled
// from them.
//
// A Behavior is the code half of a part. The schema half (properties,
// traits, display name) is either declared here for the built-in parts or
// loaded from a CUE catalog, which names the behavior to bind.
package parts

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// Voltage levels driven by a button.
const (
	LowVoltage  = 0.0
	HighVoltage = 5.0
)

// Behavior is the delegate table of a part.
type Behavior struct {
	Cycle     part.CycleFunc
	Draw      part.DrawFunc
	Delegates map[string]part.ActionFunc
}

// Bind installs the behavior's delegates on b.
func (bh Behavior) Bind(b *part.Builder) *part.Builder {
	if bh.Cycle != nil {
		b.Cycle(bh.Cycle)
	}
	if bh.Draw != nil {
		b.Draw(bh.Draw)
	}
	names := make([]string, 0, len(bh.Delegates))
	for name := range bh.Delegates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.Delegate(name, bh.Delegates[name])
	}
	return b
}

// Library returns every built-in behavior keyed by name.
func Library() map[string]Behavior {
	return map[string]Behavior{
		"life": {Cycle: lifeCycle, Draw: lifeDraw},
		"button": {
			Draw: buttonDraw,
			Delegates: map[string]part.ActionFunc{
				"press":   press,
				"release": release,
			},
		},
		"lamp":     {Cycle: lampCycle, Draw: lampDraw},
		"conveyor": {Cycle: conveyorCycle, Draw: conveyorDraw},
		"crate": {
			Draw: crateDraw,
			Delegates: map[string]part.ActionFunc{
				"relabel": relabel,
			},
		},
		"wall": {Draw: fillDraw(color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff})},
	}
}

// Builtin builds the built-in parts, in id order.
func Builtin() []*part.Part {
	lib := Library()
	build := func(b *part.Builder, behavior string) *part.Part {
		return lib[behavior].Bind(b).MustBuild()
	}
	return []*part.Part{
		build(part.New("button").
			Name("Button").
			Description("Drives its pin high while pressed.").
			Traits(part.TraitPlaceable|part.TraitVisible|part.CategoryInput).
			Property(part.PropertySpec{ID: value.PropPoweringPin, Default: value.Float(LowVoltage), Access: value.AccessVisible}).
			Property(part.PropertySpec{ID: value.PropFiring, Default: value.Bool(false), Access: value.AccessVisible}), "button"),
		build(part.New("conveyor").
			Name("Conveyor").
			Description("Pushes the cargo on it one step per cycle.").
			Traits(part.TraitPlaceable|part.TraitVisible|part.CategoryTransport).
			Property(part.PropertySpec{ID: value.PropDirection, Default: value.Text("RIGHT"), Access: value.AccessUser, Persistent: true}).
			Property(part.PropertySpec{ID: value.PropSpeed, Default: value.Float(0.25), Access: value.AccessUser, Persistent: true}), "conveyor"),
		build(part.New("crate").
			Name("Crate").
			Description("A labelled box that rides conveyors.").
			Traits(part.TraitCargo|part.TraitVisible).
			Property(part.PropertySpec{ID: value.PropLabel, Default: value.Text(""), Access: value.AccessUser, Persistent: true}).
			Property(part.PropertySpec{ID: value.PropCount, Default: value.Int(0), Access: value.AccessVisible}), "crate"),
		build(part.New("lamp").
			Name("Lamp").
			Description("Lights while a neighbor fires.").
			Traits(part.TraitPlaceable|part.TraitVisible|part.CategoryOutput).
			Property(part.PropertySpec{ID: value.PropLit, Default: value.Bool(false), Access: value.AccessVisible}).
			Property(part.PropertySpec{ID: value.PropTint, Default: value.Color{R: 0xff, G: 0xd7, A: 0xff}, Access: value.AccessUser, Persistent: true}), "lamp"),
		build(part.New("life").
			Name("Life").
			Description("Conway's Game of Life cell (B3/S23).").
			Traits(part.TraitPlaceable|part.TraitVisible|part.CategoryLogic).
			Property(part.PropertySpec{ID: value.PropAlive, Default: value.Bool(false), Access: value.AccessUser, Persistent: true}), "life"),
		build(part.New("wall").
			Name("Wall").
			Description("Blocks cargo.").
			Traits(part.TraitPlaceable|part.TraitSolid|part.TraitVisible), "wall"),
	}
}

// NewRegistry returns a registry holding the built-in parts.
func NewRegistry() (*part.Registry, error) {
	return part.NewRegistry(Builtin()...)
}

// Bool reads a boolean property, treating an unplaced or foreign cell as
// false.
func Bool(c part.Cell, id value.PropertyID, now bool) bool {
	var (
		v   value.Value
		err error
	)
	if now {
		v, err = c.GetNow(id)
	} else {
		v, err = c.Get(id)
	}
	if err != nil {
		return false
	}
	b, err := value.AsBool(v)
	return err == nil && b
}

// Ring returns the eight cells around g. Diagonals are reached through two
// cardinal hops, so they exist only where both links do.
func Ring(g part.GridCell) []part.GridCell {
	up, down := g.Neighbor(geom.Up), g.Neighbor(geom.Down)
	return []part.GridCell{
		up.Neighbor(geom.Left), up, up.Neighbor(geom.Right),
		g.Neighbor(geom.Left), g.Neighbor(geom.Right),
		down.Neighbor(geom.Left), down, down.Neighbor(geom.Right),
	}
}

func lifeCycle(c part.Cell) error {
	g, err := c.AsGridCell()
	if err != nil {
		return err
	}
	n := 0
	for _, nb := range Ring(g) {
		if Bool(nb, value.PropAlive, false) {
			n++
		}
	}
	alive := Bool(c, value.PropAlive, false)
	next := n == 3 || (alive && n == 2)
	if next == alive {
		// A write would clobber a value staged by a participant this cycle.
		return nil
	}
	return c.Set(value.PropAlive, value.Bool(next))
}

func press(c part.Cell, _ ...value.Value) error {
	if err := c.Set(value.PropPoweringPin, value.Float(HighVoltage)); err != nil {
		return err
	}
	return c.Set(value.PropFiring, value.Bool(true))
}

func release(c part.Cell, _ ...value.Value) error {
	if err := c.Set(value.PropPoweringPin, value.Float(LowVoltage)); err != nil {
		return err
	}
	return c.Set(value.PropFiring, value.Bool(false))
}

func lampCycle(c part.Cell) error {
	g, err := c.AsGridCell()
	if err != nil {
		return err
	}
	lit := false
	for _, d := range geom.Cardinals() {
		if Bool(g.Neighbor(d), value.PropFiring, true) {
			lit = true
			break
		}
	}
	return c.Set(value.PropLit, value.Bool(lit))
}

func conveyorCycle(c part.Cell) error {
	g, err := c.AsGridCell()
	if err != nil {
		return err
	}
	raw, err := c.Get(value.PropDirection)
	if err != nil {
		return err
	}
	text, err := value.AsText(raw)
	if err != nil {
		return err
	}
	dir, err := geom.ParseDirectionStrict(text)
	if err != nil {
		return err
	}
	raw, err = c.Get(value.PropSpeed)
	if err != nil {
		return err
	}
	speed, err := value.AsFloat(raw)
	if err != nil {
		return err
	}
	step := dir.Unit().Scale(speed)
	if step == (geom.Vec{}) {
		return nil
	}
	for _, item := range g.Cargo() {
		if err := item.Move(step); err != nil {
			return fmt.Errorf("move cargo %s: %w", item.Handle(), err)
		}
	}
	return nil
}

func relabel(c part.Cell, args ...value.Value) error {
	if len(args) == 0 {
		return c.Set(value.PropLabel, value.Text(""))
	}
	label, err := value.AsText(args[0])
	if err != nil {
		return err
	}
	if err := c.Set(value.PropLabel, value.NewText(label)); err != nil {
		return err
	}
	v, err := c.GetNow(value.PropCount)
	if err != nil {
		return err
	}
	n, _ := value.AsInt(v)
	return c.Set(value.PropCount, value.Int(n+1))
}
