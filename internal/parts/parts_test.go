package parts

import (
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/grid"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

func lookup(t *testing.T, id string) *part.Part {
	t.Helper()
	reg, err := NewRegistry()
	require.NoError(t, err)
	p, err := reg.Lookup(id)
	require.NoError(t, err)
	return p
}

// step runs one cycle over g the way the simulation does and commits it.
func step(t *testing.T, g *grid.Grid) []grid.Change {
	t.Helper()
	run := func(h value.Handle) {
		err := g.Run(h, func(c part.Cell) error { return c.Part().Cycle(c) })
		require.NoError(t, err)
	}
	for _, h := range g.Placed() {
		run(h)
	}
	for _, h := range g.Cargo() {
		run(h)
	}
	changes, err := g.Commit()
	require.NoError(t, err)
	return changes
}

func set(t *testing.T, g *grid.Grid, pt geom.Point, id value.PropertyID, v value.Value) {
	t.Helper()
	c, err := g.Full(pt)
	require.NoError(t, err)
	require.NoError(t, c.Set(id, v))
}

func get(t *testing.T, g *grid.Grid, pt geom.Point, id value.PropertyID) value.Value {
	t.Helper()
	c, err := g.Full(pt)
	require.NoError(t, err)
	v, err := c.Get(id)
	require.NoError(t, err)
	return v
}

func render(g *grid.Grid) string {
	var b strings.Builder
	for y := 0; y < g.Size().H; y++ {
		for x := 0; x < g.Size().W; x++ {
			c, err := g.Full(geom.Point{X: x, Y: y})
			if err == nil && Bool(c, value.PropAlive, false) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestBuiltin(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	var ids []string
	for _, p := range reg.All() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"button", "conveyor", "crate", "lamp", "life", "wall"}, ids)

	button := lookup(t, "button")
	assert.Equal(t, []string{"press", "release"}, button.Delegates())
	assert.True(t, button.Traits().Has(part.CategoryInput))
	assert.True(t, lookup(t, "crate").Traits().Has(part.TraitCargo))
	assert.True(t, lookup(t, "wall").Traits().Has(part.TraitSolid))

	for name := range Library() {
		_, err := reg.Lookup(name)
		assert.NoError(t, err, "behavior %s has a built-in part", name)
	}
}

func TestLife_Blinker(t *testing.T) {
	g := grid.New(geom.Size{W: 5, H: 5})
	life := lookup(t, "life")
	for i := 0; i < 25; i++ {
		require.NoError(t, g.Place(g.Size().PointAt(i), life))
	}
	for x := 1; x <= 3; x++ {
		set(t, g, geom.Point{X: x, Y: 2}, value.PropAlive, value.Bool(true))
	}
	_, err := g.Commit()
	require.NoError(t, err)

	horizontal := ".....\n.....\n.###.\n.....\n.....\n"
	vertical := ".....\n..#..\n..#..\n..#..\n.....\n"
	assert.Equal(t, horizontal, render(g))

	step(t, g)
	assert.Equal(t, vertical, render(g))
	step(t, g)
	assert.Equal(t, horizontal, render(g))
}

func TestLife_BlockIsStable(t *testing.T) {
	g := grid.New(geom.Size{W: 4, H: 4})
	life := lookup(t, "life")
	for i := 0; i < 16; i++ {
		require.NoError(t, g.Place(g.Size().PointAt(i), life))
	}
	for _, pt := range []geom.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}} {
		set(t, g, pt, value.PropAlive, value.Bool(true))
	}
	_, err := g.Commit()
	require.NoError(t, err)
	before := render(g)

	changes := step(t, g)
	assert.Empty(t, changes, "a still life writes nothing")
	assert.Equal(t, before, render(g))
}

func TestButton_PressRelease(t *testing.T) {
	s, err := grid.NewSketchGridCell(lookup(t, "button"))
	require.NoError(t, err)

	require.NoError(t, s.Invoke("press"))
	_, err = s.Transit()
	require.NoError(t, err)
	v, _ := s.Get(value.PropPoweringPin)
	assert.Equal(t, value.Float(HighVoltage), v)
	v, _ = s.Get(value.PropFiring)
	assert.Equal(t, value.Bool(true), v)

	require.NoError(t, s.Invoke("release"))
	_, err = s.Transit()
	require.NoError(t, err)
	v, _ = s.Get(value.PropPoweringPin)
	assert.Equal(t, value.Float(LowVoltage), v)
	v, _ = s.Get(value.PropFiring)
	assert.Equal(t, value.Bool(false), v)

	assert.True(t, fault.Is(s.Invoke("hold"), fault.CodeNoDelegate))
}

func TestLamp_SeesPressInSameCycle(t *testing.T) {
	g := grid.New(geom.Size{W: 2, H: 1})
	require.NoError(t, g.Place(geom.Point{X: 0}, lookup(t, "button")))
	require.NoError(t, g.Place(geom.Point{X: 1}, lookup(t, "lamp")))

	btn := g.CellAt(geom.Point{X: 0})
	require.NoError(t, g.Run(btn, func(c part.Cell) error {
		return c.Part().Invoke("press", c)
	}))
	step(t, g)
	assert.Equal(t, value.Bool(true), get(t, g, geom.Point{X: 1}, value.PropLit))

	require.NoError(t, g.Run(btn, func(c part.Cell) error {
		return c.Part().Invoke("release", c)
	}))
	step(t, g)
	assert.Equal(t, value.Bool(false), get(t, g, geom.Point{X: 1}, value.PropLit))
}

func TestConveyor_CarriesCargo(t *testing.T) {
	g := grid.New(geom.Size{W: 3, H: 1})
	require.NoError(t, g.Place(geom.Point{X: 0}, lookup(t, "conveyor")))
	set(t, g, geom.Point{X: 0}, value.PropSpeed, value.Float(0.5))
	_, err := g.Commit()
	require.NoError(t, err)

	h, err := g.SpawnCargo(lookup(t, "crate"), geom.Vec{X: 0.25, Y: 0.5})
	require.NoError(t, err)

	step(t, g)
	item, err := g.FullCargo(h)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, item.AbsPosition().X, 1e-9)

	changes := step(t, g)
	assert.Contains(t, changes, grid.Change{Kind: grid.ChangeMoved, Cell: h, Other: g.CellAt(geom.Point{X: 1})})
	assert.InDelta(t, 1.25, item.AbsPosition().X, 1e-9)

	step(t, g)
	assert.InDelta(t, 1.25, item.AbsPosition().X, 1e-9, "the second cell has no conveyor")
}

func TestConveyor_BlockedByWall(t *testing.T) {
	g := grid.New(geom.Size{W: 2, H: 1})
	require.NoError(t, g.Place(geom.Point{X: 0}, lookup(t, "conveyor")))
	require.NoError(t, g.Place(geom.Point{X: 1}, lookup(t, "wall")))
	set(t, g, geom.Point{X: 0}, value.PropSpeed, value.Float(1))
	_, err := g.Commit()
	require.NoError(t, err)

	h, err := g.SpawnCargo(lookup(t, "crate"), geom.Vec{X: 0.5, Y: 0.5})
	require.NoError(t, err)
	step(t, g)

	item, err := g.FullCargo(h)
	require.NoError(t, err)
	assert.Equal(t, g.CellAt(geom.Point{X: 0}), item.Owner().Handle())
}

func TestConveyor_NonFiniteSpeed(t *testing.T) {
	g := grid.New(geom.Size{W: 2, H: 1})
	require.NoError(t, g.Place(geom.Point{X: 0}, lookup(t, "conveyor")))
	set(t, g, geom.Point{X: 0}, value.PropSpeed, value.Float(math.NaN()))
	_, err := g.Commit()
	require.NoError(t, err)

	h, err := g.SpawnCargo(lookup(t, "crate"), geom.Vec{X: 0.5, Y: 0.5})
	require.NoError(t, err)
	_, err = g.Commit()
	require.NoError(t, err)

	err = g.Run(g.CellAt(geom.Point{X: 0}), func(c part.Cell) error { return c.Part().Cycle(c) })
	assert.True(t, fault.Is(err, fault.CodeDelegateFailed))
	assert.True(t, fault.Is(err, fault.CodeInvalidPlacement))
	assert.False(t, fault.IsFatal(err))

	_, err = g.Commit()
	require.NoError(t, err)
	item, err := g.FullCargo(h)
	require.NoError(t, err)
	assert.Equal(t, geom.Vec{X: 0.5, Y: 0.5}, item.AbsPosition())
}

func TestConveyor_BadDirection(t *testing.T) {
	s, err := grid.NewSketchGridCell(lookup(t, "conveyor"))
	require.NoError(t, err)
	require.NoError(t, s.Set(value.PropDirection, value.Text("SIDEWAYS")))
	_, err = s.Transit()
	require.NoError(t, err)

	err = s.Cycle()
	assert.True(t, fault.Is(err, fault.CodeDelegateFailed))
	assert.True(t, fault.Is(err, fault.CodeInvalidDirection))
}

func TestCrate_Relabel(t *testing.T) {
	s, err := grid.NewSketchCargoCell(lookup(t, "crate"), geom.Vec{X: 0.5, Y: 0.5})
	require.NoError(t, err)

	require.NoError(t, s.Invoke("relabel", value.Text("box")))
	require.NoError(t, s.Invoke("relabel", value.Text("bin")))
	_, err = s.Transit()
	require.NoError(t, err)

	v, _ := s.Get(value.PropLabel)
	assert.Equal(t, value.Text("bin"), v)
	v, _ = s.Get(value.PropCount)
	assert.Equal(t, value.Int(2), v)

	assert.True(t, fault.Is(s.Invoke("relabel", value.Int(3)), fault.CodeDelegateFailed))
}

func TestDraw(t *testing.T) {
	s, err := grid.NewSketchGridCell(lookup(t, "lamp"))
	require.NoError(t, err)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	require.NoError(t, s.Part().Draw(s, img))
	assert.Equal(t, dark, img.RGBAAt(2, 2))

	require.NoError(t, s.Set(value.PropLit, value.Bool(true)))
	_, err = s.Transit()
	require.NoError(t, err)
	require.NoError(t, s.Part().Draw(s, img))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xd7, A: 0xff}, img.RGBAAt(2, 2))

	belt, err := grid.NewSketchGridCell(lookup(t, "conveyor"))
	require.NoError(t, err)
	require.NoError(t, belt.Part().Draw(belt, img))
	assert.Equal(t, white, img.RGBAAt(3, 0))
	assert.Equal(t, gray, img.RGBAAt(0, 0))
}
