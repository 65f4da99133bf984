package participant

import (
	"strings"

	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/grid"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/parts"
	"github.com/roach88/cellsim/internal/value"
)

// Render draws the committed grid as text, one row per line:
//
//	' '  unplaced cell
//	#/.  life cell, alive or dead
//	!/_  button, firing or idle
//	*/o  lamp, lit or dark
//	>    conveyor, arrow in its direction
//	=    solid part
//	@    a cell carrying cargo
//
// Other parts show the first letter of their id. The caller must hold the
// model lock (any participant callback or Simulation.Access does).
func Render(g *grid.Grid) string {
	size := g.Size()
	var b strings.Builder
	b.Grow((size.W + 1) * size.H)
	for y := 0; y < size.H; y++ {
		for x := 0; x < size.W; x++ {
			b.WriteRune(glyphAt(g, geom.Point{X: x, Y: y}))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func glyphAt(g *grid.Grid, pt geom.Point) rune {
	c, err := g.Full(pt)
	switch {
	case err != nil:
		return ' '
	case len(c.Cargo()) > 0:
		return '@'
	case c.Part() == nil:
		return ' '
	}
	return glyph(c)
}

func glyph(c part.Cell) rune {
	p := c.Part()
	has := func(id value.PropertyID) bool {
		_, ok := p.Property(id)
		return ok
	}
	switch {
	case has(value.PropAlive):
		return pick(parts.Bool(c, value.PropAlive, false), '#', '.')
	case has(value.PropFiring):
		return pick(parts.Bool(c, value.PropFiring, false), '!', '_')
	case has(value.PropLit):
		return pick(parts.Bool(c, value.PropLit, false), '*', 'o')
	case has(value.PropDirection):
		v, err := c.Get(value.PropDirection)
		if err != nil {
			return '?'
		}
		s, _ := value.AsText(v)
		return arrow(geom.ParseDirection(s))
	case p.Traits().Has(part.TraitSolid):
		return '='
	}
	if id := p.ID(); id != "" {
		return rune(id[0])
	}
	return '?'
}

func arrow(d geom.Direction) rune {
	switch d {
	case geom.Up:
		return '^'
	case geom.Down:
		return 'v'
	case geom.Left:
		return '<'
	case geom.Right:
		return '>'
	}
	return '+'
}

func pick(on bool, yes, no rune) rune {
	if on {
		return yes
	}
	return no
}
