package grid

import (
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// SketchGridCell is a single detached grid cell for exercising a part's
// behavior without a simulation. It has no neighbors.
type SketchGridCell struct {
	FullGridCell
	g *Grid
}

// NewSketchGridCell places p on a fresh 1x1 grid.
func NewSketchGridCell(p *part.Part) (*SketchGridCell, error) {
	g := New(geom.Size{W: 1, H: 1})
	if err := g.Place(geom.Point{}, p); err != nil {
		return nil, err
	}
	full, err := g.Full(geom.Point{})
	if err != nil {
		return nil, err
	}
	return &SketchGridCell{FullGridCell: full, g: g}, nil
}

// Cycle runs the part's cycle delegate. A failure discards its writes.
func (s *SketchGridCell) Cycle() error {
	return s.g.Run(s.Handle(), func(c part.Cell) error {
		return c.Part().Cycle(c)
	})
}

// Invoke runs a named delegate.
func (s *SketchGridCell) Invoke(name string, args ...value.Value) error {
	return s.g.Run(s.Handle(), func(c part.Cell) error {
		return c.Part().Invoke(name, c, args...)
	})
}

// Transit applies staged writes immediately.
func (s *SketchGridCell) Transit() ([]Change, error) {
	return s.g.Commit()
}

// Grid returns the backing one-cell grid.
func (s *SketchGridCell) Grid() *Grid { return s.g }

// SketchCargoCell is a single detached cargo item inside an unplaced 1x1
// grid, so moves clamp to the unit square.
type SketchCargoCell struct {
	FullCargoCell
	g *Grid
}

// NewSketchCargoCell spawns p at offset inside a fresh 1x1 grid.
func NewSketchCargoCell(p *part.Part, offset geom.Vec) (*SketchCargoCell, error) {
	g := New(geom.Size{W: 1, H: 1})
	h, err := g.SpawnCargo(p, offset)
	if err != nil {
		return nil, err
	}
	full, err := g.FullCargo(h)
	if err != nil {
		return nil, err
	}
	// The spawn notification belongs to nobody.
	g.changes = nil
	return &SketchCargoCell{FullCargoCell: full, g: g}, nil
}

// Cycle runs the part's cycle delegate. A failure discards its writes.
func (s *SketchCargoCell) Cycle() error {
	return s.g.Run(s.Handle(), func(c part.Cell) error {
		return c.Part().Cycle(c)
	})
}

// Invoke runs a named delegate.
func (s *SketchCargoCell) Invoke(name string, args ...value.Value) error {
	return s.g.Run(s.Handle(), func(c part.Cell) error {
		return c.Part().Invoke(name, c, args...)
	})
}

// Transit applies staged writes and deferred moves immediately.
func (s *SketchCargoCell) Transit() ([]Change, error) {
	return s.g.Commit()
}

// Grid returns the backing one-cell grid.
func (s *SketchCargoCell) Grid() *Grid { return s.g }
