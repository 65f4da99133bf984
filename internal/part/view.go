package part

import (
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/value"
)

// CellKind distinguishes grid cells from cargo items.
type CellKind uint8

const (
	CellGrid CellKind = iota + 1
	CellCargo
)

func (k CellKind) String() string {
	switch k {
	case CellGrid:
		return "grid"
	case CellCargo:
		return "cargo"
	default:
		return "unknown"
	}
}

// Cell is the view a delegate receives. Get reads the value committed at the
// previous cycle boundary; GetNow also sees writes staged earlier in the
// current cycle. Set always stages.
type Cell interface {
	Handle() value.Handle
	Kind() CellKind
	Part() *Part

	Get(id value.PropertyID) (value.Value, error)
	GetNow(id value.PropertyID) (value.Value, error)
	Set(id value.PropertyID, v value.Value) error

	// AsGridCell and AsCargoCell fail with fault.CodeInvalidCast when the
	// cell is of the other kind.
	AsGridCell() (GridCell, error)
	AsCargoCell() (CargoCell, error)

	// AdoptCopy stages a copy of every property both parts declare.
	AdoptCopy(from Cell) error
	// AdoptMove is AdoptCopy followed by resetting from to its defaults.
	AdoptMove(from Cell) error

	// Message queues a broadcast delivered to participants this cycle.
	Message(header string, content value.Value)
}

// GridCell is a cell placed on the grid with directional neighbors.
type GridCell interface {
	Cell

	Placed() bool
	// Neighbor returns the cell linked in direction d. A missing link yields
	// an unplaced view whose reads fail with fault.CodeCellNotInitialized.
	Neighbor(d geom.Direction) GridCell
	Directions() []geom.Direction
	// AddConnection and RemoveConnection are applied at commit to both ends.
	AddConnection(d geom.Direction, to GridCell) error
	RemoveConnection(d geom.Direction) error
	// Cargo returns the cargo items owned by this cell, in spawn order.
	Cargo() []CargoCell
}

// CargoCell is a movable item owned by a grid cell.
type CargoCell interface {
	Cell

	// Position is the offset inside the owner, in [0,1) on both axes.
	Position() geom.Vec
	Owner() GridCell
	// Move and Destroy take effect at commit.
	Move(delta geom.Vec) error
	Destroy() error
}
