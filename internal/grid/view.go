package grid

import (
	"sort"

	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// FullGridCell is the privileged grid view handed to participants through
// the simulation's access window.
type FullGridCell interface {
	part.GridCell

	Pos() geom.Point
	// Reassign replaces the part at commit. Properties both parts declare
	// with the same kind keep their committed values.
	Reassign(p *part.Part) error
	// SwapWith exchanges part and properties with other at commit.
	SwapWith(other part.GridCell) error
}

// FullCargoCell is the privileged cargo view.
type FullCargoCell interface {
	part.CargoCell

	AbsPosition() geom.Vec
	Reassign(p *part.Part) error
	// SwapWith exchanges owners and offsets with other at commit.
	SwapWith(other part.CargoCell) error
	// Dump renders the stored record as YAML.
	Dump() (string, error)
}

// View returns the delegate view of the cell or cargo item h.
func (g *Grid) View(h value.Handle) (part.Cell, error) {
	rec := g.arena.get(h)
	if rec == nil {
		return nil, fault.New(fault.CodeInvalidHandle, "handle %s does not resolve", h).WithCell(uint64(h))
	}
	if rec.kind == part.CellCargo {
		return &cargoView{cellView{g: g, h: h}}, nil
	}
	return &gridView{cellView{g: g, h: h}}, nil
}

// Full returns the privileged view of the grid cell at pt.
func (g *Grid) Full(pt geom.Point) (FullGridCell, error) {
	h := g.CellAt(pt)
	if h == 0 {
		return nil, fault.New(fault.CodeInvalidPlacement, "point %s outside %s grid", pt, g.size)
	}
	return &fullGridView{gridView{cellView{g: g, h: h}}}, nil
}

// FullCargo returns the privileged view of cargo h.
func (g *Grid) FullCargo(h value.Handle) (FullCargoCell, error) {
	if _, err := g.cargoRecord(h); err != nil {
		return nil, err
	}
	return &fullCargoView{cargoView{cellView{g: g, h: h}}}, nil
}

// cellView is bound to a handle, not a record, so a view taken before a
// swap or resize never reads a record it no longer names.
type cellView struct {
	g *Grid
	h value.Handle
}

func (v *cellView) rec() *record {
	return v.g.arena.get(v.h)
}

func (v *cellView) placedRec() (*record, error) {
	rec := v.rec()
	if rec == nil || !rec.placed() {
		return nil, fault.New(fault.CodeCellNotInitialized, "cell is not placed").WithCell(uint64(v.h))
	}
	return rec, nil
}

func (v *cellView) property(id value.PropertyID) (*value.Property, error) {
	rec, err := v.placedRec()
	if err != nil {
		return nil, err
	}
	p, ok := rec.props.Lookup(id)
	if !ok {
		return nil, fault.New(fault.CodeUnknownProperty, "part %s has no property %s", rec.part.ID(), id).
			WithCell(uint64(v.h)).
			WithPart(rec.part.ID())
	}
	return p, nil
}

func (v *cellView) Handle() value.Handle { return v.h }

func (v *cellView) Kind() part.CellKind {
	if rec := v.rec(); rec != nil {
		return rec.kind
	}
	return part.CellGrid
}

func (v *cellView) Part() *part.Part {
	if rec := v.rec(); rec != nil {
		return rec.part
	}
	return nil
}

func (v *cellView) Get(id value.PropertyID) (value.Value, error) {
	p, err := v.property(id)
	if err != nil {
		return nil, err
	}
	return p.Get(), nil
}

func (v *cellView) GetNow(id value.PropertyID) (value.Value, error) {
	p, err := v.property(id)
	if err != nil {
		return nil, err
	}
	return p.GetNow(), nil
}

func (v *cellView) Set(id value.PropertyID, val value.Value) error {
	p, err := v.property(id)
	if err != nil {
		return err
	}
	if err := v.g.stage(p, val); err != nil {
		return fault.Wrap(fault.CodeTypeMismatch, err, "set %s", id).WithCell(uint64(v.h))
	}
	return nil
}

func (v *cellView) AsGridCell() (part.GridCell, error) {
	if v.Kind() != part.CellGrid {
		return nil, fault.New(fault.CodeInvalidCast, "cargo cell is not a grid cell").WithCell(uint64(v.h))
	}
	return &gridView{*v}, nil
}

func (v *cellView) AsCargoCell() (part.CargoCell, error) {
	if v.Kind() != part.CellCargo {
		return nil, fault.New(fault.CodeInvalidCast, "grid cell is not a cargo cell").WithCell(uint64(v.h))
	}
	return &cargoView{*v}, nil
}

func (v *cellView) AdoptCopy(from part.Cell) error {
	rec, err := v.placedRec()
	if err != nil {
		return err
	}
	if from.Part() == nil {
		return fault.New(fault.CodeCellNotInitialized, "adopt from an unplaced cell").WithCell(uint64(from.Handle()))
	}
	for _, spec := range rec.part.Properties() {
		val, err := from.Get(spec.ID)
		if err != nil || val.Kind() != spec.Default.Kind() {
			continue
		}
		if err := v.Set(spec.ID, val); err != nil {
			return err
		}
	}
	return nil
}

func (v *cellView) AdoptMove(from part.Cell) error {
	if err := v.AdoptCopy(from); err != nil {
		return err
	}
	for _, spec := range from.Part().Properties() {
		if err := from.Set(spec.ID, spec.Default); err != nil {
			return err
		}
	}
	return nil
}

func (v *cellView) Message(header string, content value.Value) {
	v.g.Message(v.h, header, content)
}

type gridView struct {
	cellView
}

func (v *gridView) Placed() bool {
	rec := v.rec()
	return rec != nil && rec.placed()
}

func (v *gridView) Neighbor(d geom.Direction) part.GridCell {
	if rec := v.rec(); rec != nil {
		if nh, ok := rec.links[d]; ok {
			return &gridView{cellView{g: v.g, h: nh}}
		}
	}
	return &gridView{cellView{g: v.g}}
}

// Directions returns linked directions: cardinals in UP, DOWN, LEFT, RIGHT
// order, then pins by number.
func (v *gridView) Directions() []geom.Direction {
	rec := v.rec()
	if rec == nil {
		return nil
	}
	dirs := make([]geom.Direction, 0, len(rec.links))
	for d := range rec.links {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		a, b := dirs[i], dirs[j]
		if a.IsPin() != b.IsPin() {
			return !a.IsPin()
		}
		if a.IsPin() {
			return a.PinNumber() < b.PinNumber()
		}
		return a < b
	})
	return dirs
}

func (v *gridView) AddConnection(d geom.Direction, to part.GridCell) error {
	if v.rec() == nil {
		return fault.New(fault.CodeCellNotInitialized, "connect from a missing cell")
	}
	if to == nil {
		return fault.New(fault.CodeInvalidHandle, "connect to nil cell").WithCell(uint64(v.h))
	}
	return v.g.Connect(v.h, d, to.Handle())
}

func (v *gridView) RemoveConnection(d geom.Direction) error {
	if v.rec() == nil {
		return fault.New(fault.CodeCellNotInitialized, "disconnect a missing cell")
	}
	return v.g.Disconnect(v.h, d)
}

func (v *gridView) Cargo() []part.CargoCell {
	rec := v.rec()
	if rec == nil {
		return nil
	}
	out := make([]part.CargoCell, 0, len(rec.cargo))
	for _, h := range rec.cargo {
		out = append(out, &cargoView{cellView{g: v.g, h: h}})
	}
	return out
}

type fullGridView struct {
	gridView
}

func (v *fullGridView) Pos() geom.Point {
	if rec := v.rec(); rec != nil {
		return rec.pos
	}
	return geom.Point{}
}

func (v *fullGridView) Reassign(p *part.Part) error {
	if v.rec() == nil {
		return fault.New(fault.CodeInvalidHandle, "reassign a missing cell")
	}
	if !p.Traits().Has(part.TraitPlaceable) {
		return fault.New(fault.CodeInvalidPlacement, "part %s is not placeable", p.ID()).WithPart(p.ID())
	}
	v.g.pushOp(op{kind: opReassign, a: v.h, part: p})
	return nil
}

func (v *fullGridView) SwapWith(other part.GridCell) error {
	if _, err := v.g.gridRecord(v.h); err != nil {
		return err
	}
	if _, err := v.g.gridRecord(other.Handle()); err != nil {
		return err
	}
	v.g.pushOp(op{kind: opSwapGrid, a: v.h, b: other.Handle()})
	return nil
}

type cargoView struct {
	cellView
}

func (v *cargoView) Position() geom.Vec {
	if rec := v.rec(); rec != nil {
		return rec.offset
	}
	return geom.Vec{}
}

func (v *cargoView) Owner() part.GridCell {
	if rec := v.rec(); rec != nil {
		return &gridView{cellView{g: v.g, h: rec.owner}}
	}
	return &gridView{cellView{g: v.g}}
}

func (v *cargoView) Move(delta geom.Vec) error {
	return v.g.MoveCargo(v.h, delta)
}

func (v *cargoView) Destroy() error {
	return v.g.DestroyCargo(v.h)
}

type fullCargoView struct {
	cargoView
}

func (v *fullCargoView) AbsPosition() geom.Vec {
	rec := v.rec()
	if rec == nil {
		return geom.Vec{}
	}
	owner := v.g.arena.get(rec.owner)
	if owner == nil {
		return rec.offset
	}
	return owner.pos.Vec().Add(rec.offset)
}

func (v *fullCargoView) Reassign(p *part.Part) error {
	if _, err := v.g.cargoRecord(v.h); err != nil {
		return err
	}
	if !p.Traits().Has(part.TraitCargo) {
		return fault.New(fault.CodeInvalidPlacement, "part %s is not cargo", p.ID()).WithPart(p.ID())
	}
	v.g.pushOp(op{kind: opReassign, a: v.h, part: p})
	return nil
}

func (v *fullCargoView) SwapWith(other part.CargoCell) error {
	if _, err := v.g.cargoRecord(v.h); err != nil {
		return err
	}
	if _, err := v.g.cargoRecord(other.Handle()); err != nil {
		return err
	}
	v.g.pushOp(op{kind: opSwapCargo, a: v.h, b: other.Handle()})
	return nil
}
