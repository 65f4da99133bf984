package grid

import (
	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// Grid is the cell model: a rectangle of grid cells, the directional links
// between them, and the cargo items they own.
//
// Thread-safety: none. The simulation guards a Grid with its tier lock.
//
// Writes made through views are staged. Commit applies them as one batch:
// property values, swaps, reassignments, connection changes, cargo moves and
// finally cargo destroys.
type Grid struct {
	arena   arena
	size    geom.Size
	cells   []value.Handle // row-major
	cargo   []value.Handle // live cargo, spawn order
	nextSeq uint64

	ops     []op
	changes []Change
	undo    []func()
}

type opKind uint8

const (
	opConnect opKind = iota + 1
	opDisconnect
	opSwapGrid
	opSwapCargo
	opReassign
)

type op struct {
	kind opKind
	a, b value.Handle
	dir  geom.Direction
	part *part.Part
}

// New creates a grid of the given size with every cell unplaced and
// cardinal neighbors linked.
func New(size geom.Size) *Grid {
	g := &Grid{}
	g.Resize(size)
	return g
}

// Size returns the grid dimensions.
func (g *Grid) Size() geom.Size { return g.size }

// CellAt returns the handle of the grid cell at pt, or zero when out of bounds.
func (g *Grid) CellAt(pt geom.Point) value.Handle {
	if !g.size.Contains(pt) {
		return 0
	}
	return g.cells[g.size.Index(pt)]
}

// Cells returns every grid cell handle in row-major order.
func (g *Grid) Cells() []value.Handle {
	return append([]value.Handle(nil), g.cells...)
}

// Placed returns the handles of placed grid cells in row-major order.
func (g *Grid) Placed() []value.Handle {
	out := make([]value.Handle, 0, len(g.cells))
	for _, h := range g.cells {
		if rec := g.arena.get(h); rec != nil && rec.placed() {
			out = append(out, h)
		}
	}
	return out
}

// Cargo returns live cargo handles in spawn order.
func (g *Grid) Cargo() []value.Handle {
	return append([]value.Handle(nil), g.cargo...)
}

// Live returns the number of records in the arena.
func (g *Grid) Live() int {
	return g.arena.live()
}

// Resize changes the grid dimensions. Cells inside both the old and new
// rectangles keep their handles, parts and properties. Cells that fall
// outside lose their links and their cargo. New cells are unplaced.
// Missing cardinal links are filled in between adjacent cells.
func (g *Grid) Resize(size geom.Size) {
	if size.W < 0 {
		size.W = 0
	}
	if size.H < 0 {
		size.H = 0
	}

	cells := make([]value.Handle, size.Area())
	for i := range cells {
		pt := size.PointAt(i)
		if g.size.Contains(pt) {
			cells[i] = g.cells[g.size.Index(pt)]
			continue
		}
		cells[i] = g.arena.alloc(&record{
			kind:  part.CellGrid,
			pos:   pt,
			links: make(map[geom.Direction]value.Handle),
		})
	}

	for i, h := range g.cells {
		if size.Contains(g.size.PointAt(i)) {
			continue
		}
		g.dropCell(h)
	}

	g.cells = cells
	g.size = size
	g.autolink()
}

func (g *Grid) dropCell(h value.Handle) {
	rec := g.arena.get(h)
	if rec == nil {
		return
	}
	for d, nh := range rec.links {
		if n := g.arena.get(nh); n != nil && n.links[d.Opposite()] == h {
			delete(n.links, d.Opposite())
		}
	}
	for _, ch := range append([]value.Handle(nil), rec.cargo...) {
		g.removeCargo(ch)
		g.changes = append(g.changes, Change{Kind: ChangeDestroyed, Cell: ch})
	}
	g.arena.release(h)
}

func (g *Grid) autolink() {
	for _, h := range g.cells {
		rec := g.arena.get(h)
		for _, d := range []geom.Direction{geom.Right, geom.Down} {
			nh := g.CellAt(rec.pos.Add(d.Offset()))
			if nh == 0 {
				continue
			}
			n := g.arena.get(nh)
			_, taken := rec.links[d]
			_, backTaken := n.links[d.Opposite()]
			if !taken && !backTaken {
				rec.links[d] = nh
				n.links[d.Opposite()] = h
			}
		}
	}
}

// Place assigns p to the unplaced cell at pt and seeds its properties.
func (g *Grid) Place(pt geom.Point, p *part.Part) error {
	h := g.CellAt(pt)
	if h == 0 {
		return fault.New(fault.CodeInvalidPlacement, "point %s outside %s grid", pt, g.size)
	}
	if !p.Traits().Has(part.TraitPlaceable) {
		return fault.New(fault.CodeInvalidPlacement, "part %s is not placeable", p.ID()).WithPart(p.ID())
	}
	rec := g.arena.get(h)
	if rec.placed() {
		return fault.New(fault.CodeInvalidPlacement, "cell %s already holds %s", pt, rec.part.ID()).WithCell(uint64(h))
	}
	rec.part = p
	rec.props = p.NewProperties()
	return nil
}

// Clear removes the part from the cell at pt. Links and owned cargo stay.
func (g *Grid) Clear(pt geom.Point) error {
	h := g.CellAt(pt)
	if h == 0 {
		return fault.New(fault.CodeInvalidPlacement, "point %s outside %s grid", pt, g.size)
	}
	rec := g.arena.get(h)
	rec.part = nil
	rec.props = nil
	return nil
}

// SpawnCargo creates a cargo item of part p at the absolute position at.
// The item is live immediately; the spawn is reported with the next commit.
func (g *Grid) SpawnCargo(p *part.Part, at geom.Vec) (value.Handle, error) {
	if !p.Traits().Has(part.TraitCargo) {
		return 0, fault.New(fault.CodeInvalidPlacement, "part %s is not cargo", p.ID()).WithPart(p.ID())
	}
	cell := at.Floor()
	ownerH := g.CellAt(cell)
	if ownerH == 0 {
		return 0, fault.New(fault.CodeInvalidPlacement, "position %s outside %s grid", at, g.size)
	}

	g.nextSeq++
	rec := &record{
		kind:   part.CellCargo,
		part:   p,
		props:  p.NewProperties(),
		owner:  ownerH,
		offset: at.Sub(cell.Vec()),
		seq:    g.nextSeq,
	}
	h := g.arena.alloc(rec)
	g.cargo = append(g.cargo, h)
	owner := g.arena.get(ownerH)
	owner.cargo = append(owner.cargo, h)

	g.changes = append(g.changes, Change{Kind: ChangeSpawned, Cell: h, Other: ownerH})
	return h, nil
}

// MoveCargo stages a displacement for cargo h. Non-finite deltas are
// rejected.
func (g *Grid) MoveCargo(h value.Handle, delta geom.Vec) error {
	rec, err := g.cargoRecord(h)
	if err != nil {
		return err
	}
	if !delta.Finite() {
		return fault.New(fault.CodeInvalidPlacement, "cargo %s cannot move by %s", h, delta).WithCell(uint64(h))
	}
	g.stageMove(rec, delta)
	return nil
}

// DestroyCargo stages the removal of cargo h.
func (g *Grid) DestroyCargo(h value.Handle) error {
	rec, err := g.cargoRecord(h)
	if err != nil {
		return err
	}
	g.stageDestroy(rec)
	return nil
}

// Connect stages a link from a to b in direction d.
func (g *Grid) Connect(a value.Handle, d geom.Direction, b value.Handle) error {
	if d == geom.None {
		return fault.New(fault.CodeInvalidDirection, "cannot connect in direction NONE")
	}
	if a == b {
		return fault.New(fault.CodeInvalidPlacement, "cannot connect a cell to itself").WithCell(uint64(a))
	}
	if _, err := g.gridRecord(a); err != nil {
		return err
	}
	if _, err := g.gridRecord(b); err != nil {
		return err
	}
	g.pushOp(op{kind: opConnect, a: a, b: b, dir: d})
	return nil
}

// Disconnect stages removal of a's link in direction d.
func (g *Grid) Disconnect(a value.Handle, d geom.Direction) error {
	if d == geom.None {
		return fault.New(fault.CodeInvalidDirection, "cannot disconnect direction NONE")
	}
	if _, err := g.gridRecord(a); err != nil {
		return err
	}
	g.pushOp(op{kind: opDisconnect, a: a, dir: d})
	return nil
}

// Message records a broadcast from cell h for this cycle's dispatch.
func (g *Grid) Message(h value.Handle, header string, content value.Value) {
	g.note(Change{Kind: ChangeMessage, Cell: h, Header: header, Content: content})
}

// Note records a notification that did not come from a cell write, such as a
// participant's message. It is delivered with the next commit.
func (g *Grid) Note(c Change) {
	g.changes = append(g.changes, c)
}

func (g *Grid) gridRecord(h value.Handle) (*record, error) {
	rec := g.arena.get(h)
	if rec == nil {
		return nil, fault.New(fault.CodeInvalidHandle, "handle %s does not resolve", h).WithCell(uint64(h))
	}
	if rec.kind != part.CellGrid {
		return nil, fault.New(fault.CodeInvalidCast, "handle %s is cargo, not a grid cell", h).WithCell(uint64(h))
	}
	return rec, nil
}

func (g *Grid) cargoRecord(h value.Handle) (*record, error) {
	rec := g.arena.get(h)
	if rec == nil {
		return nil, fault.New(fault.CodeInvalidHandle, "handle %s does not resolve", h).WithCell(uint64(h))
	}
	if rec.kind != part.CellCargo {
		return nil, fault.New(fault.CodeInvalidCast, "handle %s is a grid cell, not cargo", h).WithCell(uint64(h))
	}
	return rec, nil
}

func (g *Grid) removeCargo(h value.Handle) {
	rec := g.arena.get(h)
	if rec == nil {
		return
	}
	if owner := g.arena.get(rec.owner); owner != nil {
		owner.cargo = without(owner.cargo, h)
	}
	g.cargo = without(g.cargo, h)
	g.arena.release(h)
}

// attach links cargo rec to owner, keeping the owner's list in spawn order.
func (g *Grid) attach(owner, rec *record) {
	rec.owner = owner.handle
	i := len(owner.cargo)
	for i > 0 {
		prev := g.arena.get(owner.cargo[i-1])
		if prev == nil || prev.seq < rec.seq {
			break
		}
		i--
	}
	owner.cargo = append(owner.cargo, 0)
	copy(owner.cargo[i+1:], owner.cargo[i:])
	owner.cargo[i] = rec.handle
}

func without(hs []value.Handle, h value.Handle) []value.Handle {
	for i, x := range hs {
		if x == h {
			return append(hs[:i], hs[i+1:]...)
		}
	}
	return hs
}
