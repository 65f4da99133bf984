package grid

import (
	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// ChangeKind classifies a Change.
type ChangeKind uint8

const (
	ChangeSpawned ChangeKind = iota + 1
	ChangeMessage
	ChangeProperty
	ChangeConnectionAdded
	ChangeConnectionRemoved
	ChangeMoved
	ChangeDestroyed
)

var changeNames = map[ChangeKind]string{
	ChangeSpawned:           "spawned",
	ChangeMessage:           "message",
	ChangeProperty:          "property",
	ChangeConnectionAdded:   "connection_added",
	ChangeConnectionRemoved: "connection_removed",
	ChangeMoved:             "moved",
	ChangeDestroyed:         "destroyed",
}

func (k ChangeKind) String() string {
	if name, ok := changeNames[k]; ok {
		return name
	}
	return "unknown"
}

// Change is one observable effect of a cycle, in occurrence order.
//
// Field use by kind:
//   - Spawned:           Cell (cargo), Other (owner)
//   - Message:           Cell (sender, zero for participants), Header, Content
//   - Property:          Cell, Property, Content (new current value)
//   - ConnectionAdded:   Cell (from), Other (to), Direction
//   - ConnectionRemoved: Cell (from), Direction
//   - Moved:             Cell (cargo), Other (new owner)
//   - Destroyed:         Cell (cargo)
type Change struct {
	Kind      ChangeKind
	Cell      value.Handle
	Other     value.Handle
	Direction geom.Direction
	Property  value.PropertyID
	Header    string
	Content   value.Value
}

// Commit applies everything staged since the previous commit and returns the
// cycle's changes. Spawns and messages recorded earlier in the cycle come
// first, followed by property updates, connection changes, moves and
// destroys. An error means the model is inconsistent; it is always fatal.
func (g *Grid) Commit() ([]Change, error) {
	changes := g.changes
	g.changes = nil
	g.undo = g.undo[:0]

	commitProps := func(h value.Handle) {
		rec := g.arena.get(h)
		if rec == nil || rec.props == nil {
			return
		}
		rec.props.CommitAll(func(p *value.Property) {
			changes = append(changes, Change{Kind: ChangeProperty, Cell: h, Property: p.ID(), Content: p.Get()})
		})
	}
	for _, h := range g.cells {
		commitProps(h)
	}
	for _, h := range g.cargo {
		commitProps(h)
	}

	ops := g.ops
	g.ops = nil
	for _, o := range ops {
		changes = g.apply(o, changes)
	}

	for _, h := range g.Cargo() {
		rec := g.arena.get(h)
		if rec == nil || !rec.moving {
			continue
		}
		moveBy := rec.moveBy
		rec.moveBy, rec.moving = geom.Vec{}, false
		if rec.destroyed {
			continue
		}
		owner := g.arena.get(rec.owner)
		if owner == nil {
			return changes, fault.Fatalf(fault.CodeCommitFailed, nil, "cargo %s has no owner", h).WithCell(uint64(h))
		}
		abs := owner.pos.Vec().Add(rec.offset).Add(moveBy).Clamp(g.size)
		target := g.arena.get(g.CellAt(abs.Floor()))
		if target == nil {
			continue
		}
		if target != owner && target.placed() && target.part.Traits().Has(part.TraitSolid) {
			continue
		}
		if target != owner {
			owner.cargo = without(owner.cargo, h)
			g.attach(target, rec)
		}
		rec.offset = abs.Sub(target.pos.Vec())
		changes = append(changes, Change{Kind: ChangeMoved, Cell: h, Other: target.handle})
	}

	for _, h := range g.Cargo() {
		rec := g.arena.get(h)
		if rec == nil || !rec.destroyed {
			continue
		}
		g.removeCargo(h)
		changes = append(changes, Change{Kind: ChangeDestroyed, Cell: h})
	}

	return changes, nil
}

// apply runs one structural op. Ops whose handles went stale since they were
// staged, for example through a resize, are dropped.
func (g *Grid) apply(o op, changes []Change) []Change {
	switch o.kind {
	case opConnect:
		a, b := g.arena.get(o.a), g.arena.get(o.b)
		if a == nil || b == nil {
			return changes
		}
		return g.link(a, o.dir, b, changes)

	case opDisconnect:
		a := g.arena.get(o.a)
		if a == nil {
			return changes
		}
		return g.unlink(a, o.dir, changes)

	case opSwapGrid:
		a, b := g.arena.get(o.a), g.arena.get(o.b)
		if a == nil || b == nil {
			return changes
		}
		a.part, b.part = b.part, a.part
		a.props, b.props = b.props, a.props

	case opSwapCargo:
		a, b := g.arena.get(o.a), g.arena.get(o.b)
		if a == nil || b == nil {
			return changes
		}
		ownerA, ownerB := g.arena.get(a.owner), g.arena.get(b.owner)
		if ownerA == nil || ownerB == nil {
			return changes
		}
		a.offset, b.offset = b.offset, a.offset
		if ownerA != ownerB {
			ownerA.cargo = without(ownerA.cargo, a.handle)
			ownerB.cargo = without(ownerB.cargo, b.handle)
			g.attach(ownerB, a)
			g.attach(ownerA, b)
		}

	case opReassign:
		rec := g.arena.get(o.a)
		if rec == nil {
			return changes
		}
		next := o.part.NewProperties()
		for _, p := range next.All() {
			if old, ok := rec.props.Lookup(p.ID()); ok && old.Kind() == p.Kind() {
				if err := p.Set(old.Get()); err == nil {
					p.Commit()
				}
			}
		}
		rec.part = o.part
		rec.props = next
	}
	return changes
}

// link connects a to b in direction d and b to a in the opposite direction.
// A link either end already had in that slot is removed from both of its
// endpoints first, so links stay symmetric.
func (g *Grid) link(a *record, d geom.Direction, b *record, changes []Change) []Change {
	opp := d.Opposite()
	if old, ok := a.links[d]; ok && old != b.handle {
		changes = g.unlink(a, d, changes)
	}
	if old, ok := b.links[opp]; ok && old != a.handle {
		changes = g.unlink(b, opp, changes)
	}
	if a.links[d] == b.handle && b.links[opp] == a.handle {
		return changes
	}
	a.links[d] = b.handle
	b.links[opp] = a.handle
	return append(changes, Change{Kind: ChangeConnectionAdded, Cell: a.handle, Other: b.handle, Direction: d})
}

func (g *Grid) unlink(a *record, d geom.Direction, changes []Change) []Change {
	bh, ok := a.links[d]
	if !ok {
		return changes
	}
	delete(a.links, d)
	if b := g.arena.get(bh); b != nil && b.links[d.Opposite()] == a.handle {
		delete(b.links, d.Opposite())
	}
	return append(changes, Change{Kind: ChangeConnectionRemoved, Cell: a.handle, Direction: d})
}
