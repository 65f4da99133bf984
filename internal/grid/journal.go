package grid

import (
	"fmt"

	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// Mark returns a position in the undo journal. Everything staged after the
// mark can be taken back with Rollback until the next Commit.
func (g *Grid) Mark() int {
	return len(g.undo)
}

// Rollback reverts every staged write, op and message recorded since mark.
func (g *Grid) Rollback(mark int) {
	for i := len(g.undo) - 1; i >= mark; i-- {
		g.undo[i]()
	}
	g.undo = g.undo[:mark]
}

// Run calls fn with a view of cell h. If fn returns an error or panics, the
// writes it staged are rolled back and the failure is returned as a
// non-fatal CodeDelegateFailed error.
func (g *Grid) Run(h value.Handle, fn func(c part.Cell) error) (err error) {
	c, err := g.View(h)
	if err != nil {
		return err
	}
	partID := ""
	if p := c.Part(); p != nil {
		partID = p.ID()
	}

	mark := g.Mark()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			g.Rollback(mark)
			err = fault.Wrap(fault.CodeDelegateFailed, err, "delegate failed").
				WithCell(uint64(h)).
				WithPart(partID)
		}
	}()
	return fn(c)
}

func (g *Grid) note(c Change) {
	n := len(g.changes)
	g.changes = append(g.changes, c)
	g.undo = append(g.undo, func() { g.changes = g.changes[:n] })
}

func (g *Grid) pushOp(o op) {
	n := len(g.ops)
	g.ops = append(g.ops, o)
	g.undo = append(g.undo, func() { g.ops = g.ops[:n] })
}

func (g *Grid) stage(p *value.Property, v value.Value) error {
	prev, prevDirty := p.GetNow(), p.Dirty()
	if err := p.Set(v); err != nil {
		return err
	}
	g.undo = append(g.undo, func() {
		if prevDirty {
			_ = p.Set(prev)
		} else {
			p.Discard()
		}
	})
	return nil
}

func (g *Grid) stageMove(rec *record, delta geom.Vec) {
	prev, prevMoving := rec.moveBy, rec.moving
	rec.moveBy = rec.moveBy.Add(delta)
	rec.moving = true
	g.undo = append(g.undo, func() {
		rec.moveBy, rec.moving = prev, prevMoving
	})
}

func (g *Grid) stageDestroy(rec *record) {
	if rec.destroyed {
		return
	}
	rec.destroyed = true
	g.undo = append(g.undo, func() { rec.destroyed = false })
}
