package grid

import (
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// record is the stored state of one cell or cargo item.
type record struct {
	handle value.Handle
	kind   part.CellKind
	part   *part.Part // nil while a grid cell is unplaced
	props  *value.Set

	// Grid cells.
	pos   geom.Point
	links map[geom.Direction]value.Handle
	cargo []value.Handle // owned cargo, spawn order

	// Cargo items.
	owner  value.Handle
	offset geom.Vec
	seq    uint64

	// Deferred cargo operations, applied at commit.
	moveBy    geom.Vec
	moving    bool
	destroyed bool
}

func (r *record) placed() bool {
	return r.part != nil
}

type slot struct {
	rec *record
	gen uint32
}

// arena stores records behind generation-checked handles. A freed slot bumps
// its generation, so handles to the old occupant stop resolving.
type arena struct {
	slots []slot
	free  []uint32
}

func (a *arena) alloc(rec *record) value.Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{gen: 1})
	}
	h := value.MakeHandle(idx, a.slots[idx].gen)
	rec.handle = h
	a.slots[idx].rec = rec
	return h
}

func (a *arena) get(h value.Handle) *record {
	idx := h.Index()
	if !h.Valid() || int(idx) >= len(a.slots) {
		return nil
	}
	s := a.slots[idx]
	if s.gen != h.Gen() {
		return nil
	}
	return s.rec
}

func (a *arena) release(h value.Handle) bool {
	if a.get(h) == nil {
		return false
	}
	idx := h.Index()
	a.slots[idx].rec = nil
	a.slots[idx].gen++
	if a.slots[idx].gen == 0 {
		a.slots[idx].gen = 1
	}
	a.free = append(a.free, idx)
	return true
}

func (a *arena) live() int {
	return len(a.slots) - len(a.free)
}
