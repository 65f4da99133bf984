package engine

import (
	"image"
	"maps"
	"reflect"

	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/grid"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// DefaultImageSize is the canvas used for a redraw when a participant offers
// no ImageBase.
var DefaultImageSize = image.Rect(0, 0, 16, 16)

type noticeKind uint8

const (
	noticePartIncluded noticeKind = iota + 1
	noticePartRemoved
	noticeResize
	noticeModelLoaded
	noticeInfo
	noticeStep
	noticeAttach
	noticeDetach
)

// notice is a notification produced while draining requests rather than by
// the grid commit.
type notice struct {
	kind noticeKind
	part *part.Part
	id   string
	size geom.Size
	info map[string]string
	reg  *registration
}

// apply executes one drained request. Failures are logged and reported
// through OnException; they never stop the run.
func (s *Simulation) apply(r Request) {
	if err := s.execute(r); err != nil {
		s.logger.Warn("request failed", "kind", r.Kind.String(), "cycle", s.clock.Current(), "err", err)
		s.raise(err)
	}
}

func (s *Simulation) execute(r Request) error {
	g := s.grid
	switch r.Kind {
	case RequestSpawnCargo:
		p, err := s.registry.Lookup(r.PartID)
		if err != nil {
			return err
		}
		_, err = g.SpawnCargo(p, r.At)
		return err

	case RequestMoveCargo:
		return g.MoveCargo(r.Cell, r.Delta)

	case RequestDestroyCargo:
		return g.DestroyCargo(r.Cell)

	case RequestPlacePart:
		p, err := s.registry.Lookup(r.PartID)
		if err != nil {
			return err
		}
		return g.Place(r.Point, p)

	case RequestClearCell:
		return g.Clear(r.Point)

	case RequestIncludePart:
		if r.Part == nil {
			return fault.New(fault.CodeUnknownPart, "include without a part")
		}
		if err := s.registry.Include(r.Part); err != nil {
			return err
		}
		s.notices = append(s.notices, notice{kind: noticePartIncluded, part: r.Part})

	case RequestRemovePart:
		if err := s.registry.Remove(r.PartID); err != nil {
			return err
		}
		s.notices = append(s.notices, notice{kind: noticePartRemoved, id: r.PartID})

	case RequestSetProperty:
		c, err := g.View(r.Cell)
		if err != nil {
			return err
		}
		return c.Set(r.Property, r.Value)

	case RequestInvoke:
		return g.Run(r.Cell, func(c part.Cell) error {
			p := c.Part()
			if p == nil {
				return fault.New(fault.CodeCellNotInitialized, "cell %s has no part", c.Handle()).WithCell(uint64(c.Handle()))
			}
			return p.Invoke(r.Name, c, r.Args...)
		})

	case RequestConnect:
		return g.Connect(g.CellAt(r.Point), r.Direction, g.CellAt(r.To))

	case RequestDisconnect:
		return g.Disconnect(g.CellAt(r.Point), r.Direction)

	case RequestResize:
		g.Resize(r.Size)
		s.notices = append(s.notices, notice{kind: noticeResize, size: g.Size()})

	case RequestSelect:
		s.selected = r.Cell
		s.answer = r.Cell != 0

	case RequestRedraw:
		s.redraws = append(s.redraws, r.Cell)

	case RequestUpdateInfo:
		maps.Copy(s.info, r.Info)
		s.notices = append(s.notices, notice{kind: noticeInfo, info: maps.Clone(s.info)})

	case RequestLoadModel:
		return s.loadModel(r.Model)

	case RequestMessage:
		g.Note(grid.Change{Kind: grid.ChangeMessage, Header: r.Name, Content: r.Value})

	case RequestStep:
		s.notices = append(s.notices, notice{kind: noticeStep})

	case RequestStop:
		s.stopping = true

	case requestAttach:
		s.pmu.Lock()
		s.participants = append(s.participants, r.reg)
		s.pmu.Unlock()
		s.notices = append(s.notices, notice{kind: noticeAttach, reg: r.reg})

	case requestDetach:
		if reg := s.unregister(r.reg); reg != nil {
			s.notices = append(s.notices, notice{kind: noticeDetach, reg: reg})
		}

	default:
		return fault.New(fault.CodeNoDelegate, "unknown request kind %s", r.Kind)
	}
	return nil
}

// unregister removes the participant named by want from the table and
// returns its registration, or nil when it is not attached. want names it by
// id when set, otherwise by identity.
func (s *Simulation) unregister(want *registration) *registration {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	for i, reg := range s.participants {
		if (want.id != 0 && reg.id == want.id) || (want.id == 0 && sameParticipant(reg.p, want.p)) {
			s.participants = append(s.participants[:i:i], s.participants[i+1:]...)
			return reg
		}
	}
	return nil
}

// loadModel resizes and populates the grid. Placement failures are reported
// individually; the rest of the model still loads.
func (s *Simulation) loadModel(m Model) error {
	g := s.grid
	if m.Size.W > 0 && m.Size.H > 0 {
		g.Resize(m.Size)
		s.notices = append(s.notices, notice{kind: noticeResize, size: g.Size()})
	}
	for _, pl := range m.Placements {
		if err := s.place(pl); err != nil {
			s.logger.Warn("placement failed", "at", pl.At.String(), "part", pl.Part, "err", err)
			s.raise(err)
		}
	}
	s.notices = append(s.notices, notice{kind: noticeModelLoaded})
	return nil
}

func (s *Simulation) place(pl Placement) error {
	p, err := s.registry.Lookup(pl.Part)
	if err != nil {
		return err
	}
	if err := s.grid.Place(pl.At, p); err != nil {
		return err
	}
	c, err := s.grid.View(s.grid.CellAt(pl.At))
	if err != nil {
		return err
	}
	for id, v := range pl.Props {
		if err := c.Set(id, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) broadcast(fn func(p Participant)) {
	for _, reg := range s.snapshot() {
		if reg.attached {
			fn(reg.p)
		}
	}
}

func (s *Simulation) deliverExceptions() {
	errs := s.exceptions
	s.exceptions = nil
	for _, err := range errs {
		s.broadcast(func(p Participant) { p.OnException(err) })
	}
}

// dispatch delivers the notifications of a committed cycle: membership
// changes, drain notices, exceptions, grid changes in occurrence order,
// selection and redraw answers, and finally OnCycle.
func (s *Simulation) dispatch(cycle int64, changes []grid.Change) {
	notices := s.notices
	s.notices = nil

	// Membership changes are delivered in request order.
	for _, n := range notices {
		switch {
		case n.kind == noticeAttach && !n.reg.attached:
			n.reg.attached = true
			n.reg.p.OnAttach(s, n.reg.args)
		case n.kind == noticeDetach && n.reg.attached:
			n.reg.attached = false
			n.reg.p.OnDetach()
		}
	}

	for _, n := range notices {
		switch n.kind {
		case noticePartIncluded:
			s.broadcast(func(p Participant) { p.OnPartIncluded(n.part) })
		case noticePartRemoved:
			s.broadcast(func(p Participant) { p.OnPartRemoved(n.id) })
		case noticeResize:
			s.broadcast(func(p Participant) { p.OnResizeGrid(n.size) })
		case noticeModelLoaded:
			s.broadcast(func(p Participant) { p.OnModelLoaded() })
		case noticeInfo:
			s.broadcast(func(p Participant) { p.OnInfoUpdated(maps.Clone(n.info)) })
		case noticeStep:
			s.broadcast(func(p Participant) { p.OnStep() })
		}
	}

	s.deliverExceptions()

	for _, c := range changes {
		s.deliverChange(c)
	}

	if s.answer {
		s.answer = false
		s.answerSelection()
	}

	redraws := s.redraws
	s.redraws = nil
	for _, h := range redraws {
		s.redraw(h)
	}

	ctx := &CycleContext{sim: s, cycle: cycle}
	s.broadcast(func(p Participant) { p.OnCycle(ctx) })
}

func (s *Simulation) deliverChange(c grid.Change) {
	switch c.Kind {
	case grid.ChangeSpawned:
		s.broadcast(func(p Participant) { p.OnCargoSpawned(c.Cell) })
	case grid.ChangeMessage:
		s.broadcast(func(p Participant) { p.OnMessage(c.Header, c.Content) })
	case grid.ChangeProperty:
		if c.Cell != s.selected {
			return
		}
		s.broadcast(func(p Participant) { p.OnSelectionUpdate(c.Cell, c.Property, c.Content) })
	case grid.ChangeConnectionAdded:
		s.broadcast(func(p Participant) { p.OnConnectionAdded(c.Cell, c.Other, c.Direction) })
	case grid.ChangeConnectionRemoved:
		s.broadcast(func(p Participant) { p.OnConnectionRemoved(c.Cell, c.Direction) })
	case grid.ChangeMoved:
		s.broadcast(func(p Participant) { p.OnCargoMoved(c.Cell, c.Other) })
	case grid.ChangeDestroyed:
		if c.Cell == s.selected {
			s.selected = 0
		}
		s.broadcast(func(p Participant) { p.OnCargoDestroyed(c.Cell) })
	}
}

// answerSelection sends every property of the selected cell. Participants
// filter by access level themselves.
func (s *Simulation) answerSelection() {
	c, err := s.grid.View(s.selected)
	if err != nil {
		s.selected = 0
		s.broadcast(func(p Participant) { p.OnException(err) })
		return
	}
	if c.Part() == nil {
		return
	}
	for _, spec := range c.Part().Properties() {
		v, err := c.Get(spec.ID)
		if err != nil {
			continue
		}
		s.broadcast(func(p Participant) { p.OnSelectionUpdate(s.selected, spec.ID, v) })
	}
}

// redraw draws cell h once per participant, on that participant's base
// image, and hands the processed result back through OnRedraw.
func (s *Simulation) redraw(h value.Handle) {
	c, err := s.grid.View(h)
	if err == nil && c.Part() == nil {
		err = fault.New(fault.CodeCellNotInitialized, "cell %s has no part to draw", h).WithCell(uint64(h))
	}
	if err != nil {
		s.broadcast(func(p Participant) { p.OnException(err) })
		return
	}
	s.broadcast(func(p Participant) {
		img := p.ImageBase(h)
		if img == nil {
			img = image.NewRGBA(DefaultImageSize)
		}
		if err := c.Part().Draw(c, img); err != nil {
			p.OnException(fault.Wrap(fault.CodeDelegateFailed, err, "draw failed").
				WithCell(uint64(h)).
				WithPart(c.Part().ID()))
			return
		}
		p.OnRedraw(h, p.ProcessImage(h, img))
	})
}

// sameParticipant reports whether a and b are the same participant without
// panicking on uncomparable dynamic values.
func sameParticipant(a, b Participant) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
