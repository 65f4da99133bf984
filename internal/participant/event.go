package participant

import (
	"errors"
	"fmt"
	"image"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// Kind names a participant notification.
type Kind string

const (
	KindAttach            Kind = "attach"
	KindDetach            Kind = "detach"
	KindPartIncluded      Kind = "part_included"
	KindPartRemoved       Kind = "part_removed"
	KindResize            Kind = "resize"
	KindModelLoaded       Kind = "model_loaded"
	KindInfo              Kind = "info"
	KindRun               Kind = "run"
	KindStep              Kind = "step"
	KindStop              Kind = "stop"
	KindCycle             Kind = "cycle"
	KindMessage           Kind = "message"
	KindException         Kind = "exception"
	KindSelection         Kind = "selection"
	KindRedraw            Kind = "redraw"
	KindConnectionAdded   Kind = "connection_added"
	KindConnectionRemoved Kind = "connection_removed"
	KindCargoSpawned      Kind = "cargo_spawned"
	KindCargoMoved        Kind = "cargo_moved"
	KindCargoDestroyed    Kind = "cargo_destroyed"
)

// Event is one notification as an observer saw it.
type Event struct {
	// Cycle is the cycle being dispatched, 0 before the first one.
	Cycle  int64
	Kind   Kind
	Cell   value.Handle
	Fields map[string]string
}

// String renders the event on one line with fields in key order, e.g.
//
//	3 cargo_moved #4.1 to=#2.1
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", e.Cycle, e.Kind)
	if e.Cell != 0 {
		b.WriteByte(' ')
		b.WriteString(e.Cell.String())
	}
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(&b, " %s=%s", k, e.Fields[k])
	}
	return b.String()
}

// tap turns every callback into an Event and hands it to emit. Observers
// embed it and supply emit.
//
// All callbacks except a pre-run OnAttach arrive on the simulation
// goroutine, so tap itself keeps no lock.
type tap struct {
	engine.NopParticipant
	sim  *engine.Simulation
	emit func(Event)
}

func (t *tap) send(kind Kind, cell value.Handle, fields map[string]string) {
	var cycle int64
	if t.sim != nil {
		cycle = t.sim.Cycle()
	}
	t.emit(Event{Cycle: cycle, Kind: kind, Cell: cell, Fields: fields})
}

func (t *tap) OnAttach(sim *engine.Simulation, args []string) {
	t.sim = sim
	var fields map[string]string
	if len(args) > 0 {
		fields = map[string]string{"args": strings.Join(args, ",")}
	}
	t.send(KindAttach, 0, fields)
}

func (t *tap) OnDetach() { t.send(KindDetach, 0, nil) }

func (t *tap) OnPartIncluded(p *part.Part) {
	t.send(KindPartIncluded, 0, map[string]string{"part": p.ID()})
}

func (t *tap) OnPartRemoved(id string) {
	t.send(KindPartRemoved, 0, map[string]string{"part": id})
}

func (t *tap) OnResizeGrid(size geom.Size) {
	t.send(KindResize, 0, map[string]string{"size": size.String()})
}

func (t *tap) OnModelLoaded() { t.send(KindModelLoaded, 0, nil) }

func (t *tap) OnInfoUpdated(info map[string]string) {
	t.send(KindInfo, 0, maps.Clone(info))
}

func (t *tap) OnRun()  { t.send(KindRun, 0, nil) }
func (t *tap) OnStep() { t.send(KindStep, 0, nil) }
func (t *tap) OnStop() { t.send(KindStop, 0, nil) }

func (t *tap) OnCycle(ctx *engine.CycleContext) {
	g := ctx.Grid()
	t.send(KindCycle, 0, map[string]string{
		"live":  fmt.Sprint(g.Live()),
		"cargo": fmt.Sprint(len(g.Cargo())),
	})
}

func (t *tap) OnMessage(header string, content value.Value) {
	fields := map[string]string{"header": header}
	if content != nil {
		fields["content"] = value.Format(content)
	}
	t.send(KindMessage, 0, fields)
}

func (t *tap) OnException(err error) {
	fields := map[string]string{"error": err.Error()}
	var cell value.Handle
	var fe *fault.Error
	if errors.As(err, &fe) {
		fields["code"] = string(fe.Code)
		cell = value.Handle(fe.Cell)
		if fe.Fatal {
			fields["fatal"] = "true"
		}
	}
	t.send(KindException, cell, fields)
}

func (t *tap) OnSelectionUpdate(cell value.Handle, id value.PropertyID, v value.Value) {
	t.send(KindSelection, cell, map[string]string{
		"property": id.String(),
		"value":    value.Format(v),
	})
}

func (t *tap) OnRedraw(cell value.Handle, img *image.RGBA) {
	fields := map[string]string{}
	if img != nil {
		b := img.Bounds()
		fields["size"] = geom.Size{W: b.Dx(), H: b.Dy()}.String()
		c := img.RGBAAt(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)
		fields["center"] = value.Format(value.Color(c))
	}
	t.send(KindRedraw, cell, fields)
}

func (t *tap) OnConnectionAdded(from, to value.Handle, d geom.Direction) {
	t.send(KindConnectionAdded, from, map[string]string{"to": to.String(), "direction": d.String()})
}

func (t *tap) OnConnectionRemoved(from value.Handle, d geom.Direction) {
	t.send(KindConnectionRemoved, from, map[string]string{"direction": d.String()})
}

func (t *tap) OnCargoSpawned(id value.Handle) { t.send(KindCargoSpawned, id, nil) }

func (t *tap) OnCargoMoved(id, to value.Handle) {
	t.send(KindCargoMoved, id, map[string]string{"to": to.String()})
}

func (t *tap) OnCargoDestroyed(id value.Handle) { t.send(KindCargoDestroyed, id, nil) }
