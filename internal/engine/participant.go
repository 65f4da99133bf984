package engine

import (
	"image"
	"io"

	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/grid"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// Participant observes and drives a simulation from outside the cycle loop.
//
// Every callback runs on the simulation goroutine while it holds the low
// tier of the model lock, so callbacks may read the model directly through
// the CycleContext or the grid handed to them. They must not call
// Simulation.Access, which would wait on the lock they are already inside.
// Requests submitted from a callback are drained at the start of the next
// cycle.
type Participant interface {
	OnAttach(sim *Simulation, args []string)
	OnDetach()

	OnPartIncluded(p *part.Part)
	OnPartRemoved(id string)
	OnResizeGrid(size geom.Size)
	OnModelLoaded()
	OnInfoUpdated(info map[string]string)

	OnRun()
	OnStep()
	OnStop()
	OnCycle(ctx *CycleContext)

	OnMessage(header string, content value.Value)
	OnException(err error)
	OnSelectionUpdate(cell value.Handle, id value.PropertyID, v value.Value)
	OnRedraw(cell value.Handle, img *image.RGBA)

	OnConnectionAdded(from, to value.Handle, d geom.Direction)
	OnConnectionRemoved(from value.Handle, d geom.Direction)
	OnCargoSpawned(id value.Handle)
	OnCargoMoved(id, to value.Handle)
	OnCargoDestroyed(id value.Handle)

	// ImageBase returns the canvas a redraw starts from, or nil for a
	// blank default.
	ImageBase(cell value.Handle) *image.RGBA
	// ProcessImage post-processes a drawn image before OnRedraw.
	ProcessImage(cell value.Handle, img *image.RGBA) *image.RGBA

	Input() io.Reader
	Output() io.Writer
}

// NopParticipant implements Participant with no-ops. Embed it and override
// the callbacks of interest.
type NopParticipant struct{}

var _ Participant = NopParticipant{}

func (NopParticipant) OnAttach(*Simulation, []string) {}
func (NopParticipant) OnDetach() {}
func (NopParticipant) OnPartIncluded(*part.Part) {}
func (NopParticipant) OnPartRemoved(string) {}
func (NopParticipant) OnResizeGrid(geom.Size) {}
func (NopParticipant) OnModelLoaded() {}
func (NopParticipant) OnInfoUpdated(map[string]string) {}
func (NopParticipant) OnRun() {}
func (NopParticipant) OnStep() {}
func (NopParticipant) OnStop() {}
func (NopParticipant) OnCycle(*CycleContext) {}
func (NopParticipant) OnMessage(string, value.Value) {}
func (NopParticipant) OnException(error) {}
func (NopParticipant) OnSelectionUpdate(value.Handle, value.PropertyID, value.Value) {}
func (NopParticipant) OnRedraw(value.Handle, *image.RGBA) {}
func (NopParticipant) OnConnectionAdded(value.Handle, value.Handle, geom.Direction) {}
func (NopParticipant) OnConnectionRemoved(value.Handle, geom.Direction) {}
func (NopParticipant) OnCargoSpawned(value.Handle) {}
func (NopParticipant) OnCargoMoved(value.Handle, value.Handle) {}
func (NopParticipant) OnCargoDestroyed(value.Handle) {}
func (NopParticipant) ImageBase(value.Handle) *image.RGBA { return nil }
func (NopParticipant) ProcessImage(_ value.Handle, img *image.RGBA) *image.RGBA { return img }
func (NopParticipant) Input() io.Reader { return nil }
func (NopParticipant) Output() io.Writer { return io.Discard }

// ParticipantID is the engine-assigned handle of an attached participant.
type ParticipantID uint64

type registration struct {
	id       ParticipantID
	p        Participant
	args     []string
	attached bool
}

// CycleContext is the model access window handed to OnCycle and to
// Simulation.Access callers. It is only valid for the duration of the call.
type CycleContext struct {
	sim   *Simulation
	cycle int64
}

// Cycle returns the number of the cycle that last committed.
func (c *CycleContext) Cycle() int64 { return c.cycle }

// Grid returns the model. Reads see committed state; writes through views
// are staged and commit with the next cycle.
func (c *CycleContext) Grid() *grid.Grid { return c.sim.grid }

// Simulation returns the owning simulation.
func (c *CycleContext) Simulation() *Simulation { return c.sim }

// Submit enqueues a request for the next cycle.
func (c *CycleContext) Submit(r Request) bool { return c.sim.Submit(r) }

// Cell returns the privileged view of the grid cell at pt.
func (c *CycleContext) Cell(pt geom.Point) (grid.FullGridCell, error) {
	return c.sim.grid.Full(pt)
}
