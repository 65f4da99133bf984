package participant

import (
	"context"
	"maps"
	"sync"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/store"
)

// Journal writes every notification to a store. Events are buffered during
// a dispatch and written in one transaction when the cycle notification
// arrives, and again on stop and detach.
//
// Write failures are logged through the simulation's logger and kept; the
// run continues. Err reports the first one.
type Journal struct {
	tap

	ctx   context.Context
	store *store.Store

	mu      sync.Mutex
	runID   string
	seq     int64
	pending []store.Event
	info    map[string]string
	err     error
}

var _ engine.Participant = (*Journal)(nil)

// NewJournal creates a journal writing to st. ctx bounds every write.
func NewJournal(ctx context.Context, st *store.Store) *Journal {
	j := &Journal{ctx: ctx, store: st, info: make(map[string]string)}
	j.emit = j.buffer
	return j
}

// OnAttach writes the run header and starts numbering after any events a
// previous run with the same id left behind.
func (j *Journal) OnAttach(sim *engine.Simulation, args []string) {
	size := sim.Grid().Size()
	var ids []string
	for _, p := range sim.Registry().All() {
		ids = append(ids, p.ID())
	}

	j.mu.Lock()
	j.runID = sim.RunID()
	err := j.store.WriteRun(j.ctx, store.Run{ID: j.runID, Width: size.W, Height: size.H, Parts: ids})
	if err == nil {
		j.seq, err = j.store.LastSeq(j.ctx, j.runID)
	}
	j.mu.Unlock()
	j.fail(sim, err)

	j.tap.OnAttach(sim, args)
}

func (j *Journal) buffer(e Event) {
	j.mu.Lock()
	j.seq++
	j.pending = append(j.pending, store.Event{
		RunID:   j.runID,
		Seq:     j.seq,
		Cycle:   e.Cycle,
		Kind:    string(e.Kind),
		Cell:    uint64(e.Cell),
		Payload: e.Fields,
	})
	if e.Kind == KindInfo {
		maps.Copy(j.info, e.Fields)
	}
	flush := e.Kind == KindCycle || e.Kind == KindStop || e.Kind == KindDetach
	j.mu.Unlock()

	if flush {
		j.fail(j.sim, j.Flush())
	}
}

// Flush writes buffered events and the merged run info.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.runID == "" {
		return nil
	}
	if err := j.store.WriteEvents(j.ctx, j.pending); err != nil {
		return err
	}
	j.pending = j.pending[:0]
	if len(j.info) > 0 {
		return j.store.UpdateRunInfo(j.ctx, j.runID, j.info)
	}
	return nil
}

// RunID returns the id of the run being journaled.
func (j *Journal) RunID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runID
}

// Err returns the first write failure, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Journal) fail(sim *engine.Simulation, err error) {
	if err == nil {
		return
	}
	j.mu.Lock()
	if j.err == nil {
		j.err = err
	}
	j.mu.Unlock()
	if sim != nil {
		sim.Logger().Warn("journal write failed", "run", j.RunID(), "error", err)
	}
}
