package participant

import (
	"strings"
	"sync"

	"github.com/roach88/cellsim/internal/engine"
)

// Recorder keeps every notification it receives, in delivery order.
//
// Thread-safety: Events, Trace and the other readers may be called from any
// goroutine while the simulation runs.
type Recorder struct {
	tap

	mu     sync.Mutex
	events []Event
	skip   map[Kind]bool
}

var _ engine.Participant = (*Recorder)(nil)

// NewRecorder creates a recorder. Kinds listed in skip are not recorded,
// which keeps golden traces free of noisy notifications such as redraws.
func NewRecorder(skip ...Kind) *Recorder {
	r := &Recorder{skip: make(map[Kind]bool, len(skip))}
	for _, k := range skip {
		r.skip[k] = true
	}
	r.emit = r.record
	return r
}

func (r *Recorder) record(e Event) {
	if r.skip[e.Kind] {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Of returns the recorded events of one kind.
func (r *Recorder) Of(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	return len(r.Of(kind))
}

// Kinds returns the kind of every recorded event, in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// Trace renders the recording one event per line.
func (r *Recorder) Trace() string {
	var b strings.Builder
	for _, e := range r.Events() {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Reset discards the recording.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
