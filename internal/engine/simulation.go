package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/grid"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/syncx"
	"github.com/roach88/cellsim/internal/value"
)

// State is the lifecycle state of a Simulation.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultGridSize is the grid a simulation starts with unless WithGrid is
// given.
var DefaultGridSize = geom.Size{W: 16, H: 16}

// Simulation is the cycle orchestrator.
//
// One goroutine, the one that calls Commence, owns the cycle loop:
//
//	MUTATE   drain requests, run every cycle delegate (staged writes)
//	COMMIT   apply staged state as one batch
//	DISPATCH deliver the cycle's notifications, then OnCycle
//
// MUTATE and COMMIT run under the high tier of the model lock with low-tier
// admission closed. DISPATCH runs under the low tier.
//
// Thread-safety model:
//   - Submit, Attach, Detach, Stop, AwaitCommit: safe from any goroutine
//   - Access: safe from any goroutine except inside a participant callback
//   - Commence: call exactly once, from one goroutine
type Simulation struct {
	logger    *slog.Logger
	lock      *syncx.TierLock
	grid      *grid.Grid
	registry  *part.Registry
	queue     *syncx.WorkQueue[Request]
	clock     *Clock
	committed *syncx.Latch
	runID     string
	maxCycles int64
	interval  time.Duration
	state     atomic.Int32
	commit    func() ([]grid.Change, error)

	pmu          sync.Mutex // guards participants and nextID
	participants []*registration
	nextID       ParticipantID

	exitMu   sync.Mutex
	exits    []func()
	exitOnce sync.Once

	failures atomic.Int64

	// Owned by the simulation goroutine.
	cycleState
}

// cycleState is the per-cycle bookkeeping of the simulation goroutine.
type cycleState struct {
	notices    []notice
	exceptions []error
	stopping   bool
	selected   value.Handle
	answer     bool
	redraws    []value.Handle
	info       map[string]string
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) {
		s.logger = l
	}
}

// WithGrid sets the initial grid size.
func WithGrid(size geom.Size) Option {
	return func(s *Simulation) {
		s.grid = grid.New(size)
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(s *Simulation) {
		s.runID = gen.Generate()
	}
}

// WithMaxCycles stops the run after n cycles. Zero means no limit.
func WithMaxCycles(n int64) Option {
	return func(s *Simulation) {
		s.maxCycles = n
	}
}

// WithRegistry sets the part registry the simulation places from.
func WithRegistry(r *part.Registry) Option {
	return func(s *Simulation) {
		s.registry = r
	}
}

// WithInterval paces the loop so cycles start at most once per d. Zero runs
// cycles back to back.
func WithInterval(d time.Duration) Option {
	return func(s *Simulation) {
		s.interval = d
	}
}

// New creates a simulation in the CREATED state.
func New(opts ...Option) *Simulation {
	s := &Simulation{
		logger:    slog.Default(),
		lock:      syncx.NewTierLock(),
		queue:     syncx.NewWorkQueue[Request](),
		clock:     NewClock(),
		committed: syncx.NewLatch(1),
	}
	s.info = make(map[string]string)

	for _, opt := range opts {
		opt(s)
	}

	if s.grid == nil {
		s.grid = grid.New(DefaultGridSize)
	}
	if s.registry == nil {
		s.registry, _ = part.NewRegistry()
	}
	if s.runID == "" {
		s.runID = UUIDv7Generator{}.Generate()
	}
	s.commit = s.grid.Commit
	return s
}

// RunID returns the run identifier.
func (s *Simulation) RunID() string { return s.runID }

// State returns the lifecycle state.
func (s *Simulation) State() State { return State(s.state.Load()) }

// Cycle returns the number of the last cycle started.
func (s *Simulation) Cycle() int64 { return s.clock.Current() }

// Grid returns the model. Only touch it from inside Access or a participant
// callback.
func (s *Simulation) Grid() *grid.Grid { return s.grid }

// Registry returns the part registry.
func (s *Simulation) Registry() *part.Registry { return s.registry }

// Logger returns the simulation's logger.
func (s *Simulation) Logger() *slog.Logger { return s.logger }

// PartOf returns the registered part with the given id.
func (s *Simulation) PartOf(id string) (*part.Part, error) {
	return s.registry.Lookup(id)
}

// IncludePart queues the inclusion of p into the registry.
func (s *Simulation) IncludePart(p *part.Part) bool {
	return s.Submit(IncludePart(p))
}

// RemovePart queues the removal of part id from the registry.
func (s *Simulation) RemovePart(id string) bool {
	return s.Submit(RemovePart(id))
}

// Submit enqueues r for the next cycle. It never blocks. Returns false once
// the simulation has stopped.
func (s *Simulation) Submit(r Request) bool {
	return s.queue.Push(r)
}

// Stop asks the run to end after the next commit.
func (s *Simulation) Stop() bool {
	return s.Submit(Stop())
}

// Access runs fn with the model under the low tier of the lock, between
// cycles. Writes fn stages commit with the next cycle.
//
// Calling Access from a participant callback deadlocks.
func (s *Simulation) Access(fn func(ctx *CycleContext) error) error {
	s.lock.LockLow()
	defer s.lock.UnlockLow()
	return fn(&CycleContext{sim: s, cycle: s.clock.Current()})
}

// AwaitCommit blocks until the next commit completes, the run ends, or ctx
// is done.
func (s *Simulation) AwaitCommit(ctx context.Context) error {
	if s.State() == StateStopped {
		return fault.New(fault.CodeStopped, "simulation has stopped")
	}
	return s.committed.WaitContext(ctx)
}

// CallOnExit registers fn to run once when the run ends. Exit functions run
// in registration order.
func (s *Simulation) CallOnExit(fn func()) {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	s.exits = append(s.exits, fn)
}

// Attach registers p. On a simulation that has not commenced, OnAttach is
// called immediately on the caller's goroutine. Otherwise the attach is
// queued and OnAttach arrives with the next cycle's dispatch.
func (s *Simulation) Attach(p Participant, args ...string) ParticipantID {
	s.pmu.Lock()
	s.nextID++
	reg := &registration{id: s.nextID, p: p, args: args}
	if s.State() == StateCreated {
		reg.attached = true
		s.participants = append(s.participants, reg)
		s.pmu.Unlock()
		p.OnAttach(s, args)
		return reg.id
	}
	s.pmu.Unlock()

	s.queue.Push(Request{Kind: requestAttach, reg: reg})
	return reg.id
}

// Detach queues the removal of the participant registered under id.
// OnDetach arrives with the next dispatch and the participant receives
// nothing after it. Detach is safe to call from the participant's own
// callbacks.
func (s *Simulation) Detach(id ParticipantID) {
	s.queue.Push(Request{Kind: requestDetach, reg: &registration{id: id}})
}

// DetachParticipant queues the removal of p, matched by identity. A p whose
// dynamic value is not comparable never matches; detach it by id instead.
func (s *Simulation) DetachParticipant(p Participant) {
	s.queue.Push(Request{Kind: requestDetach, reg: &registration{p: p}})
}

// Participants returns the number of attached participants.
func (s *Simulation) Participants() int {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return len(s.participants)
}

func (s *Simulation) snapshot() []*registration {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return append([]*registration(nil), s.participants...)
}

// Commence runs cycles until every participant has detached, a stop request
// is drained, the cycle limit is reached, ctx is cancelled, or a commit
// fails. A failed commit is returned as a fatal *fault.Error. Exit functions
// run before Commence returns.
//
// With no participant attached Commence returns immediately.
func (s *Simulation) Commence(ctx context.Context) error {
	s.pmu.Lock()
	ok := s.state.CompareAndSwap(int32(StateCreated), int32(StateRunning))
	empty := len(s.participants) == 0
	s.pmu.Unlock()
	if !ok {
		return fault.New(fault.CodeStopped, "simulation already commenced")
	}
	defer s.finish()

	if empty {
		s.logger.Info("simulation has no participants", "run_id", s.runID)
		return nil
	}

	s.logger.Info("simulation starting", "run_id", s.runID, "size", s.grid.Size().String())
	s.broadcast(func(p Participant) { p.OnRun() })

	var ticker *time.Ticker
	if s.interval > 0 {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("simulation stopping: context cancelled", "cycle", s.clock.Current())
			return err
		}

		done, err := s.runCycle()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if s.maxCycles > 0 && s.clock.Current() >= s.maxCycles {
			s.logger.Info("simulation stopping: cycle limit", "cycles", s.maxCycles)
			return nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
	}
}

// runCycle runs one MUTATE/COMMIT/DISPATCH round. It reports whether the
// run is over.
func (s *Simulation) runCycle() (done bool, err error) {
	cycle := s.clock.Next()

	s.lock.CloseLow()
	s.lock.LockHigh()
	changes, err := s.mutateAndCommit(cycle)
	s.committed.Arrive(1)
	s.committed.Reset()
	s.lock.UnlockHigh()
	s.lock.OpenLow()

	if err != nil {
		s.logger.Error("commit failed", "cycle", cycle, "err", err)
		s.lock.LockLow()
		s.raise(err)
		s.deliverExceptions()
		s.lock.UnlockLow()
		return true, err
	}

	s.lock.LockLow()
	s.dispatch(cycle, changes)
	s.lock.UnlockLow()

	if s.stopping {
		s.logger.Info("simulation stopping: stop requested", "cycle", cycle)
		return true, nil
	}
	if s.Participants() == 0 {
		s.logger.Info("simulation stopping: all participants detached", "cycle", cycle)
		return true, nil
	}
	return false, nil
}

func (s *Simulation) mutateAndCommit(cycle int64) (changes []grid.Change, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.Fatalf(fault.CodeCommitFailed, nil, "panic in cycle %d: %v", cycle, r)
		}
	}()

	s.queue.DrainAll(s.apply)

	if !s.stopping {
		for _, h := range s.grid.Placed() {
			s.runDelegate(h)
		}
		for _, h := range s.grid.Cargo() {
			s.runDelegate(h)
		}
	}

	changes, err = s.commit()
	if err != nil {
		if !fault.IsFatal(err) {
			err = fault.Fatalf(fault.CodeCommitFailed, err, "commit cycle %d", cycle)
		}
		return changes, err
	}
	return changes, nil
}

func (s *Simulation) runDelegate(h value.Handle) {
	err := s.grid.Run(h, func(c part.Cell) error {
		return c.Part().Cycle(c)
	})
	if err != nil {
		s.failures.Add(1)
		s.raise(err)
	}
}

// raise queues err for OnException. Without participants it is logged.
func (s *Simulation) raise(err error) {
	if s.Participants() == 0 {
		s.logger.Error("simulation error", "cycle", s.clock.Current(), "err", err)
		return
	}
	s.exceptions = append(s.exceptions, err)
}

// Failures returns the number of delegate failures so far.
func (s *Simulation) Failures() int64 {
	return s.failures.Load()
}

// finish tears the run down: OnStop and OnDetach to whoever is still
// attached, then the exit functions.
func (s *Simulation) finish() {
	s.state.Store(int32(StateStopped))
	s.queue.Close()

	s.lock.LockLow()
	var remaining []*registration
	for _, reg := range s.snapshot() {
		if reg.attached {
			remaining = append(remaining, reg)
		}
	}
	for _, reg := range remaining {
		reg.p.OnStop()
	}
	for _, reg := range remaining {
		reg.attached = false
		reg.p.OnDetach()
	}
	s.pmu.Lock()
	s.participants = nil
	s.pmu.Unlock()
	s.lock.UnlockLow()

	s.committed.Arrive(1)

	s.exitOnce.Do(func() {
		s.exitMu.Lock()
		exits := append([]func(){}, s.exits...)
		s.exitMu.Unlock()
		for _, fn := range exits {
			fn()
		}
	})
	s.logger.Info("simulation stopped", "run_id", s.runID, "cycles", s.clock.Current())
}
