package participant

import (
	"sync"

	"github.com/roach88/cellsim/internal/engine"
)

// StepFunc runs once per cycle on the simulation goroutine. It may read the
// model and submit requests through ctx. Returning done or an error
// detaches the program.
type StepFunc func(ctx *engine.CycleContext) (done bool, err error)

// Program is a headless participant: it runs a step function every cycle
// and detaches after a fixed number of cycles or when the step says so.
type Program struct {
	engine.NopParticipant

	step  StepFunc
	limit int64

	sim       *engine.Simulation
	ran       int64
	detaching bool
	done      chan struct{}

	mu         sync.Mutex
	err        error
	exceptions []error
}

var _ engine.Participant = (*Program)(nil)

// NewProgram creates a program that runs step for up to cycles cycles.
// cycles <= 0 means no limit. step may be nil.
func NewProgram(cycles int64, step StepFunc) *Program {
	return &Program{step: step, limit: cycles, done: make(chan struct{})}
}

func (p *Program) OnAttach(sim *engine.Simulation, _ []string) {
	p.sim = sim
}

func (p *Program) OnCycle(ctx *engine.CycleContext) {
	if p.detaching {
		return
	}
	p.ran++

	done := p.limit > 0 && p.ran >= p.limit
	if p.step != nil {
		stepDone, err := p.step(ctx)
		if err != nil {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			p.sim.Logger().Warn("program step failed", "cycle", ctx.Cycle(), "error", err)
			done = true
		}
		done = done || stepDone
	}

	if done {
		p.detaching = true
		p.sim.DetachParticipant(p)
	}
}

func (p *Program) OnException(err error) {
	p.mu.Lock()
	p.exceptions = append(p.exceptions, err)
	p.mu.Unlock()
}

func (p *Program) OnDetach() {
	close(p.done)
}

// Done is closed once the program has been detached.
func (p *Program) Done() <-chan struct{} { return p.done }

// Cycles returns how many cycles the program has seen. Read it after Done.
func (p *Program) Cycles() int64 { return p.ran }

// Err returns the error that ended the program, if any.
func (p *Program) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Exceptions returns the exceptions delivered to the program.
func (p *Program) Exceptions() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.exceptions...)
}
