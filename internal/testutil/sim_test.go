package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
)

type countingParticipant struct {
	engine.NopParticipant
	cycles int
}

func (p *countingParticipant) OnCycle(*engine.CycleContext) { p.cycles++ }

func TestNewSimulation(t *testing.T) {
	sim := NewSimulation(t, geom.Size{W: 2, H: 2}, engine.WithMaxCycles(3))
	p := &countingParticipant{}
	sim.Attach(p)

	Commence(t, sim)

	assert.Equal(t, RunID, sim.RunID())
	assert.Equal(t, 3, p.cycles)

	_, err := sim.PartOf("life")
	assert.NoError(t, err)
}
