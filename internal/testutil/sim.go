package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/logging"
	"github.com/roach88/cellsim/internal/parts"
)

// RunID is the run id every simulation built by NewSimulation reports.
const RunID = "run-1"

// CommenceTimeout bounds Commence so a run that never ends fails the test
// instead of hanging it.
const CommenceTimeout = 10 * time.Second

// NewSimulation builds a quiet simulation over the built-in parts with a
// fixed run id. opts are applied after the defaults and may override them.
func NewSimulation(t testing.TB, size geom.Size, opts ...engine.Option) *engine.Simulation {
	t.Helper()
	reg, err := parts.NewRegistry()
	require.NoError(t, err)
	base := []engine.Option{
		engine.WithLogger(logging.NewNop()),
		engine.WithGrid(size),
		engine.WithRegistry(reg),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(RunID)),
	}
	return engine.New(append(base, opts...)...)
}

// Commence runs sim to completion and fails the test on error or timeout.
func Commence(t testing.TB, sim *engine.Simulation) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), CommenceTimeout)
	defer cancel()
	require.NoError(t, sim.Commence(ctx))
}
