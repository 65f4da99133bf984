package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/participant"
)

// scenarioDir holds the scenarios shipped with the repository.
const scenarioDir = "../../testdata/scenarios"

func TestGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"blinker", "button_lamp", "cargo_belt"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenarioWithBasePath(filepath.Join(scenarioDir, name+".yaml"), scenarioDir)
			require.NoError(t, err)
			require.Equal(t, name, s.Name)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGolden_RepeatedRunsMatch(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "cargo_belt.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, Snapshot(s.Name, first), Snapshot(s.Name, second))
}

func TestSnapshot(t *testing.T) {
	result := NewResult()
	result.Trace = []participant.Event{
		{Cycle: 0, Kind: participant.KindRun},
		{Cycle: 1, Kind: participant.KindCycle, Fields: map[string]string{"live": "1", "cargo": "0"}},
	}
	result.Grid = "o\n"

	assert.Equal(t, "scenario: lamp\ntrace:\n0 run\n1 cycle cargo=0 live=1\ngrid:\no\n",
		string(Snapshot("lamp", result)))
}
