package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where RunWithGolden and AssertGolden keep their fixtures,
// relative to the test's package directory.
const GoldenDir = "testdata/golden"

// Snapshot renders a result as golden file content: the scenario name, the
// trace one event per line, and the final grid.
//
//	scenario: blinker
//	trace:
//	0 attach
//	...
//	grid:
//	.#.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	b.WriteString("scenario: " + name + "\n")
	b.WriteString("trace:\n")
	for _, line := range result.TraceLines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("grid:\n")
	b.WriteString(result.Grid)
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
