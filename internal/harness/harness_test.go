package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/participant"
)

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return s
}

func kindsOf(trace []participant.Event) []string {
	out := make([]string, len(trace))
	for i, e := range trace {
		out[i] = string(e.Kind)
	}
	return out
}

func TestRun_Passes(t *testing.T) {
	result, err := Run(mustParse(t, minimalScenario))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, DefaultRunID, result.RunID)
	assert.Equal(t, []string{"attach", "run", "model_loaded", "cycle", "stop", "detach"}, kindsOf(result.Trace))
	assert.Equal(t, "o\n", result.Grid)
}

func TestRun_FixedRunID(t *testing.T) {
	result, err := Run(mustParse(t, minimalScenario+"run_id: fixed-id\n"))
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", result.RunID)
}

func TestRun_Deterministic(t *testing.T) {
	s := mustParse(t, minimalScenario)
	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.TraceLines(), second.TraceLines())
}

func TestRun_FailedAssertion(t *testing.T) {
	result, err := Run(mustParse(t, `
name: failing
description: "counts the wrong number of cycles"
size: {w: 1, h: 1}
cycles: 2
assertions:
  - type: trace_count
    kind: cycle
    count: 5
`))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: trace_count")
	assert.Contains(t, result.Errors[0], "Actual: 2 occurrences")
}

func TestRun_Skip(t *testing.T) {
	result, err := Run(mustParse(t, `
name: quiet
description: "cycle notices are left out"
size: {w: 1, h: 1}
cycles: 3
skip: [cycle, attach, detach]
assertions:
  - type: trace_count
    kind: cycle
    count: 0
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"run", "model_loaded", "stop"}, kindsOf(result.Trace))
}

func TestRun_UnresolvedStep(t *testing.T) {
	result, err := Run(mustParse(t, `
name: ghost
description: "destroys cargo that was never spawned"
size: {w: 1, h: 1}
steps:
  - {action: destroy, cargo: 0}
cycles: 1
assertions:
  - type: trace_count
    kind: cargo_destroyed
    count: 0
`))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "cycle 1 step 0 (destroy): cargo 0 does not exist (0 live)", result.Errors[0])
}

func TestRun_Exception(t *testing.T) {
	result, err := Run(mustParse(t, `
name: no_delegate
description: "invoking a delegate the part lacks is reported"
size: {w: 1, h: 1}
place:
  - {at: {x: 0, y: 0}, part: wall}
steps:
  - {cycle: 2, action: invoke, at: {x: 0, y: 0}, name: press}
cycles: 2
assertions:
  - type: trace_contains
    kind: exception
    cycle: 2
    fields: {code: NO_DELEGATE}
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Requests(t *testing.T) {
	result, err := Run(mustParse(t, `
name: requests
description: "the less common requests reach every participant"
size: {w: 3, h: 1}
place:
  - {at: {x: 0, y: 0}, part: button}
  - {at: {x: 2, y: 0}, part: lamp}
steps:
  - {action: info, info: {author: test}}
  - {action: message, name: hello, value: 3}
  - {action: connect, at: {x: 0, y: 0}, direction: "pin[0]", to: {x: 2, y: 0}}
  - {cycle: 2, action: set, at: {x: 2, y: 0}, property: tint, value: "#ff0000ff"}
  - {cycle: 2, action: disconnect, at: {x: 0, y: 0}, direction: "pin[0]"}
  - {cycle: 3, action: place, at: {x: 1, y: 0}, part: wall}
  - {cycle: 4, action: clear, at: {x: 1, y: 0}}
cycles: 4
assertions:
  - type: trace_contains
    kind: info
    fields: {author: test}
  - type: trace_contains
    kind: message
    cycle: 1
    fields: {header: hello, content: "3"}
  - type: trace_contains
    kind: connection_added
    cycle: 1
    fields: {to: "#2.1", direction: "PIN[0]"}
  - type: trace_contains
    kind: connection_removed
    cycle: 2
  - type: trace_count
    kind: exception
    count: 0
  - type: final_state
    at: {x: 2, y: 0}
    expect: {tint: "#ff0000ff", lit: false}
  - type: final_grid
    grid: "_ o"
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FinalStateMismatch(t *testing.T) {
	result, err := Run(mustParse(t, `
name: mismatch
description: "an unpressed button is not firing"
size: {w: 1, h: 1}
place:
  - {at: {x: 0, y: 0}, part: button}
cycles: 1
assertions:
  - type: final_state
    at: {x: 0, y: 0}
    expect: {firing: true}
`))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "FIRING at (0,0) = true")
	assert.Contains(t, result.Errors[0], "FIRING at (0,0) = false")
}

func TestRun_CatalogParts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beacon.cue"), []byte(`package parts

part: beacon: {
	behavior: "lamp"
	traits: ["placeable", "visible", "output"]
	properties: [
		{id: "LIT", kind: "bool", default: false},
		{id: "TINT", kind: "color", default: "#00ff00ff"},
	]
}
`), 0o644))

	s := mustParse(t, `
name: catalog
description: "parts from a CUE catalog run next to the built-ins"
size: {w: 2, h: 1}
place:
  - {at: {x: 0, y: 0}, part: button}
  - {at: {x: 1, y: 0}, part: beacon}
steps:
  - {action: invoke, at: {x: 0, y: 0}, name: press}
cycles: 1
assertions:
  - type: final_state
    at: {x: 1, y: 0}
    expect: {lit: true, tint: "#00ff00ff"}
`)
	s.Parts = dir

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "!*\n", result.Grid)
}

func TestRun_UnknownPart(t *testing.T) {
	_, err := Run(mustParse(t, `
name: unknown
description: "places a part nobody registered"
size: {w: 1, h: 1}
place:
  - {at: {x: 0, y: 0}, part: teapot}
cycles: 1
assertions:
  - type: trace_count
    kind: cycle
    count: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "place[0]")
}

func TestRun_BadProperty(t *testing.T) {
	_, err := Run(mustParse(t, `
name: bad_prop
description: "a lamp has no speed"
size: {w: 1, h: 1}
place:
  - {at: {x: 0, y: 0}, part: lamp, props: {speed: 1}}
cycles: 1
assertions:
  - type: trace_count
    kind: cycle
    count: 1
`))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "has no property SPEED"), err.Error())
}

func TestConvertToValue(t *testing.T) {
	for _, raw := range []any{"x", true, 3, int64(4), 1.5} {
		v, err := convertToValue(raw)
		require.NoError(t, err)
		assert.NotNil(t, v)
	}
	_, err := convertToValue(nil)
	assert.Error(t, err)
	_, err = convertToValue([]int{1})
	assert.Error(t, err)
}
