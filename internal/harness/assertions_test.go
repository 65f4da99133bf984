package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/participant"
	"github.com/roach88/cellsim/internal/value"
)

func sampleTrace() []participant.Event {
	crate := value.MakeHandle(4, 1)
	return []participant.Event{
		{Cycle: 0, Kind: participant.KindRun},
		{Cycle: 1, Kind: participant.KindCargoSpawned, Cell: crate},
		{Cycle: 1, Kind: participant.KindCargoMoved, Cell: crate, Fields: map[string]string{"to": "#0.1"}},
		{Cycle: 2, Kind: participant.KindCargoMoved, Cell: crate, Fields: map[string]string{"to": "#1.1"}},
		{Cycle: 3, Kind: participant.KindCargoDestroyed, Cell: crate},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceContains(trace, Assertion{Kind: "cargo_moved"}))
	require.NoError(t, assertTraceContains(trace, Assertion{Kind: "cargo_moved", Cycle: 2, Fields: map[string]string{"to": "#1.1"}}))

	err := assertTraceContains(trace, Assertion{Kind: "cargo_moved", Cycle: 1, Fields: map[string]string{"to": "#1.1"}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Equal(t, "cargo_moved with fields to=#1.1 in cycle 1", ae.Expected)
	assert.Len(t, ae.Trace, len(trace))
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceOrder(trace, Assertion{Kinds: []string{"run", "cargo_spawned", "cargo_destroyed"}}))
	// Intervening events are allowed.
	require.NoError(t, assertTraceOrder(trace, Assertion{Kinds: []string{"run", "cargo_destroyed"}}))

	err := assertTraceOrder(trace, Assertion{Kinds: []string{"cargo_destroyed", "cargo_spawned"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cargo_destroyed (pos 5) should be before cargo_spawned (pos 2)")

	err = assertTraceOrder(trace, Assertion{Kinds: []string{"run", "message"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing kind: message")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceCount(trace, Assertion{Kind: "cargo_moved", Count: 2}))
	require.NoError(t, assertTraceCount(trace, Assertion{Kind: "exception", Count: 0}))

	err := assertTraceCount(trace, Assertion{Kind: "cargo_moved", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 3 occurrences of cargo_moved")
	assert.Contains(t, err.Error(), "Actual: 2 occurrences")
}

func TestAssertFinalGrid(t *testing.T) {
	require.NoError(t, assertFinalGrid("_o=\n", Assertion{Grid: "_o="}))
	require.NoError(t, assertFinalGrid("_o=", Assertion{Grid: "_o=\n"}))
	require.Error(t, assertFinalGrid("_*=\n", Assertion{Grid: "_o="}))
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1 occurrences of stop",
		Actual:   "0 occurrences",
		Trace:    []participant.Event{{Cycle: 0, Kind: participant.KindRun}},
	}
	assert.Equal(t, "Assertion failed: trace_count\n"+
		"  Expected: 1 occurrences of stop\n"+
		"  Actual: 0 occurrences\n"+
		"\nFull trace:\n"+
		"  [1] 0 run\n", err.Error())
}

func TestMatchFields(t *testing.T) {
	actual := map[string]string{"property": "LIT", "value": "true"}
	assert.True(t, matchFields(actual, nil))
	assert.True(t, matchFields(actual, map[string]string{"value": "true"}))
	assert.False(t, matchFields(actual, map[string]string{"value": "false"}))
	assert.False(t, matchFields(actual, map[string]string{"code": "NO_DELEGATE"}))
}

func TestFormatFields(t *testing.T) {
	assert.Equal(t, "(any)", formatFields(nil))
	assert.Equal(t, "a=1 b=2", formatFields(map[string]string{"b": "2", "a": "1"}))
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	result.Grid = ">>>=\n"

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Kind: "cargo_spawned", Count: 1},
		{Type: AssertFinalGrid, Grid: ">>>="},
		{Type: AssertFinalState, At: nil},
		{Type: "eventually"},
	}, nil)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "final_state requires a simulation")
	assert.Contains(t, errs[1], `unknown assertion type "eventually"`)
}
