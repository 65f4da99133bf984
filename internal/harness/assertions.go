package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/participant"
	"github.com/roach88/cellsim/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Trace    []participant.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event)
		}
	}
	return buf.String()
}

// assertTraceContains checks if the trace holds an event of the given kind,
// at the given cycle when one is set, whose fields include the expected
// ones.
func assertTraceContains(trace []participant.Event, assertion Assertion) error {
	for _, event := range trace {
		if string(event.Kind) != assertion.Kind {
			continue
		}
		if assertion.Cycle != 0 && event.Cycle != assertion.Cycle {
			continue
		}
		if matchFields(event.Fields, assertion.Fields) {
			return nil
		}
	}

	expected := fmt.Sprintf("%s with fields %s", assertion.Kind, formatFields(assertion.Fields))
	if assertion.Cycle != 0 {
		expected += fmt.Sprintf(" in cycle %d", assertion.Cycle)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the kinds first appear in the given order.
// Kinds don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []participant.Event, assertion Assertion) error {
	// Step 1: Find first position of each expected kind
	positions := make(map[string]int)
	for i, event := range trace {
		k := string(event.Kind)
		if positions[k] == 0 {
			positions[k] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all kinds found
	for _, k := range assertion.Kinds {
		if positions[k] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all kinds present: %v", assertion.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", k),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Kinds); i++ {
		prev := assertion.Kinds[i-1]
		curr := assertion.Kinds[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("kinds in order: %v", assertion.Kinds),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the kind appears exactly Count times.
func assertTraceCount(trace []participant.Event, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if string(event.Kind) == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the committed properties of one cell. Expected
// values are converted to the kind of the property before comparing.
func assertFinalState(sim *engine.Simulation, assertion Assertion) error {
	at := *assertion.At
	return sim.Access(func(cc *engine.CycleContext) error {
		c, err := cc.Cell(at)
		if err != nil {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("cell at %s", at),
				Actual:   err.Error(),
			}
		}
		if c.Part() == nil {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("a part at %s", at),
				Actual:   "cell is unplaced",
			}
		}

		names := make([]string, 0, len(assertion.Expect))
		for name := range assertion.Expect {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			id, err := value.ParsePropertyID(strings.ToUpper(name))
			if err != nil {
				return fmt.Errorf("final_state: %w", err)
			}
			actual, err := c.Get(id)
			if err != nil {
				return &AssertionError{
					Type:     AssertFinalState,
					Expected: fmt.Sprintf("property %s on %s at %s", id, c.Part().ID(), at),
					Actual:   err.Error(),
				}
			}
			expected, err := value.Convert(actual.Kind(), assertion.Expect[name])
			if err != nil {
				return &AssertionError{
					Type:     AssertFinalState,
					Expected: fmt.Sprintf("%s = %v", id, assertion.Expect[name]),
					Actual:   fmt.Sprintf("%s holds %s: %v", id, actual.Kind(), err),
				}
			}
			if !value.Equal(expected, actual) {
				return &AssertionError{
					Type:     AssertFinalState,
					Expected: fmt.Sprintf("%s at %s = %s", id, at, value.Format(expected)),
					Actual:   fmt.Sprintf("%s at %s = %s", id, at, value.Format(actual)),
				}
			}
		}
		return nil
	})
}

// assertFinalGrid compares the rendered grid. Trailing newlines are
// ignored so YAML block scalars can be used either way.
func assertFinalGrid(grid string, assertion Assertion) error {
	want := strings.TrimRight(assertion.Grid, "\n")
	got := strings.TrimRight(grid, "\n")
	if want != got {
		return &AssertionError{
			Type:     AssertFinalGrid,
			Expected: "\n" + want,
			Actual:   "\n" + got,
		}
	}
	return nil
}

// matchFields checks if actual fields contain all expected fields (subset
// match). Extra keys in actual are ignored.
func matchFields(actual, expected map[string]string) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// formatFields renders fields in key order.
func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return "(any)"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Sim *engine.Simulation
	Ctx context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides model access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Sim == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a simulation", i)
			} else {
				err = assertFinalState(actx.Sim, assertion)
			}
		case AssertFinalGrid:
			err = assertFinalGrid(result.Grid, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
