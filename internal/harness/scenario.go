package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/participant"
)

// Scenario is a scripted simulation run. A scenario fixes the grid, the
// initial placements and cargo, and the requests submitted on each cycle,
// then asserts on the notification trace and the final model.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Size is the grid the simulation starts with.
	Size geom.Size `yaml:"size"`

	// Parts is an optional CUE catalog directory whose parts are included
	// next to the built-in ones. Relative to the scenario file when loaded
	// with LoadScenarioWithBasePath.
	Parts string `yaml:"parts,omitempty"`

	// Place lists the parts loaded as the model before the first cycle.
	Place []Placement `yaml:"place,omitempty"`

	// Spawn lists cargo created before the first cycle.
	Spawn []SpawnStep `yaml:"spawn,omitempty"`

	// Steps are requests submitted during the run.
	Steps []Step `yaml:"steps,omitempty"`

	// Cycles is the number of cycles to run. Required.
	Cycles int64 `yaml:"cycles"`

	// Skip names notification kinds left out of the trace.
	Skip []string `yaml:"skip,omitempty"`

	// Assertions validate the final trace and model.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id. If empty, defaults to
	// DefaultRunID so traces compare across runs.
	RunID string `yaml:"run_id,omitempty"`
}

// DefaultRunID is used when a scenario names no run id.
const DefaultRunID = "test-run-default"

// Placement puts a part on a cell, optionally overriding property defaults.
type Placement struct {
	At    geom.Point     `yaml:"at"`
	Part  string         `yaml:"part"`
	Props map[string]any `yaml:"props,omitempty"`
}

// SpawnStep creates one cargo item at an absolute position.
type SpawnStep struct {
	Part string   `yaml:"part"`
	At   geom.Vec `yaml:"at"`
}

// Step is one request, submitted so that it is drained in the MUTATE phase
// of Cycle.
type Step struct {
	// Cycle is the cycle that drains the request. Steps for cycle 1 are
	// submitted before the run starts. Defaults to 1.
	Cycle int64 `yaml:"cycle,omitempty"`

	// Action selects the request:
	//   spawn      part, pos
	//   move       cargo, delta
	//   destroy    cargo
	//   place      at, part
	//   clear      at
	//   invoke     at or cargo, name, args
	//   set        at or cargo, property, value
	//   connect    at, direction, to
	//   disconnect at, direction
	//   select     at or cargo
	//   redraw     at or cargo
	//   message    name, value
	//   info       info
	//   resize     size
	//   step
	//   stop
	Action string `yaml:"action"`

	At        *geom.Point       `yaml:"at,omitempty"`
	To        *geom.Point       `yaml:"to,omitempty"`
	Cargo     *int              `yaml:"cargo,omitempty"` // index into live cargo, spawn order
	Part      string            `yaml:"part,omitempty"`
	Pos       geom.Vec          `yaml:"pos,omitempty"`
	Delta     geom.Vec          `yaml:"delta,omitempty"`
	Name      string            `yaml:"name,omitempty"`
	Args      []any             `yaml:"args,omitempty"`
	Property  string            `yaml:"property,omitempty"`
	Value     any               `yaml:"value,omitempty"`
	Direction string            `yaml:"direction,omitempty"`
	Size      geom.Size         `yaml:"size,omitempty"`
	Info      map[string]string `yaml:"info,omitempty"`
}

// Step actions.
const (
	ActionSpawn      = "spawn"
	ActionMove       = "move"
	ActionDestroy    = "destroy"
	ActionPlace      = "place"
	ActionClear      = "clear"
	ActionInvoke     = "invoke"
	ActionSet        = "set"
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
	ActionSelect     = "select"
	ActionRedraw     = "redraw"
	ActionMessage    = "message"
	ActionInfo       = "info"
	ActionResize     = "resize"
	ActionStep       = "step"
	ActionStop       = "stop"
)

// Assertion validates the trace or the final model.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event of Kind appears, optionally at Cycle, with Fields
	// - "trace_order": Kinds appear in the given order
	// - "trace_count": Kind appears exactly Count times
	// - "final_state": the cell At holds the Expect property values
	// - "final_grid": the rendered grid equals Grid
	Type string `yaml:"type"`

	// Kind is the notification kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Cycle restricts trace_contains to one cycle. Zero matches any.
	Cycle int64 `yaml:"cycle,omitempty"`

	// Fields are expected event fields (trace_contains). Subset match.
	Fields map[string]string `yaml:"fields,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected kind order (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// At is the cell to inspect (final_state).
	At *geom.Point `yaml:"at,omitempty"`

	// Expect maps property names to expected values (final_state). Subset
	// match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Grid is the expected rendering (final_grid).
	Grid string `yaml:"grid,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertFinalGrid     = "final_grid"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative parts directory against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Parts != "" && !filepath.IsAbs(scenario.Parts) && basePath != "" {
		scenario.Parts = filepath.Join(basePath, scenario.Parts)
	}
	if scenario.Parts != "" {
		if _, err := os.Stat(scenario.Parts); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: parts directory not found: %s", scenario.Parts)
		}
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Size.W <= 0 || s.Size.H <= 0 {
		return fmt.Errorf("size must be positive, got %s", s.Size)
	}
	if s.Cycles <= 0 {
		return fmt.Errorf("cycles must be positive")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, pl := range s.Place {
		if pl.Part == "" {
			return fmt.Errorf("place[%d]: part is required", i)
		}
		if !s.Size.Contains(pl.At) {
			return fmt.Errorf("place[%d]: %s is outside the %s grid", i, pl.At, s.Size)
		}
	}
	for i, sp := range s.Spawn {
		if sp.Part == "" {
			return fmt.Errorf("spawn[%d]: part is required", i)
		}
	}
	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for _, k := range s.Skip {
		if !knownKind(k) {
			return fmt.Errorf("skip: unknown kind %q", k)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks that a step names what its action needs.
func validateStep(index int, st *Step) error {
	if st.Cycle == 0 {
		st.Cycle = 1
	}
	if st.Cycle < 0 {
		return fmt.Errorf("steps[%d]: cycle must be positive", index)
	}

	need := func(ok bool, what string) error {
		if !ok {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, what, st.Action)
		}
		return nil
	}
	target := st.At != nil || st.Cargo != nil

	switch st.Action {
	case ActionSpawn:
		return need(st.Part != "", "part")
	case ActionMove, ActionDestroy:
		return need(st.Cargo != nil, "cargo")
	case ActionPlace:
		if err := need(st.At != nil, "at"); err != nil {
			return err
		}
		return need(st.Part != "", "part")
	case ActionClear:
		return need(st.At != nil, "at")
	case ActionInvoke:
		if err := need(target, "at or cargo"); err != nil {
			return err
		}
		return need(st.Name != "", "name")
	case ActionSet:
		if err := need(target, "at or cargo"); err != nil {
			return err
		}
		if err := need(st.Property != "", "property"); err != nil {
			return err
		}
		return need(st.Value != nil, "value")
	case ActionConnect:
		if err := need(st.At != nil && st.To != nil, "at and to"); err != nil {
			return err
		}
		return need(st.Direction != "", "direction")
	case ActionDisconnect:
		if err := need(st.At != nil, "at"); err != nil {
			return err
		}
		return need(st.Direction != "", "direction")
	case ActionSelect, ActionRedraw:
		return need(target, "at or cargo")
	case ActionMessage:
		return need(st.Name != "", "name")
	case ActionInfo:
		return need(len(st.Info) > 0, "info")
	case ActionResize:
		return need(st.Size.W > 0 && st.Size.H > 0, "size")
	case ActionStep, ActionStop:
		return nil
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.At == nil {
			return fmt.Errorf("assertions[%d]: at is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertFinalGrid:
		if a.Grid == "" {
			return fmt.Errorf("assertions[%d]: grid is required for final_grid", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for _, k := range append([]string{a.Kind}, a.Kinds...) {
		if k != "" && !knownKind(k) {
			return fmt.Errorf("assertions[%d]: unknown kind %q", index, k)
		}
	}
	return nil
}

var kinds = map[participant.Kind]bool{
	participant.KindAttach:            true,
	participant.KindDetach:            true,
	participant.KindPartIncluded:      true,
	participant.KindPartRemoved:       true,
	participant.KindResize:            true,
	participant.KindModelLoaded:       true,
	participant.KindInfo:              true,
	participant.KindRun:               true,
	participant.KindStep:              true,
	participant.KindStop:              true,
	participant.KindCycle:             true,
	participant.KindMessage:           true,
	participant.KindException:         true,
	participant.KindSelection:         true,
	participant.KindRedraw:            true,
	participant.KindConnectionAdded:   true,
	participant.KindConnectionRemoved: true,
	participant.KindCargoSpawned:      true,
	participant.KindCargoMoved:        true,
	participant.KindCargoDestroyed:    true,
}

func knownKind(k string) bool {
	return kinds[participant.Kind(k)]
}
