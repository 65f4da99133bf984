package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/cellsim/internal/catalog"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/logging"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/participant"
	"github.com/roach88/cellsim/internal/parts"
	"github.com/roach88/cellsim/internal/value"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh simulation with the built-in parts and a
// fixed run id, so the same scenario always yields the same trace.
//
// Execution flow:
//  1. Build the registry (built-ins plus the scenario's catalog, if any)
//  2. Submit the model load, the initial spawns and the cycle 1 steps
//  3. Run Cycles cycles with a recorder and a scripted driver attached
//  4. Evaluate assertions against the trace and the final model
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context bounding the run.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	reg, err := parts.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	if scenario.Parts != "" {
		loaded, err := catalog.Load(scenario.Parts, parts.Library())
		if err != nil {
			return nil, fmt.Errorf("failed to load parts: %w", err)
		}
		for _, p := range loaded {
			if err := reg.Include(p); err != nil {
				return nil, fmt.Errorf("failed to include part %s: %w", p.ID(), err)
			}
		}
	}

	model, err := BuildModel(reg, scenario.Place)
	if err != nil {
		return nil, err
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}

	sim := engine.New(
		engine.WithLogger(logging.NewNop()),
		engine.WithGrid(scenario.Size),
		engine.WithRegistry(reg),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
		engine.WithMaxCycles(scenario.Cycles),
	)

	skip := make([]participant.Kind, 0, len(scenario.Skip))
	for _, k := range scenario.Skip {
		skip = append(skip, participant.Kind(k))
	}
	rec := participant.NewRecorder(skip...)
	drv := newDriver(scenario.Steps)

	sim.Attach(rec)
	sim.Attach(drv)

	sim.Submit(engine.LoadModel(model))
	for _, sp := range scenario.Spawn {
		sim.Submit(engine.SpawnCargo(sp.Part, sp.At))
	}
	if err := sim.Access(func(cc *engine.CycleContext) error {
		drv.submit(cc, 1)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := sim.Commence(ctx); err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}

	result := NewResult()
	result.RunID = sim.RunID()
	result.Trace = rec.Events()
	if err := sim.Access(func(cc *engine.CycleContext) error {
		result.Grid = participant.Render(cc.Grid())
		return nil
	}); err != nil {
		return nil, err
	}
	for _, msg := range drv.errs {
		result.AddError(msg)
	}

	actx := &AssertionContext{Sim: sim, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// BuildModel converts placements to a model, typing each property override
// by the kind the part declares for it.
func BuildModel(reg *part.Registry, place []Placement) (engine.Model, error) {
	var m engine.Model
	for i, pl := range place {
		p, err := reg.Lookup(pl.Part)
		if err != nil {
			return m, fmt.Errorf("place[%d]: %w", i, err)
		}
		props := make(map[value.PropertyID]value.Value, len(pl.Props))
		for name, raw := range pl.Props {
			id, err := value.ParsePropertyID(strings.ToUpper(name))
			if err != nil {
				return m, fmt.Errorf("place[%d]: %w", i, err)
			}
			spec, ok := p.Property(id)
			if !ok {
				return m, fmt.Errorf("place[%d]: part %s has no property %s", i, p.ID(), id)
			}
			v, err := value.Convert(spec.Default.Kind(), raw)
			if err != nil {
				return m, fmt.Errorf("place[%d] %s: %w", i, id, err)
			}
			props[id] = v
		}
		m.Placements = append(m.Placements, engine.Placement{At: pl.At, Part: pl.Part, Props: props})
	}
	return m, nil
}

// driver submits the scenario's steps. Steps for cycle N are submitted while
// cycle N-1 is dispatched, so handles resolve against the model every other
// participant sees at that point.
type driver struct {
	engine.NopParticipant

	steps map[int64][]Step
	errs  []string
}

func newDriver(steps []Step) *driver {
	d := &driver{steps: make(map[int64][]Step)}
	for _, st := range steps {
		d.steps[st.Cycle] = append(d.steps[st.Cycle], st)
	}
	return d
}

func (d *driver) OnCycle(ctx *engine.CycleContext) {
	d.submit(ctx, ctx.Cycle()+1)
}

func (d *driver) submit(ctx *engine.CycleContext, cycle int64) {
	for i, st := range d.steps[cycle] {
		r, err := resolve(ctx, st)
		if err != nil {
			d.errs = append(d.errs, fmt.Sprintf("cycle %d step %d (%s): %v", cycle, i, st.Action, err))
			continue
		}
		ctx.Submit(r)
	}
}

// resolve turns a step into a request against the current model.
func resolve(ctx *engine.CycleContext, st Step) (engine.Request, error) {
	g := ctx.Grid()
	switch st.Action {
	case ActionSpawn:
		return engine.SpawnCargo(st.Part, st.Pos), nil
	case ActionMove:
		h, err := target(ctx, st)
		if err != nil {
			return engine.Request{}, err
		}
		return engine.MoveCargo(h, st.Delta), nil
	case ActionDestroy:
		h, err := target(ctx, st)
		if err != nil {
			return engine.Request{}, err
		}
		return engine.DestroyCargo(h), nil
	case ActionPlace:
		return engine.PlacePart(*st.At, st.Part), nil
	case ActionClear:
		return engine.ClearCell(*st.At), nil
	case ActionInvoke:
		h, err := target(ctx, st)
		if err != nil {
			return engine.Request{}, err
		}
		args := make([]value.Value, 0, len(st.Args))
		for i, raw := range st.Args {
			v, err := convertToValue(raw)
			if err != nil {
				return engine.Request{}, fmt.Errorf("args[%d]: %w", i, err)
			}
			args = append(args, v)
		}
		return engine.Invoke(h, st.Name, args...), nil
	case ActionSet:
		h, err := target(ctx, st)
		if err != nil {
			return engine.Request{}, err
		}
		id, err := value.ParsePropertyID(strings.ToUpper(st.Property))
		if err != nil {
			return engine.Request{}, err
		}
		c, err := g.View(h)
		if err != nil {
			return engine.Request{}, err
		}
		cur, err := c.Get(id)
		if err != nil {
			return engine.Request{}, err
		}
		v, err := value.Convert(cur.Kind(), st.Value)
		if err != nil {
			return engine.Request{}, err
		}
		return engine.SetProperty(h, id, v), nil
	case ActionConnect:
		d, err := geom.ParseDirectionStrict(st.Direction)
		if err != nil {
			return engine.Request{}, err
		}
		return engine.Connect(*st.At, d, *st.To), nil
	case ActionDisconnect:
		d, err := geom.ParseDirectionStrict(st.Direction)
		if err != nil {
			return engine.Request{}, err
		}
		return engine.Disconnect(*st.At, d), nil
	case ActionSelect:
		h, err := target(ctx, st)
		if err != nil {
			return engine.Request{}, err
		}
		return engine.Select(h), nil
	case ActionRedraw:
		h, err := target(ctx, st)
		if err != nil {
			return engine.Request{}, err
		}
		return engine.Redraw(h), nil
	case ActionMessage:
		var content value.Value
		if st.Value != nil {
			v, err := convertToValue(st.Value)
			if err != nil {
				return engine.Request{}, err
			}
			content = v
		}
		return engine.Message(st.Name, content), nil
	case ActionInfo:
		return engine.UpdateInfo(st.Info), nil
	case ActionResize:
		return engine.Resize(st.Size), nil
	case ActionStep:
		return engine.Step(), nil
	case ActionStop:
		return engine.Stop(), nil
	}
	return engine.Request{}, fmt.Errorf("unknown action %q", st.Action)
}

// target resolves a step's cell or cargo reference to a handle.
func target(ctx *engine.CycleContext, st Step) (value.Handle, error) {
	g := ctx.Grid()
	if st.Cargo != nil {
		cargo := g.Cargo()
		i := *st.Cargo
		if i < 0 || i >= len(cargo) {
			return 0, fmt.Errorf("cargo %d does not exist (%d live)", i, len(cargo))
		}
		return cargo[i], nil
	}
	if st.At == nil {
		return 0, fmt.Errorf("no cell or cargo given")
	}
	h := g.CellAt(*st.At)
	if h == 0 {
		return 0, fmt.Errorf("%s is outside the %s grid", *st.At, g.Size())
	}
	return h, nil
}

// convertToValue converts a YAML-parsed scalar to a Value. Strings become
// text, whole numbers ints.
func convertToValue(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("null values are not allowed")
	case string:
		return value.NewText(v), nil
	case bool:
		return value.Bool(v), nil
	case int:
		return value.Int(int64(v)), nil
	case int64:
		return value.Int(v), nil
	case float64:
		return value.Float(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}
}
