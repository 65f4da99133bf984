package participant

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/value"
)

// ShellHelp lists the commands a Shell understands.
const ShellHelp = `commands:
  press X Y             invoke "press" on the cell at X,Y
  release X Y           invoke "release" on the cell at X,Y
  invoke NAME X Y [ARG] invoke any delegate, ARG is passed as text
  spawn PART X Y        spawn cargo at the center of X,Y
  set X Y PROP VALUE    stage a property value
  select X Y            watch the properties of X,Y
  step                  announce a step to every participant
  stop                  end the run
  help                  show this list`

var errUsage = errors.New("usage")

// Shell is an interactive text participant. Every cycle it writes the grid
// to its output; on its own goroutine it reads one command per line from
// its input and turns it into requests. End of input detaches the shell.
type Shell struct {
	engine.NopParticipant

	in  io.Reader
	out io.Writer

	sim  *engine.Simulation
	quit chan struct{}
	once sync.Once

	// mu serializes writes to out from the cycle loop and the reader.
	mu sync.Mutex
}

var _ engine.Participant = (*Shell)(nil)

// NewShell creates a shell reading commands from in and writing to out.
func NewShell(in io.Reader, out io.Writer) *Shell {
	return &Shell{in: in, out: out, quit: make(chan struct{})}
}

func (s *Shell) Input() io.Reader  { return s.in }
func (s *Shell) Output() io.Writer { return s.out }

// Done is closed once the shell has been detached.
func (s *Shell) Done() <-chan struct{} { return s.quit }

func (s *Shell) OnAttach(sim *engine.Simulation, _ []string) {
	s.sim = sim
	go s.read()
}

func (s *Shell) OnDetach() {
	s.once.Do(func() { close(s.quit) })
}

func (s *Shell) OnCycle(ctx *engine.CycleContext) {
	s.printf("cycle %d\n%s", ctx.Cycle(), Render(ctx.Grid()))
}

func (s *Shell) OnException(err error) {
	s.printf("error: %v\n", err)
}

func (s *Shell) OnMessage(header string, content value.Value) {
	s.printf("message %s: %s\n", header, value.Format(content))
}

func (s *Shell) OnSelectionUpdate(cell value.Handle, id value.PropertyID, v value.Value) {
	s.printf("%s %s = %s\n", cell, id, value.Format(v))
}

func (s *Shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) read() {
	sc := bufio.NewScanner(s.in)
	for sc.Scan() {
		select {
		case <-s.quit:
			return
		default:
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.Exec(line); err != nil {
			if errors.Is(err, errUsage) {
				s.printf("%v\n%s\n", err, ShellHelp)
			} else {
				s.printf("error: %v\n", err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		s.sim.Logger().Warn("shell input failed", "error", err)
	}
	s.sim.DetachParticipant(s)
}

// Exec runs one command line. It is safe to call from any goroutine except
// a participant callback.
func (s *Shell) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help":
		s.printf("%s\n", ShellHelp)
		return nil
	case "stop":
		s.sim.Stop()
		return nil
	case "step":
		s.sim.Submit(engine.Step())
		return nil
	case "press", "release":
		if len(args) != 2 {
			return fmt.Errorf("%w: %s X Y", errUsage, cmd)
		}
		return s.invoke(cmd, args[0], args[1], nil)
	case "invoke":
		if len(args) < 3 {
			return fmt.Errorf("%w: invoke NAME X Y [ARG]", errUsage)
		}
		var extra []value.Value
		if len(args) > 3 {
			extra = append(extra, value.NewText(strings.Join(args[3:], " ")))
		}
		return s.invoke(args[0], args[1], args[2], extra)
	case "spawn":
		if len(args) != 3 {
			return fmt.Errorf("%w: spawn PART X Y", errUsage)
		}
		pt, err := parsePoint(args[1], args[2])
		if err != nil {
			return err
		}
		at := pt.Vec().Add(geom.Vec{X: 0.5, Y: 0.5})
		s.sim.Submit(engine.SpawnCargo(args[0], at))
		return nil
	case "set":
		if len(args) != 4 {
			return fmt.Errorf("%w: set X Y PROP VALUE", errUsage)
		}
		return s.set(args[0], args[1], args[2], args[3])
	case "select":
		if len(args) != 2 {
			return fmt.Errorf("%w: select X Y", errUsage)
		}
		return s.withCell(args[0], args[1], func(ctx *engine.CycleContext, h value.Handle) error {
			ctx.Submit(engine.Select(h))
			return nil
		})
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (s *Shell) invoke(name, x, y string, args []value.Value) error {
	return s.withCell(x, y, func(ctx *engine.CycleContext, h value.Handle) error {
		ctx.Submit(engine.Invoke(h, name, args...))
		return nil
	})
}

func (s *Shell) set(x, y, prop, raw string) error {
	id, err := value.ParsePropertyID(strings.ToUpper(prop))
	if err != nil {
		return err
	}
	return s.withCell(x, y, func(ctx *engine.CycleContext, h value.Handle) error {
		c, err := ctx.Grid().View(h)
		if err != nil {
			return err
		}
		cur, err := c.Get(id)
		if err != nil {
			return err
		}
		v, err := value.Parse(cur.Kind(), raw)
		if err != nil {
			return err
		}
		ctx.Submit(engine.SetProperty(h, id, v))
		return nil
	})
}

// withCell resolves X,Y to a handle under the model lock.
func (s *Shell) withCell(x, y string, fn func(ctx *engine.CycleContext, h value.Handle) error) error {
	pt, err := parsePoint(x, y)
	if err != nil {
		return err
	}
	return s.sim.Access(func(ctx *engine.CycleContext) error {
		h := ctx.Grid().CellAt(pt)
		if h == 0 {
			return fmt.Errorf("%s is outside the %s grid", pt, ctx.Grid().Size())
		}
		return fn(ctx, h)
	})
}

func parsePoint(x, y string) (geom.Point, error) {
	px, err := strconv.Atoi(x)
	if err != nil {
		return geom.Point{}, fmt.Errorf("bad X %q", x)
	}
	py, err := strconv.Atoi(y)
	if err != nil {
		return geom.Point{}, fmt.Errorf("bad Y %q", y)
	}
	return geom.Point{X: px, Y: py}, nil
}
