package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/store"
)

func newTestRunCommand(format string, args ...string) (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      engine.NewFixedGenerator("run-1"),
	}
	cmd := newRunCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--interval", "0"}, args...))
	return cmd, buf
}

func execute(t *testing.T, cmd *cobra.Command) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return cmd.ExecuteContext(ctx)
}

func TestRun_Cycles(t *testing.T) {
	cmd, buf := newTestRunCommand("text", "--cycles", "3", "--width", "3", "--height", "3")
	require.NoError(t, execute(t, cmd))

	assert.Equal(t, "Run run-1 stopped after 3 cycle(s)\n.#.\n.#.\n.#.\n", buf.String())
}

func TestRun_JSON(t *testing.T) {
	cmd, buf := newTestRunCommand("json", "--cycles", "2", "--width", "3", "--height", "3")
	require.NoError(t, execute(t, cmd))

	var resp struct {
		Status  string     `json:"status"`
		Data    RunSummary `json:"data"`
		TraceID string     `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.TraceID)
	assert.Equal(t, int64(2), resp.Data.Cycles)
	assert.Equal(t, "...\n###\n...\n", resp.Data.Grid)
}

func TestRun_Journal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "run.db")
	cmd, buf := newTestRunCommand("text", "--cycles", "4", "--pattern", "demo",
		"--width", "4", "--height", "2", "--db", dbPath)
	require.NoError(t, execute(t, cmd))
	assert.Contains(t, buf.String(), "Journal: "+dbPath)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 4, run.Width)
	assert.Equal(t, 2, run.Height)
	assert.Equal(t, "demo", run.Info["pattern"])

	counts, err := st.CountEvents(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 4, counts["cycle"])
	assert.Equal(t, 1, counts["cargo_spawned"])
	assert.Equal(t, 1, counts["stop"])
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid:\n  width: 5\n  height: 3\ncycles: 1\ninterval: 0s\n"), 0o644))

	buf := &bytes.Buffer{}
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text", ConfigFile: path},
		RunIDs:      engine.NewFixedGenerator("run-1"),
	}
	cmd := newRunCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--width", "3"}) // flags override the file
	require.NoError(t, execute(t, cmd))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Run run-1 stopped after 1 cycle(s)", lines[0])
	assert.Len(t, lines[1], 3)
}

func TestRun_PatternFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pattern.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
size: {w: 3, h: 1}
place:
  - {at: {x: 0, y: 0}, part: button}
  - {at: {x: 1, y: 0}, part: lamp}
  - {at: {x: 2, y: 0}, part: wall}
`), 0o644))

	cmd, buf := newTestRunCommand("text", "--cycles", "1", "--pattern", path)
	require.NoError(t, execute(t, cmd))
	assert.Contains(t, buf.String(), "_o=\n")
}

func TestRun_Shell(t *testing.T) {
	cmd, buf := newTestRunCommand("text", "--shell", "--pattern", "demo", "--width", "4", "--height", "2")
	cmd.SetIn(strings.NewReader("stop\n"))

	require.NoError(t, execute(t, cmd))
	assert.Contains(t, buf.String(), "Run run-1 stopped after")
}

func TestRun_Metrics(t *testing.T) {
	cmd, buf := newTestRunCommand("text", "--cycles", "2", "--width", "3", "--height", "3",
		"--metrics-addr", "127.0.0.1:0")
	require.NoError(t, execute(t, cmd))
	assert.Contains(t, buf.String(), "stopped after 2 cycle(s)")
}

func TestRun_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"empty grid", []string{"--cycles", "1", "--width", "0"}, "grid width and height must be positive"},
		{"nothing to run", []string{"--cycles", "0"}, "cycles must be set"},
		{"bad log level", []string{"--cycles", "1", "--log-level", "loud"}, "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := newTestRunCommand("text", tt.args...)
			err := execute(t, cmd)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_MissingPartsDir(t *testing.T) {
	cmd, _ := newTestRunCommand("text", "--cycles", "1", "--parts", filepath.Join(t.TempDir(), "nope"))
	err := execute(t, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load parts")
}

func TestRun_PatternTooSmall(t *testing.T) {
	cmd, _ := newTestRunCommand("text", "--cycles", "1", "--width", "2", "--height", "2")
	err := execute(t, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blinker needs at least a 3x3 grid")
}

func TestRunHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	output := buf.String()
	assert.Contains(t, output, "Run a simulation on a grid loaded from a pattern")
	assert.Contains(t, output, "--metrics-addr")
	assert.Contains(t, output, "--shell")
}

func TestLoadPattern(t *testing.T) {
	p, err := LoadPattern("blinker", geom.Size{W: 5, H: 5})
	require.NoError(t, err)
	assert.Len(t, p.Place, 25)
	var alive []geom.Point
	for _, pl := range p.Place {
		if pl.Props["alive"] == true {
			alive = append(alive, pl.At)
		}
	}
	assert.Equal(t, []geom.Point{{X: 2, Y: 1}, {X: 2, Y: 2}, {X: 2, Y: 3}}, alive)

	p, err = LoadPattern("demo", geom.Size{W: 5, H: 2})
	require.NoError(t, err)
	assert.Len(t, p.Place, 7)
	require.Len(t, p.Spawn, 1)
	assert.Equal(t, "crate", p.Spawn[0].Part)

	_, err = LoadPattern("glider", geom.Size{W: 2, H: 8})
	assert.Error(t, err)
}

func TestLoadPattern_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.yaml")

	require.NoError(t, os.WriteFile(path, []byte("place:\n  - {at: {x: 1, y: 1}, part: wall}\n"), 0o644))
	p, err := LoadPattern(path, geom.Size{W: 2, H: 2})
	require.NoError(t, err)
	assert.Equal(t, geom.Size{W: 2, H: 2}, p.Size, "size defaults to the configured grid")

	require.NoError(t, os.WriteFile(path, []byte("place:\n  - {at: {x: 4, y: 0}, part: wall}\n"), 0o644))
	_, err = LoadPattern(path, geom.Size{W: 2, H: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the 2x2 grid")

	require.NoError(t, os.WriteFile(path, []byte("cells: []\n"), 0o644))
	_, err = LoadPattern(path, geom.Size{W: 2, H: 2})
	assert.Error(t, err)

	_, err = LoadPattern(filepath.Join(dir, "missing.yaml"), geom.Size{W: 2, H: 2})
	assert.Error(t, err)
}
