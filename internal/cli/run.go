package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/catalog"
	"github.com/roach88/cellsim/internal/config"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/harness"
	"github.com/roach88/cellsim/internal/logging"
	"github.com/roach88/cellsim/internal/participant"
	"github.com/roach88/cellsim/internal/parts"
	"github.com/roach88/cellsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the result printed when a run ends.
type RunSummary struct {
	RunID  string `json:"run_id"`
	Cycles int64  `json:"cycles"`
	Grid   string `json:"grid"`
	DB     string `json:"db,omitempty"`
}

// flag name -> config key
var runFlags = map[string]string{
	"width":        config.KeyGridWidth,
	"height":       config.KeyGridHeight,
	"cycles":       config.KeyCycles,
	"interval":     config.KeyInterval,
	"parts":        config.KeyPartsDir,
	"pattern":      config.KeyPattern,
	"db":           config.KeyDB,
	"metrics-addr": config.KeyMetricsAddr,
	"log-level":    config.KeyLogLevel,
	"shell":        config.KeyShell,
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Run a simulation on a grid loaded from a pattern.

Settings come from defaults, the --config file, CELLSIM_* environment
variables and flags, in increasing order of precedence. Patterns are
blinker, glider, demo or a pattern file path.

With --db every notification is journaled to SQLite; read it back with
"cellsim trace". With --metrics-addr a prometheus /metrics endpoint is
served for the length of the run. With --shell, commands are read from
stdin and the grid is printed every cycle.

Example:
  cellsim run --cycles 10 --pattern glider --width 8 --height 8
  cellsim run --shell --pattern demo --interval 500ms
  cellsim run --config cellsim.yaml --db ./cellsim.db --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.Int("width", 16, "grid width")
	f.Int("height", 16, "grid height")
	f.Int("cycles", 0, "cycles to run (0 = until the shell ends)")
	f.Duration("interval", 100*time.Millisecond, "minimum time between cycles")
	f.String("parts", "", "directory of CUE part declarations to include")
	f.String("pattern", config.PatternBlinker, "blinker, glider, demo or a pattern file")
	f.String("db", "", "path to SQLite journal")
	f.String("metrics-addr", "", "serve prometheus metrics on this address")
	f.String("log-level", "info", "debug, info, warn or error")
	f.Bool("shell", false, "read commands from stdin and print the grid every cycle")

	return cmd
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	v := config.New()
	for name, key := range runFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return WrapExitError(ExitCommandError, "failed to bind flag "+name, err)
		}
	}
	cfg, err := config.Load(v, opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, "text")

	reg, err := parts.NewRegistry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build registry", err)
	}
	if cfg.PartsDir != "" {
		logger.Info("loading parts", "dir", cfg.PartsDir)
		loaded, err := catalog.Load(cfg.PartsDir, parts.Library())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load parts", err)
		}
		for _, p := range loaded {
			if err := reg.Include(p); err != nil {
				return WrapExitError(ExitCommandError, "failed to include part "+p.ID(), err)
			}
		}
		logger.Info("parts loaded", "count", len(loaded))
	}

	size := geom.Size{W: cfg.Width, H: cfg.Height}
	pattern, err := LoadPattern(cfg.Pattern, size)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load pattern", err)
	}
	model, err := harness.BuildModel(reg, pattern.Place)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid pattern", err)
	}

	simOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithGrid(pattern.Size),
		engine.WithRegistry(reg),
		engine.WithInterval(cfg.Interval),
	}
	if opts.RunIDs != nil {
		simOpts = append(simOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	if cfg.Cycles > 0 {
		simOpts = append(simOpts, engine.WithMaxCycles(int64(cfg.Cycles)))
	}
	sim := engine.New(simOpts...)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			sim.Stop()
		case <-ctx.Done():
		}
	}()

	var journal *participant.Journal
	if cfg.DB != "" {
		st, err := store.Open(cfg.DB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		journal = participant.NewJournal(ctx, st)
		sim.Attach(journal)
	}

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(sim, cfg.MetricsAddr, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics endpoint", err)
		}
		defer stop()
	}

	// The driver decides when the run is over; the journal and metrics
	// would otherwise keep it alive.
	var done <-chan struct{}
	if cfg.Shell {
		sh := participant.NewShell(cmd.InOrStdin(), cmd.OutOrStdout())
		sim.Attach(sh)
		done = sh.Done()
	} else {
		prog := participant.NewProgram(int64(cfg.Cycles), nil)
		sim.Attach(prog)
		done = prog.Done()
	}
	go func() {
		select {
		case <-done:
			sim.Stop()
		case <-ctx.Done():
		}
	}()

	sim.Submit(engine.LoadModel(model))
	for _, sp := range pattern.Spawn {
		sim.Submit(engine.SpawnCargo(sp.Part, sp.At))
	}
	sim.Submit(engine.UpdateInfo(map[string]string{"pattern": cfg.Pattern}))

	logger.Debug("model queued", "pattern", cfg.Pattern, "placements", len(model.Placements), "cargo", len(pattern.Spawn))
	runErr := sim.Commence(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("simulation failed", "error", runErr)
		return WrapExitError(ExitFailure, "simulation failed", runErr)
	}
	if journal != nil {
		if err := journal.Err(); err != nil {
			return WrapExitError(ExitFailure, "journal write failed", err)
		}
	}
	logger.Info("simulation stopped", "cycles", sim.Cycle())

	summary := RunSummary{RunID: sim.RunID(), Cycles: sim.Cycle(), DB: cfg.DB}
	_ = sim.Access(func(cc *engine.CycleContext) error {
		summary.Grid = participant.Render(cc.Grid())
		return nil
	})
	return outputRunSummary(cmd, opts.Format, summary, cfg.Shell)
}

// serveMetrics attaches a Metrics participant and serves its registry on
// addr until the returned stop function is called.
func serveMetrics(sim *engine.Simulation, addr string, logger *slog.Logger) (func(), error) {
	promReg := prometheus.NewRegistry()
	m, err := participant.NewMetrics(promReg)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	sim.Attach(m)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// outputRunSummary prints the run id and final grid. The shell has already
// printed the grid every cycle, so text output skips it there.
func outputRunSummary(cmd *cobra.Command, format string, summary RunSummary, shell bool) error {
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summary, TraceID: summary.RunID})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s stopped after %d cycle(s)\n", summary.RunID, summary.Cycles)
	if !shell {
		fmt.Fprint(w, summary.Grid)
	}
	if summary.DB != "" {
		fmt.Fprintf(w, "Journal: %s\n", summary.DB)
	}
	return nil
}
