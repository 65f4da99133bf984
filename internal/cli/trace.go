package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/store"
	"github.com/roach88/cellsim/internal/value"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to one notification kind
	Cycle    int64  // optional - filter to one cycle, -1 for all
}

// TraceEvent represents a single journaled notification in the timeline.
type TraceEvent struct {
	Seq    int64             `json:"seq"`
	Cycle  int64             `json:"cycle"`
	Kind   string            `json:"kind"`
	Cell   string            `json:"cell,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      store.Run    `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Cycles      int            `json:"cycles"`
	ByKind      map[string]int `json:"by_kind"`
	Exceptions  int            `json:"exceptions"`
	IsComplete  bool           `json:"is_complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a journaled run",
		Long: `Show the notifications a run wrote to its journal.

Without --run, lists the journaled runs. With --run, prints the run header,
the timeline of notifications and per-kind counts.

Examples:
  cellsim trace --db ./cellsim.db
  cellsim trace --db ./cellsim.db --run 0190f5c8-...
  cellsim trace --db ./cellsim.db --run 0190f5c8-... --kind cargo_moved
  cellsim trace --db ./cellsim.db --run 0190f5c8-... --cycle 3 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show (lists runs when empty)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one notification kind")
	cmd.Flags().Int64Var(&opts.Cycle, "cycle", -1, "filter to one cycle")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRuns(cmd, opts.Format, runs)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var events []store.Event
	switch {
	case opts.Cycle >= 0:
		events, err = st.ReadCycle(ctx, opts.RunID, opts.Cycle)
	case opts.Kind != "":
		events, err = st.ReadKind(ctx, opts.RunID, opts.Kind)
	default:
		events, err = st.ReadEvents(ctx, opts.RunID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	counts, err := st.CountEvents(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count events", err)
	}

	result := TraceResult{
		Run:      run,
		Timeline: buildTimeline(events, opts.Kind),
		Stats: TraceStats{
			Cycles:     counts["cycle"],
			ByKind:     counts,
			Exceptions: counts["exception"],
			IsComplete: counts["stop"] > 0,
		},
	}
	for _, n := range counts {
		result.Stats.TotalEvents += n
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTimeline converts journal events to timeline entries, keeping only
// kindFilter when it is set.
func buildTimeline(events []store.Event, kindFilter string) []TraceEvent {
	timeline := []TraceEvent{}
	for _, ev := range events {
		if kindFilter != "" && ev.Kind != kindFilter {
			continue
		}
		te := TraceEvent{
			Seq:    ev.Seq,
			Cycle:  ev.Cycle,
			Kind:   ev.Kind,
			Fields: ev.Payload,
		}
		if ev.Cell != 0 {
			te.Cell = value.Handle(ev.Cell).String()
		}
		timeline = append(timeline, te)
	}
	return timeline
}

// outputRuns lists journaled runs.
func outputRuns(cmd *cobra.Command, format string, runs []store.Run) error {
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: runs})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs journaled.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %dx%d  %s\n", run.ID, run.Width, run.Height, strings.Join(run.Parts, ","))
	}
	return nil
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status:  "ok",
		Data:    result,
		TraceID: result.Run.ID,
	}

	return writeJSON(cmd.OutOrStdout(), response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Grid: %dx%d\n", result.Run.Width, result.Run.Height)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	if verbose {
		fmt.Fprintf(w, "Parts: %s\n", strings.Join(result.Run.Parts, ", "))
		if len(result.Run.Info) > 0 {
			fmt.Fprintf(w, "Info: %s\n", formatFields(result.Run.Info))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, event := range result.Timeline {
			formatTimelineEvent(w, event)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Cycles:       %d\n", result.Stats.Cycles)
	fmt.Fprintf(w, "  Exceptions:   %d\n", result.Stats.Exceptions)
	if verbose {
		for _, kind := range slices.Sorted(maps.Keys(result.Stats.ByKind)) {
			fmt.Fprintf(w, "  %-20s %d\n", kind+":", result.Stats.ByKind[kind])
		}
	}

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent) {
	fmt.Fprintf(w, "  [%d] %d %s", event.Seq, event.Cycle, event.Kind)
	if event.Cell != "" {
		fmt.Fprintf(w, " %s", event.Cell)
	}
	if len(event.Fields) > 0 {
		fmt.Fprintf(w, " %s", formatFields(event.Fields))
	}
	fmt.Fprintln(w)
}

// formatFields formats fields for display in sorted key order.
func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return "{}"
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
	return "{" + strings.Join(parts, ", ") + "}"
}

// completeStatus returns a human-readable completion status.
func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (no stop journaled)"
}
