package harness

import "github.com/roach88/cellsim/internal/participant"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success: every assertion held and every
	// step resolved.
	Pass bool `json:"pass"`

	// RunID is the id the simulation ran under.
	RunID string `json:"run_id"`

	// Trace contains every recorded notification in delivery order.
	Trace []participant.Event `json:"trace"`

	// Grid is the final model rendered with participant.Render.
	Grid string `json:"grid"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []participant.Event{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TraceLines renders the trace one event per line.
func (r *Result) TraceLines() []string {
	lines := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		lines[i] = e.String()
	}
	return lines
}
