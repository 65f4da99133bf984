package store

// Run is the journal header for one simulation.
type Run struct {
	ID     string            `json:"id"`
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Parts  []string          `json:"parts"`
	Info   map[string]string `json:"info,omitempty"`
}

// Event is one journaled participant notification.
//
// Seq orders events within a run. Cycle is the cycle whose dispatch
// delivered the event; notifications delivered before the first cycle use
// cycle 0. Cell is the primary handle the event is about, 0 when none.
type Event struct {
	RunID   string            `json:"run_id"`
	Seq     int64             `json:"seq"`
	Cycle   int64             `json:"cycle"`
	Kind    string            `json:"kind"`
	Cell    uint64            `json:"cell,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
}
