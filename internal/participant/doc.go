// Package participant provides ready-made simulation participants.
//
// Observers:
//   - Recorder keeps an in-memory trace of every notification
//   - Journal writes every notification to the SQLite journal
//   - Metrics exports counters, gauges and a cycle histogram to prometheus
//
// Drivers:
//   - Program runs a step function once per cycle on the simulation goroutine
//   - Shell renders the grid as text and turns typed commands into requests
//
// The observers share one translation from callbacks to Event values, so
// a recorded trace, a journal and the metric labels name notifications the
// same way.
package participant
