// Package engine implements the cellsim cycle orchestrator.
//
// The Simulation owns the grid and advances it in cycles. Participants
// (shells, recorders, journals, scripted programs) attach to it, submit
// requests, and receive notifications.
//
// ARCHITECTURE:
//
// Single-Writer Cycle Loop:
// One goroutine, the caller of Commence, runs every cycle. This ensures:
// - Delegates run in a fixed order (row-major grid cells, then cargo in
// spawn order)
// - Every cycle observes a consistent snapshot of the previous commit
// - Notifications reach participants in occurrence order
//
// Cycle Flow:
// 1. Requests queued by Submit are drained once (MUTATE)
// 2. Each placed cell's cycle delegate stages its writes (MUTATE)
// 3. Staged state is applied as one batch (COMMIT)
// 4. Participants are notified of the cycle's changes (DISPATCH)
//
// A failing delegate is reported through OnException and its staged writes
// are rolled back; the run continues. A failing commit is fatal.
//
// LOCKING:
//
// MUTATE and COMMIT hold the high tier of a TierLock with low-tier admission
// closed. DISPATCH and Simulation.Access hold the low tier, so a participant
// goroutine can only touch the model between cycles.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Cycles are numbered by Clock.Next(). NEVER use wall-clock time for
// ordering; WithInterval only paces the loop.
package engine
