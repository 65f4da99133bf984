// Package value provides the typed, staged storage model of the simulation.
//
// This package is the foundational layer: it imports only fault. Every cell
// attribute is a Property holding two slots of a closed Value variant:
//
//   - current: stable for the whole cycle, what default-mode readers see
//   - staged:  written during the cycle, promoted to current at commit
//
// Default-mode reads (Get) never observe a write made earlier or later in the
// same cycle. Now-mode reads (GetNow) see the staged slot, which lets a
// delegate query a neighbor's in-flight write when it explicitly asks to.
//
// Values never coerce across variants: reading an Int as a Float fails with
// fault.CodeTypeMismatch.
package value
