// Package harness runs scripted simulation scenarios and checks their
// notification traces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: blinker
//	description: "A period-2 oscillator flips every cycle"
//	size: {w: 3, h: 3}
//	place:
//	  - {at: {x: 1, y: 0}, part: life, props: {alive: true}}
//	spawn:
//	  - {part: crate, at: {x: 0.5, y: 0.5}}
//	steps:
//	  - {cycle: 2, action: invoke, at: {x: 0, y: 0}, name: press}
//	cycles: 3
//	skip: [cycle]
//	assertions:
//	  - type: trace_contains
//	    kind: cargo_moved
//	    cycle: 2
//	    fields: {to: "#1.1"}
//	  - type: final_state
//	    at: {x: 1, y: 1}
//	    expect: {alive: true}
//	  - type: final_grid
//	    grid: |
//	      .#.
//
// # Assertion Types
//
//   - trace_contains: an event of a kind appears, optionally in one cycle, with matching fields
//   - trace_order: kinds first appear in the given order
//   - trace_count: a kind appears exactly N times
//   - final_state: a cell's committed properties hold the expected values
//   - final_grid: the rendered grid matches
//
// # Deterministic Testing
//
// Every run starts from a fresh simulation with the built-in parts, a fixed
// run id and a cycle limit, and requests are submitted at fixed cycles, so
// the same scenario always produces the same trace. Golden files compare
// that trace with RunWithGolden or AssertGolden.
package harness
