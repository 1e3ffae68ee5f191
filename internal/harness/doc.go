// Package harness runs scenario tests against cartridge statecharts.
//
// A scenario loads a cartridge, starts one engine on one of its charts,
// feeds it events and virtual time, and checks the resulting trace and
// final snapshot.
//
// # Scenario Format
//
//	name: coin_flow
//	description: "Pressing with no coins does nothing"
//	cartridge: ../cartridges/arcade.yaml
//	chart: arcade.machine
//	context: { coins: 0 }
//	flow:
//	  - send: on_press
//	    expect: { accepted: false, state: idle }
//	  - send: insert_coin
//	    payload: { amount: 1 }
//	  - advance: 100ms
//	assertions:
//	  - type: final_state
//	    state: active
//	  - type: context
//	    expect: { coins: 1 }
//
// # Assertion Types
//
//   - final_state: the engine ends in state
//   - context: the final context contains expect (subset match)
//   - history: the visited states equal states
//   - done: the engine has (or has not) reached a final state
//   - trace_contains: a transition on event was taken
//   - trace_order: transitions on events were taken in order
//   - trace_count: transitions on event were taken exactly count times
//
// # Deterministic Testing
//
// Every scenario runs with a manual scheduler, so timeouts fire only on
// advance steps, and journals into an in-memory SQLite store. After the
// flow the harness replays the journal on a fresh engine and fails the
// scenario if any step digest differs. Traces are compared against
// testdata/golden/<name>.golden with RunWithGolden.
package harness
