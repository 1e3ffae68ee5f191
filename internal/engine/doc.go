// Package engine implements the statechart runtime.
//
// An Engine interprets one ir.Statechart for one entity. It holds the
// current state, the mutable context, the armed timeout and the visited
// history, and it notifies subscribed listeners after every accepted
// transition.
//
// ARCHITECTURE:
//
// Run-to-completion:
// Every input (Start, Send, a timeout firing) is processed under the engine
// mutex from start to finish before the next one begins. Processing an input
// means:
//  1. Pick the first transition of the current state whose event matches
//  2. Evaluate its guard against the current context; false is a no-op
//  3. Run the transition actions, then on_exit of the source state
//  4. Set the current state, append it to history, run on_entry of the target
//  5. Arm the target's timeout, publish a snapshot and notify listeners
//
// Events raised by actions are queued and drained after step 5, each as its
// own transition, bounded by the max-steps quota.
//
// Timers:
// Timeouts run on the Scheduler (time.AfterFunc in production). A firing
// callback re-acquires the mutex and acts only if its token is still the
// armed one and the engine is still in the state that armed it. Leaving a
// state cancels its timer; a stale callback that was already in flight is
// ignored.
//
// Actions:
// Actions are ir.Action records dispatched to the Executor registered for
// their kind. Unknown kinds and executor failures are logged and skipped.
//
// Logical clock:
// Inputs and steps are stamped from a monotonic Clock so a journal of inputs
// replays to identical steps.
//
// Listeners and executors run while the engine is locked. They may call
// Snapshot, which reads a published copy, but must never call Send; actions
// use ActionContext.Raise instead.
package engine
