// Package ir provides the data model for cartridges: statecharts, states,
// transitions, timeouts, actions and guard expressions.
//
// This package contains type definitions and their wire codecs only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// the model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Guards are data (a closed Condition/Group tree), never source text
//   - JSON tags follow the authored cartridge format (camelCase, with
//     on_entry/on_exit kept as authored)
//   - Context values are plain JSON values: string, float64, bool, nil,
//     []any and map[string]any
//   - Hashes use canonical JSON with domain separation
package ir
