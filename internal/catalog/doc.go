// Package catalog indexes the events offered by loaded cartridges.
//
// Every transition of every state contributes one (cartridge, statechart,
// event) triple, addressed by the dotted path cartridge.statechart.event.
// States that offer the same event collapse into a single entry whose
// FromStates lists them all. The catalog supports substring search for
// tooling and dispatch of an event by path to a running engine.
package catalog
