// Package compiler loads cartridge definitions from disk and checks their
// structure before any engine runs them.
//
// Cartridges are authored in CUE (a top-level "cartridge" struct keyed by
// cartridge id), JSON or YAML. CUE sources are unified with an embedded
// schema so type errors carry source positions. Every format decodes into
// the same ir.Cartridge, which Validate then checks for dangling targets,
// malformed guards and the like. Validation findings point back at source
// lines where the format allows it.
package compiler
