package ir

// Version constants for the cartridge format and runtime.
const (
	// FormatVersion is the cartridge schema version.
	FormatVersion = "1"

	// RuntimeVersion is the statechart runtime version.
	RuntimeVersion = "0.1.0"
)
