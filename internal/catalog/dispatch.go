package catalog

import (
	"errors"
	"fmt"

	"github.com/roach88/cartridge/internal/engine"
)

var (
	// ErrUnknownPath is returned when a path is not in the catalog.
	ErrUnknownPath = errors.New("unknown event path")

	// ErrUnknownEntity is returned when no engine runs under the entity id.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrChartMismatch is returned when the entity's engine interprets a
	// different statechart than the path names.
	ErrChartMismatch = errors.New("statechart mismatch")
)

// EngineLookup finds the engine for an entity. engine.Registry satisfies it.
type EngineLookup interface {
	Get(id string) (*engine.Engine, bool)
}

// Dispatch resolves path and sends its event, with payload, to the engine
// of entity. It reports whether the engine took a transition.
func Dispatch(c *Catalog, engines EngineLookup, entity, path string, payload any) (bool, error) {
	ev, ok := c.Lookup(path)
	if !ok {
		return false, fmt.Errorf("dispatch %q: %w", path, ErrUnknownPath)
	}
	e, ok := engines.Get(entity)
	if !ok {
		return false, fmt.Errorf("dispatch %q to %q: %w", path, entity, ErrUnknownEntity)
	}
	if e.ChartID() != ev.StatechartID {
		return false, fmt.Errorf("dispatch %q to %q: engine runs %s: %w",
			path, entity, e.ChartID(), ErrChartMismatch)
	}
	return e.Send(ev.EventID, payload), nil
}
