package catalog

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/cartridge/internal/ir"
)

// ResolvedEvent is one addressable event of a cartridge.
type ResolvedEvent struct {
	CartridgeID    string   `json:"cartridgeId"`
	CartridgeLabel string   `json:"cartridgeLabel"`
	StatechartID   string   `json:"statechartId"`
	EventID        string   `json:"eventId"`
	Path           string   `json:"path"`
	FromStates     []string `json:"fromStates"`
	ToState        string   `json:"toState"`
}

// Path joins the identity triple into a catalog path.
func Path(cartridgeID, statechartID, eventID string) string {
	return cartridgeID + "." + statechartID + "." + eventID
}

// Catalog is an immutable index of resolved events in discovery order.
// It is safe for concurrent readers.
type Catalog struct {
	events []ResolvedEvent
	byPath map[string]int
}

// Build scans cartridges in order and indexes every transition.
//
// When a path is seen again, the source state is added to the existing
// entry's FromStates instead of creating a second entry. The first
// transition seen for a path decides its ToState.
func Build(cartridges []ir.Cartridge) *Catalog {
	c := &Catalog{byPath: make(map[string]int)}
	for _, cart := range cartridges {
		label := cart.DisplayLabel()
		for _, chart := range cart.Statecharts {
			for _, st := range chart.States {
				for _, tr := range st.Transitions {
					c.add(cart.ID, label, chart.ID, st.ID, tr)
				}
			}
		}
	}
	return c
}

func (c *Catalog) add(cartridgeID, label, chartID, from string, tr ir.Transition) {
	path := Path(cartridgeID, chartID, tr.Event)
	if i, ok := c.byPath[path]; ok {
		ev := &c.events[i]
		if !slices.Contains(ev.FromStates, from) {
			ev.FromStates = append(ev.FromStates, from)
		}
		return
	}
	c.byPath[path] = len(c.events)
	c.events = append(c.events, ResolvedEvent{
		CartridgeID:    cartridgeID,
		CartridgeLabel: label,
		StatechartID:   chartID,
		EventID:        tr.Event,
		Path:           path,
		FromStates:     []string{from},
		ToState:        tr.Target,
	})
}

// Len returns the number of distinct paths.
func (c *Catalog) Len() int {
	return len(c.events)
}

// Events returns a copy of every entry in discovery order.
func (c *Catalog) Events() []ResolvedEvent {
	out := make([]ResolvedEvent, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.clone()
	}
	return out
}

// Lookup returns the entry for path.
func (c *Catalog) Lookup(path string) (ResolvedEvent, bool) {
	i, ok := c.byPath[path]
	if !ok {
		return ResolvedEvent{}, false
	}
	return c.events[i].clone(), true
}

// Search returns the entries whose event id, path, cartridge label, source
// states or target state contain query, ignoring case. An empty query
// returns everything.
func (c *Catalog) Search(query string) []ResolvedEvent {
	if strings.TrimSpace(query) == "" {
		return c.Events()
	}

	fold := cases.Fold()
	needle := fold.String(query)

	var out []ResolvedEvent
	for _, ev := range c.events {
		if ev.matches(fold, needle) {
			out = append(out, ev.clone())
		}
	}
	return out
}

// Search is the function form of Catalog.Search.
func Search(c *Catalog, query string) []ResolvedEvent {
	return c.Search(query)
}

func (ev ResolvedEvent) matches(fold cases.Caser, needle string) bool {
	fields := append([]string{ev.EventID, ev.Path, ev.CartridgeLabel, ev.ToState}, ev.FromStates...)
	for _, f := range fields {
		if strings.Contains(fold.String(f), needle) {
			return true
		}
	}
	return false
}

func (ev ResolvedEvent) clone() ResolvedEvent {
	ev.FromStates = slices.Clone(ev.FromStates)
	return ev
}
