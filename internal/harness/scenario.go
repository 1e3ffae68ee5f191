package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one scenario test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Cartridge is the cartridge file or directory to load. Relative paths
	// resolve against the scenario file's directory.
	Cartridge string `yaml:"cartridge"`

	// Chart selects the statechart: "cartridgeId.chartId", or a bare chart
	// id when it is unique among the loaded cartridges.
	Chart string `yaml:"chart"`

	// Context overrides the chart's initial context.
	Context map[string]any `yaml:"context,omitempty"`

	// MaxSteps overrides the raised-event quota. Zero keeps the default.
	MaxSteps int `yaml:"max_steps,omitempty"`

	Flow       []FlowStep  `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep either sends an event or advances virtual time.
type FlowStep struct {
	Send    string `yaml:"send,omitempty"`
	Payload any    `yaml:"payload,omitempty"`

	// Advance is a duration such as "100ms" or "2s".
	Advance string `yaml:"advance,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Duration parses Advance.
func (f FlowStep) Duration() (time.Duration, error) {
	return time.ParseDuration(f.Advance)
}

// ExpectClause is checked right after its flow step.
type ExpectClause struct {
	// Accepted is whether the send took a transition. Ignored for advance
	// steps.
	Accepted *bool `yaml:"accepted,omitempty"`

	State string `yaml:"state,omitempty"`

	// Context is a subset match against the engine context.
	Context map[string]any `yaml:"context,omitempty"`
}

// Assertion validates the final snapshot or the trace.
type Assertion struct {
	Type string `yaml:"type"`

	State  string         `yaml:"state,omitempty"`  // final_state
	Expect map[string]any `yaml:"expect,omitempty"` // context
	States []string       `yaml:"states,omitempty"` // history
	Done   bool           `yaml:"done,omitempty"`   // done
	Event  string         `yaml:"event,omitempty"`  // trace_contains, trace_count
	Events []string       `yaml:"events,omitempty"` // trace_order
	Count  int            `yaml:"count,omitempty"`  // trace_count
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertContext       = "context"
	AssertHistory       = "history"
	AssertDone          = "done"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving the
// cartridge path against the file's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the cartridge path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Cartridge != "" && !filepath.IsAbs(scenario.Cartridge) && basePath != "" {
		scenario.Cartridge = filepath.Join(basePath, scenario.Cartridge)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Cartridge == "" {
		return fmt.Errorf("cartridge is required")
	}
	if _, err := os.Stat(s.Cartridge); os.IsNotExist(err) {
		return fmt.Errorf("cartridge not found: %s", s.Cartridge)
	}
	if s.Chart == "" {
		return fmt.Errorf("chart is required")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		switch {
		case step.Send == "" && step.Advance == "":
			return fmt.Errorf("flow[%d]: one of send or advance is required", i)
		case step.Send != "" && step.Advance != "":
			return fmt.Errorf("flow[%d]: send and advance are mutually exclusive", i)
		case step.Advance != "":
			d, err := step.Duration()
			if err != nil {
				return fmt.Errorf("flow[%d]: invalid advance: %w", i, err)
			}
			if d < 0 {
				return fmt.Errorf("flow[%d]: advance must not be negative", i)
			}
			if step.Payload != nil {
				return fmt.Errorf("flow[%d]: payload requires send", i)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	case AssertContext:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for context", index)
		}
	case AssertHistory:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for history", index)
		}
	case AssertDone:
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
