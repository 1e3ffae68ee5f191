package compiler

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cartridge/internal/ir"
)

// DecodeCartridge decodes one cartridge from JSON or YAML. Unknown fields
// are rejected.
func DecodeCartridge(data []byte) (*ir.Cartridge, error) {
	c, _, err := decodeDocument(data)
	return c, err
}

// decodeDocument decodes a YAML (or JSON) document and also returns its
// node tree for line lookups.
func decodeDocument(data []byte) (*ir.Cartridge, *yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil, fmt.Errorf("empty document")
	}

	var raw any
	if err := doc.Decode(&raw); err != nil {
		return nil, nil, err
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, nil, fmt.Errorf("cartridge must be a mapping, got %T", raw)
	}

	// Round-trip through JSON so guards and actions decode through the same
	// unmarshalers as every other source.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, err
	}
	c, err := decodeJSON(data)
	if err != nil {
		return nil, nil, err
	}
	return c, &doc, nil
}
