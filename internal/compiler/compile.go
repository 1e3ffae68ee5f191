package compiler

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/roach88/cartridge/internal/ir"
)

//go:embed schema.cue
var schemaSource []byte

// cartridgeSchema compiles the embedded #Cartridge definition in ctx.
func cartridgeSchema(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile embedded schema: %w", err)
	}
	return schema.LookupPath(cue.ParsePath("#Cartridge")), nil
}

// CompileCartridge parses a CUE value into a Cartridge.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the cartridge struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`cartridge: platformer: { statecharts: [...] }`)
//	c, err := CompileCartridge(v.LookupPath(cue.ParsePath("cartridge.platformer")))
//
// The value is unified with the embedded schema first, so unknown fields and
// type mismatches fail with the position of the offending source. The
// cartridge id defaults to the struct label.
func CompileCartridge(v cue.Value) (*ir.Cartridge, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var label string
	if sels := v.Path().Selectors(); len(sels) > 0 {
		label = sels[len(sels)-1].String()
		if unq, err := strconv.Unquote(label); err == nil {
			label = unq
		}
	}

	schema, err := cartridgeSchema(v.Context())
	if err != nil {
		return nil, err
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	c, err := decodeJSON(data)
	if err != nil {
		return nil, &CompileError{Field: "cartridge", Message: err.Error(), Pos: v.Pos()}
	}

	switch {
	case c.ID == "":
		c.ID = label
	case label != "" && c.ID != label:
		return nil, &CompileError{
			Field:   "id",
			Message: fmt.Sprintf("id %q does not match cartridge label %q", c.ID, label),
			Pos:     v.LookupPath(cue.ParsePath("id")).Pos(),
		}
	}
	return c, nil
}

// decodeJSON decodes a cartridge, rejecting unknown fields.
func decodeJSON(data []byte) (*ir.Cartridge, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var c ir.Cartridge
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
