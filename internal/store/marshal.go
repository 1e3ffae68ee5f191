package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/cartridge/internal/ir"
)

// encodeValue stores v as canonical JSON. A nil value is stored as NULL.
func encodeValue(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode value: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// decodeValue reverses encodeValue. Numbers decode as float64, which
// canonicalizes to the same bytes as the integer it was recorded from.
func decodeValue(s sql.NullString) (any, error) {
	if !s.Valid {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

func encodeContext(ctx map[string]any) (string, error) {
	if ctx == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(ctx)
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return string(data), nil
}

func decodeContext(s string) (map[string]any, error) {
	ctx := map[string]any{}
	if s == "" {
		return ctx, nil
	}
	if err := json.Unmarshal([]byte(s), &ctx); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return ctx, nil
}
