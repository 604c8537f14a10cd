// This file converts between bean attributes and their stored JSON form.
package sqlite

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// beanJSON is the JSONL record for one bean.
type beanJSON struct {
	Type   string          `json:"type"`
	ID     int64           `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

// encodeFields renders attributes as the JSON object stored in beans.fields.
func encodeFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding fields: %w", err)
	}
	return string(data), nil
}

// decodeFields parses a stored JSON object. Integral numbers come back as
// int64 and other numbers as float64, so a stored bean reads back with the
// same attribute types a caller set.
func decodeFields(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	for k, v := range fields {
		fields[k] = normalizeNumbers(v)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
		return x
	default:
		return v
	}
}

// bindValue converts a lookup value to what SQLite compares against
// json_extract output. Booleans extract as 1/0. Composite values cannot be
// matched.
func bindValue(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return normalizeNumbers(v), nil
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v, nil
	default:
		return nil, fmt.Errorf("cannot match on %T", value)
	}
}
