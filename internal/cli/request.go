package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// parseObject decodes a JSON object argument into request data.
func parseObject(raw string) (map[string]any, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: request is not valid JSON", types.ErrInvalidArgument)
	}
	res := gjson.Parse(raw)
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: request must be a JSON object", types.ErrInvalidArgument)
	}
	if rel := res.Get(types.FieldRelation); rel.Exists() && rel.Type != gjson.Null && !rel.IsObject() {
		return nil, fmt.Errorf("%w: %s must be a JSON object", types.ErrInvalidArgument, types.FieldRelation)
	}
	var data map[string]any
	if err := decodeJSON(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	return data, nil
}

// decodeJSON decodes raw into v keeping numbers as json.Number, so integer
// attributes and ids beyond 2^53 are not rounded through float64.
func decodeJSON(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	return dec.Decode(v)
}

// parseRelations decodes a relation request map argument.
func parseRelations(raw string) (types.RelationMap, error) {
	data, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	return types.RelationMap(data), nil
}

// parseID parses a bean id argument.
func parseID(arg string) (int64, error) {
	return types.ParseID(arg)
}

// parseMatch splits a field=value argument. The value is read as JSON when
// it parses (numbers, booleans, null, quoted strings) and as a bare string
// otherwise.
func parseMatch(arg string) (string, any, error) {
	field, raw, ok := strings.Cut(arg, "=")
	if !ok || field == "" {
		return "", nil, fmt.Errorf("%w: expected field=value, got %q", types.ErrInvalidArgument, arg)
	}
	if !types.ValidFieldName(field) {
		return "", nil, fmt.Errorf("%w: %q", types.ErrInvalidField, field)
	}
	if gjson.Valid(raw) {
		if res := gjson.Parse(raw); !res.IsObject() && !res.IsArray() {
			var value any
			if err := decodeJSON(raw, &value); err == nil {
				return field, value, nil
			}
		}
	}
	return field, raw, nil
}
