package types

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidFieldName reports whether name can address an attribute in a lookup.
func ValidFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}

// ParseID converts a request or attribute value into a bean identity.
// Integers, integral floats, json.Number and decimal strings are accepted.
func ParseID(v any) (int64, error) {
	var id int64
	switch n := v.(type) {
	case int:
		id = int64(n)
	case int32:
		id = int64(n)
	case int64:
		id = n
	case uint:
		id = int64(n)
	case uint32:
		id = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: id %d out of range", ErrInvalidArgument, n)
		}
		id = int64(n)
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: id %v is not an integer", ErrInvalidArgument, n)
		}
		id = int64(n)
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: id %q is not an integer", ErrInvalidArgument, n)
		}
		id = parsed
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: id %q is not an integer", ErrInvalidArgument, n)
		}
		id = parsed
	default:
		return 0, fmt.Errorf("%w: id of type %T", ErrInvalidArgument, v)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: id %d must be positive", ErrInvalidArgument, id)
	}
	return id, nil
}

// ParseIDs accepts a single id or a sequence of ids and returns them in
// order.
func ParseIDs(v any) ([]int64, error) {
	switch seq := v.(type) {
	case []any:
		ids := make([]int64, 0, len(seq))
		for _, item := range seq {
			id, err := ParseID(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	case []int64:
		return append([]int64(nil), seq...), nil
	case []int:
		ids := make([]int64, 0, len(seq))
		for _, item := range seq {
			id, err := ParseID(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	default:
		id, err := ParseID(v)
		if err != nil {
			return nil, err
		}
		return []int64{id}, nil
	}
}

// EqualValues compares two attribute values. Numbers compare by value
// regardless of their Go type, so 3, int64(3) and 3.0 are equal. Two
// integers compare exactly, without a float64 round trip.
func EqualValues(a, b any) bool {
	ia, aInt := toInt(a)
	ib, bInt := toInt(b)
	if aInt && bInt {
		return ia == ib
	}
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
