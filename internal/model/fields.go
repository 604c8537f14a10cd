package model

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// TimestampLayout is the format of the created and updated stamps.
const TimestampLayout = "2006-01-02 15:04:05"

// StripOut returns a copy of data without keys.
func StripOut(data map[string]any, keys []string) map[string]any {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if !drop[k] {
			out[k] = v
		}
	}
	return out
}

// Keep returns a copy of data holding only the keys that are present.
func Keep(data map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := data[k]; ok {
			out[k] = v
		}
	}
	return out
}

// CheckComplete fails with types.ErrIncompleteData naming the first key
// that is absent or empty in data. Null, the empty string and empty
// sequences or objects count as empty; zero and false do not.
func CheckComplete(data map[string]any, keys []string) error {
	for _, k := range keys {
		v, ok := data[k]
		if !ok || isEmpty(v) {
			return fmt.Errorf("%w: missing %s", types.ErrIncompleteData, k)
		}
	}
	return nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// InsertTimestamp sets field on bean to t in TimestampLayout.
func InsertTimestamp(bean *types.Bean, field string, t time.Time) *types.Bean {
	bean.Set(field, t.Format(TimestampLayout))
	return bean
}

// splitRelation returns the relation sub-document of data. A missing or
// null entry yields nil; anything but an object is types.ErrInvalidArgument.
func splitRelation(data map[string]any) (types.RelationMap, error) {
	v, ok := data[types.FieldRelation]
	if !ok || v == nil {
		return nil, nil
	}
	return types.AsRelationMap(v)
}

// checkFieldNames rejects attribute names that stores cannot look up.
func checkFieldNames(data map[string]any) error {
	for k := range data {
		if !types.ValidFieldName(k) {
			return fmt.Errorf("%w: field name %q", types.ErrInvalidArgument, k)
		}
	}
	return nil
}
