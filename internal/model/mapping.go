package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"msgkit/internal/domain"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is the ordered key/value form every model value serializes to.
// Key order is the order fields are written on the wire.
type Map = orderedmap.OrderedMap[string, any]

func newMap() *Map {
	return orderedmap.New[string, any]()
}

// Serializable is implemented by every value that can be written to the wire.
// ToMap validates first and never returns a map for an invalid value.
type Serializable interface {
	Validate() error
	ToMap() (*Map, error)
}

// TryFromMap runs a from-map constructor and reports failure as ok=false
// instead of an error.
func TryFromMap[T any](from func(map[string]any) (T, error), data map[string]any) (T, bool) {
	v, err := from(data)
	if err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// prune removes keys holding empty values so they never reach the wire.
func prune(m *Map) *Map {
	var empty []string
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if isEmpty(pair.Value) {
			empty = append(empty, pair.Key)
		}
	}
	for _, key := range empty {
		m.Delete(key)
	}
	return m
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case *Map:
		return x == nil || x.Len() == 0
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// Plain converts an ordered map tree into plain maps and slices, the shape
// json.Unmarshal and yaml.Unmarshal produce.
func Plain(m *Map) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = plainValue(pair.Value)
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case *Map:
		return Plain(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plainValue(item)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = item
		}
		return out
	}
	return v
}

// stringField reads a scalar as a string. Numbers and booleans are rendered
// in their canonical text form so YAML and JSON sources decode alike.
func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// objectField returns the nested object at key. ok is false when the key is
// absent; a present value of the wrong shape is an error.
func objectField(object string, data map[string]any, key string) (map[string]any, bool, error) {
	raw, present := data[key]
	if !present || raw == nil {
		return nil, false, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false, shapeError(object, key, "an object", raw)
	}
	return obj, true, nil
}

// listField returns the array at key, or nil when absent.
func listField(object string, data map[string]any, key string) ([]any, error) {
	raw, present := data[key]
	if !present || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	}
	return nil, shapeError(object, key, "an array", raw)
}

func shapeError(object, key, want string, got any) error {
	return domain.NewValidationError(domain.KindInvalidCombination, object,
		fmt.Sprintf("expected %s, got %T", want, got), key)
}

func enumError(object, key, value string) error {
	return domain.NewValidationError(domain.KindInvalidCombination, object,
		fmt.Sprintf("unknown value %q", value), key)
}
