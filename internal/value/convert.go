package value

import (
	"fmt"
	"sort"
)

// ToAny converts a value to plain Go types (map[string]any for objects),
// for libraries that operate on untyped JSON shapes. Object key order is
// not representable in a Go map and is lost.
func ToAny(v Value) any {
	switch t := v.(type) {
	case []Value:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToAny(item)
		}
		return out
	case *Object:
		out := make(map[string]any, t.Len())
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			out[k] = ToAny(item)
		}
		return out
	default:
		return t
	}
}

// FromAny converts plain Go types back into the value domain. Map keys
// are ordered lexicographically since Go maps carry no order. Numeric
// types collapse to float64.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil, bool, float64, string:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObjectCapacity(len(keys))
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", x)
	}
}
