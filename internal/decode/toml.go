package decode

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// TOML parses a TOML document. The library decodes into Go maps, so
// key order is reconstructed from the decoder metadata, which records
// keys in order of appearance.
func TOML(input string) (value.Value, error) {
	var raw map[string]any
	meta, err := toml.Decode(input, &raw)
	if err != nil {
		return nil, decodeError(format.TOML, err)
	}

	order := map[string]int{}
	for i, key := range meta.Keys() {
		joined := strings.Join(key, "\x00")
		if _, seen := order[joined]; !seen {
			order[joined] = i
		}
	}
	return fromTOML(raw, nil, order)
}

func fromTOML(x any, path []string, order map[string]int) (value.Value, error) {
	switch t := x.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		return t, nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339), nil
	case toml.Primitive:
		return nil, fmt.Errorf("undecoded TOML primitive")
	case []map[string]any:
		out := make([]value.Value, len(t))
		for i, item := range t {
			v, err := fromTOML(item, path, order)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case []any:
		out := make([]value.Value, len(t))
		for i, item := range t {
			v, err := fromTOML(item, path, order)
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
		sort.SliceStable(keys, func(i, j int) bool {
			return tomlKeyOrder(path, keys[i], order) < tomlKeyOrder(path, keys[j], order)
		})
		obj := value.NewObjectCapacity(len(keys))
		for _, k := range keys {
			v, err := fromTOML(t[k], append(path, k), order)
			if err != nil {
				return nil, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported TOML value %T", x)
	}
}

func tomlKeyOrder(path []string, key string, order map[string]int) int {
	joined := strings.Join(append(append([]string{}, path...), key), "\x00")
	if i, ok := order[joined]; ok {
		return i
	}
	// Keys the metadata missed sort last, alphabetically via the stable
	// sort over the already-sorted map keys.
	return int(^uint(0) >> 1)
}
