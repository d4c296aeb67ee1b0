package decode

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// YAML parses one YAML document.
func YAML(input string) (value.Value, error) {
	docs, err := YAMLDocuments(input)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// YAMLDocuments parses a YAML stream into one value per document.
// Mappings decode through goccy's ordered map so key order survives.
func YAMLDocuments(input string) ([]value.Value, error) {
	dec := yaml.NewDecoder(strings.NewReader(input), yaml.UseOrderedMap())

	var out []value.Value
	for {
		var doc any
		err := dec.Decode(&doc)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, decodeError(format.YAML, err)
		}
		v, err := fromYAML(doc)
		if err != nil {
			return nil, decodeError(format.YAML, err)
		}
		out = append(out, v)
	}
}

func fromYAML(x any) (value.Value, error) {
	switch t := x.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float64:
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339), nil
	case []any:
		out := make([]value.Value, len(t))
		for i, item := range t {
			v, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case yaml.MapSlice:
		obj := value.NewObjectCapacity(len(t))
		for _, item := range t {
			key, err := yamlKey(item.Key)
			if err != nil {
				return nil, err
			}
			v, err := fromYAML(item.Value)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported YAML value %T", x)
	}
}

// yamlKey stringifies non-string mapping keys, which YAML allows but
// the value domain does not.
func yamlKey(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case bool:
		return fmt.Sprintf("%t", k), nil
	case int64:
		return fmt.Sprintf("%d", k), nil
	case uint64:
		return fmt.Sprintf("%d", k), nil
	case float64:
		return value.FormatNumber(k), nil
	case nil:
		return "null", nil
	default:
		return "", fmt.Errorf("unsupported YAML map key type %T", key)
	}
}
