package encode

import (
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

func marshalYAML(v value.Value, colorize bool) (string, error) {
	payload, err := yaml.Marshal(toYAML(v))
	if err != nil {
		return "", encodeError(format.YAML, "%s", err)
	}
	out := string(payload)
	if colorize {
		out = colorizeYAML(out)
	}
	return out, nil
}

// toYAML converts into goccy's ordered map shape so marshaling keeps
// key order.
func toYAML(v value.Value) any {
	switch t := v.(type) {
	case []value.Value:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toYAML(item)
		}
		return out
	case *value.Object:
		out := make(yaml.MapSlice, 0, t.Len())
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			out = append(out, yaml.MapItem{Key: k, Value: toYAML(item)})
		}
		return out
	default:
		return t
	}
}

// colorizeYAML highlights mapping keys line by line; value coloring is
// left to the terminal since YAML scalars are unquoted.
func colorizeYAML(doc string) string {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " -")
		key, rest, ok := strings.Cut(trimmed, ":")
		if !ok || strings.HasPrefix(trimmed, "#") {
			continue
		}
		prefix := line[:len(line)-len(trimmed)]
		lines[i] = prefix + colorKey.Sprint(key) + ":" + rest
	}
	return strings.Join(lines, "\n")
}
