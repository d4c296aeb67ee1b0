package encode

import (
	"strconv"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// marshalTOML writes a TOML document by hand: the ecosystem encoders
// take Go maps and would scramble key order. Scalar keys print before
// tables, matching how TOML files are laid out.
func marshalTOML(v value.Value) (string, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return "", encodeError(format.TOML, "top-level value must be an object, got %s", value.TypeName(v))
	}
	var b strings.Builder
	if err := writeTOMLTable(&b, obj, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeTOMLTable(b *strings.Builder, obj *value.Object, path []string) error {
	var tables []string

	for _, k := range obj.Keys() {
		item, _ := obj.Get(k)
		if isTOMLTable(item) {
			tables = append(tables, k)
			continue
		}
		b.WriteString(tomlKey(k))
		b.WriteString(" = ")
		if err := writeTOMLValue(b, item); err != nil {
			return err
		}
		b.WriteByte('\n')
	}

	for _, k := range tables {
		item, _ := obj.Get(k)
		childPath := append(append([]string{}, path...), k)
		header := make([]string, len(childPath))
		for i, part := range childPath {
			header[i] = tomlKey(part)
		}
		switch t := item.(type) {
		case *value.Object:
			b.WriteString("\n[")
			b.WriteString(strings.Join(header, "."))
			b.WriteString("]\n")
			if err := writeTOMLTable(b, t, childPath); err != nil {
				return err
			}
		case []value.Value:
			for _, row := range t {
				b.WriteString("\n[[")
				b.WriteString(strings.Join(header, "."))
				b.WriteString("]]\n")
				if err := writeTOMLTable(b, row.(*value.Object), childPath); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// isTOMLTable reports whether a value needs a table header: objects,
// and arrays whose elements are all objects.
func isTOMLTable(v value.Value) bool {
	switch t := v.(type) {
	case *value.Object:
		return true
	case []value.Value:
		if len(t) == 0 {
			return false
		}
		for _, item := range t {
			if _, ok := item.(*value.Object); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func writeTOMLValue(b *strings.Builder, v value.Value) error {
	switch t := v.(type) {
	case nil:
		// TOML has no null; render the string "null".
		b.WriteString(`"null"`)
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case float64:
		b.WriteString(value.FormatNumber(t))
	case string:
		b.WriteString(strconv.Quote(t))
	case []value.Value:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeTOMLValue(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case *value.Object:
		// Inline table for objects nested inside arrays.
		b.WriteByte('{')
		for i, k := range t.Keys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(tomlKey(k))
			b.WriteString(" = ")
			item, _ := t.Get(k)
			if err := writeTOMLValue(b, item); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return encodeError(format.TOML, "unsupported value %s", value.TypeName(v))
	}
	return nil
}

func tomlKey(k string) string {
	for _, r := range k {
		if !(r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return strconv.Quote(k)
		}
	}
	if k == "" {
		return `""`
	}
	return k
}
