// Package value defines the unified document value domain shared by the
// format decoders, the query engine, and the serializers.
//
// A Value is one of:
//
//	nil        null
//	bool       boolean
//	float64    number (integers up to 2^53 are exact)
//	string     string
//	[]Value    array
//	*Object    object with insertion-ordered string keys
package value

import (
	"math"
	"strconv"
	"strings"
)

// Value is the dynamic document value type.
type Value = any

// TypeName returns the jq-style type name of a value.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []Value:
		return "array"
	case *Object:
		return "object"
	default:
		return "unknown"
	}
}

// IsTruthy reports whether a value is neither null nor false.
func IsTruthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	default:
		return true
	}
}

// IsInteger reports whether a number has no fractional part and is small
// enough to round-trip through an int exactly.
func IsInteger(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) <= 1<<53
}

// FormatNumber renders a number the way jq prints it: integer-looking
// values without a decimal point, everything else in shortest form.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "null"
	case math.IsInf(f, 1):
		return "1.7976931348623157e+308"
	case math.IsInf(f, -1):
		return "-1.7976931348623157e+308"
	case IsInteger(f):
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// ToString renders a value as a plain string: strings unquoted,
// everything else as compact JSON.
func ToString(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

// ToJSON renders a value as compact JSON text with keys in insertion
// order.
func ToJSON(v Value) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v Value) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case float64:
		b.WriteString(FormatNumber(t))
	case string:
		b.WriteString(QuoteJSON(t))
	case []Value:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, item)
		}
		b.WriteByte(']')
	case *Object:
		b.WriteByte('{')
		for i, key := range t.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(QuoteJSON(key))
			b.WriteByte(':')
			item, _ := t.Get(key)
			writeJSON(b, item)
		}
		b.WriteByte('}')
	}
}

// QuoteJSON escapes a string as a JSON string literal.
func QuoteJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString("\\u")
				const hex = "0123456789abcdef"
				b.WriteByte('0')
				b.WriteByte('0')
				b.WriteByte(hex[r>>4])
				b.WriteByte(hex[r&0xf])
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
