package eval

import (
	"encoding/base64"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// applyFormat renders a value through a @name formatter. Formatters are
// also applied per interpolated segment in format strings.
func applyFormat(name string, input value.Value) (value.Value, error) {
	switch name {
	case "text":
		return value.ToString(input), nil
	case "json":
		return value.ToJSON(input), nil
	case "base64":
		return base64.StdEncoding.EncodeToString([]byte(value.ToString(input))), nil
	case "base64d":
		s, ok := input.(string)
		if !ok {
			return nil, diag.TypeErr("@base64d requires a string, got %s", value.TypeName(input))
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, diag.New(diag.KindUser, "@base64d: %s", err)
		}
		return string(decoded), nil
	case "uri":
		return escapeURI(value.ToString(input)), nil
	case "html":
		return escapeHTML(value.ToString(input)), nil
	case "csv":
		return formatDelimited(input, ',')
	case "tsv":
		return formatTSV(input)
	case "sh":
		return formatShell(input)
	default:
		return nil, diag.New(diag.KindUser, "@%s is not a known format", name)
	}
}

func escapeURI(s string) string {
	const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.~"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(unreserved, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		const hex = "0123456789ABCDEF"
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0xf])
	}
	return b.String()
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&#39;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}

// formatDelimited renders an array as one CSV record: strings quoted,
// scalars bare, null empty.
func formatDelimited(input value.Value, sep rune) (value.Value, error) {
	arr, ok := input.([]value.Value)
	if !ok {
		return nil, diag.TypeErr("@csv requires an array, got %s", value.TypeName(input))
	}
	fields := make([]string, len(arr))
	for i, item := range arr {
		switch t := item.(type) {
		case nil:
			fields[i] = ""
		case string:
			fields[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
		case float64:
			fields[i] = value.FormatNumber(t)
		case bool:
			fields[i] = value.ToString(t)
		default:
			return nil, diag.TypeErr("@csv cannot render %s fields", value.TypeName(item))
		}
	}
	return strings.Join(fields, string(sep)), nil
}

// formatTSV renders an array as one TSV record with tab/newline escapes
// and unquoted strings.
func formatTSV(input value.Value) (value.Value, error) {
	arr, ok := input.([]value.Value)
	if !ok {
		return nil, diag.TypeErr("@tsv requires an array, got %s", value.TypeName(input))
	}
	escaper := strings.NewReplacer(
		"\\", `\\`,
		"\t", `\t`,
		"\n", `\n`,
		"\r", `\r`,
	)
	fields := make([]string, len(arr))
	for i, item := range arr {
		switch t := item.(type) {
		case nil:
			fields[i] = ""
		case string:
			fields[i] = escaper.Replace(t)
		case float64:
			fields[i] = value.FormatNumber(t)
		case bool:
			fields[i] = value.ToString(t)
		default:
			return nil, diag.TypeErr("@tsv cannot render %s fields", value.TypeName(item))
		}
	}
	return strings.Join(fields, "\t"), nil
}

func formatShell(input value.Value) (value.Value, error) {
	quote := func(v value.Value) (string, error) {
		switch t := v.(type) {
		case string:
			return "'" + strings.ReplaceAll(t, "'", `'\''`) + "'", nil
		case nil, bool, float64:
			return value.ToString(t), nil
		default:
			return "", diag.TypeErr("@sh cannot render %s", value.TypeName(v))
		}
	}
	if arr, ok := input.([]value.Value); ok {
		parts := make([]string, len(arr))
		for i, item := range arr {
			q, err := quote(item)
			if err != nil {
				return nil, err
			}
			parts[i] = q
		}
		return strings.Join(parts, " "), nil
	}
	return quote(input)
}
