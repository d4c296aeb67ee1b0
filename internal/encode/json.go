package encode

import (
	"strings"

	"github.com/fatih/color"

	"github.com/pedrosanzmtz/qf/internal/value"
)

// Pretty-printer palette, matching the usual jq coloring: keys blue,
// strings green, numbers cyan, booleans yellow, null red.
var (
	colorKey    = color.New(color.FgBlue, color.Bold)
	colorString = color.New(color.FgGreen)
	colorNumber = color.New(color.FgCyan)
	colorBool   = color.New(color.FgYellow)
	colorNull   = color.New(color.FgRed)
	colorPunct  = color.New(color.FgWhite, color.Bold)
)

func prettyJSON(v value.Value, colorize bool) string {
	var b strings.Builder
	writePretty(&b, v, 0, colorize)
	return b.String()
}

func paint(b *strings.Builder, c *color.Color, s string, colorize bool) {
	if colorize {
		b.WriteString(c.Sprint(s))
		return
	}
	b.WriteString(s)
}

func writePretty(b *strings.Builder, v value.Value, indent int, colorize bool) {
	switch t := v.(type) {
	case nil:
		paint(b, colorNull, "null", colorize)
	case bool:
		paint(b, colorBool, value.ToJSON(t), colorize)
	case float64:
		paint(b, colorNumber, value.FormatNumber(t), colorize)
	case string:
		paint(b, colorString, value.QuoteJSON(t), colorize)
	case []value.Value:
		if len(t) == 0 {
			paint(b, colorPunct, "[]", colorize)
			return
		}
		paint(b, colorPunct, "[", colorize)
		b.WriteByte('\n')
		for i, item := range t {
			writeIndent(b, indent+1)
			writePretty(b, item, indent+1, colorize)
			if i < len(t)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, indent)
		paint(b, colorPunct, "]", colorize)
	case *value.Object:
		if t.Len() == 0 {
			paint(b, colorPunct, "{}", colorize)
			return
		}
		paint(b, colorPunct, "{", colorize)
		b.WriteByte('\n')
		keys := t.Keys()
		for i, k := range keys {
			writeIndent(b, indent+1)
			paint(b, colorKey, value.QuoteJSON(k), colorize)
			b.WriteString(": ")
			item, _ := t.Get(k)
			writePretty(b, item, indent+1, colorize)
			if i < len(keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, indent)
		paint(b, colorPunct, "}", colorize)
	}
}

func writeIndent(b *strings.Builder, level int) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}
