// Package encode renders values back into the supported document
// formats, keeping object keys in insertion order.
package encode

import (
	"errors"
	"fmt"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// ErrEncode is the sentinel error for serialization failures.
var ErrEncode = errors.New("encode error")

func encodeError(f format.Format, msg string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrEncode, f, fmt.Sprintf(msg, args...))
}

// Options controls rendering of a single result value.
type Options struct {
	Format  format.Format
	Compact bool
	Raw     bool
	Color   bool
}

// Value renders one result document.
func Value(v value.Value, opts Options) (string, error) {
	// Raw mode prints top-level strings without quotes in any format.
	if opts.Raw {
		if s, ok := v.(string); ok {
			return s, nil
		}
	}

	switch opts.Format {
	case format.JSON:
		if opts.Compact {
			return value.ToJSON(v), nil
		}
		return prettyJSON(v, opts.Color), nil
	case format.YAML:
		return marshalYAML(v, opts.Color)
	case format.XML:
		return marshalXML(v)
	case format.TOML:
		return marshalTOML(v)
	case format.CSV:
		return marshalDelimited(v, ',')
	case format.TSV:
		return marshalDelimited(v, '\t')
	default:
		return "", encodeError(opts.Format, "unsupported output format")
	}
}
