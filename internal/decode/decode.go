// Package decode parses documents in the supported formats into the
// unified value domain, preserving object key order.
package decode

import (
	"errors"
	"fmt"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// ErrDecode is the sentinel error for all document parse failures.
var ErrDecode = errors.New("decode error")

func decodeError(f format.Format, err error) error {
	return fmt.Errorf("%w: %s: %s", ErrDecode, f, err)
}

// Documents parses input into its sequence of records: one per YAML
// document or concatenated JSON value, a single record for XML, TOML,
// and CSV/TSV (the row list is one value in batch mode).
func Documents(input string, f format.Format) ([]value.Value, error) {
	switch f {
	case format.JSON:
		return JSONValues(input)
	case format.YAML:
		return YAMLDocuments(input)
	case format.XML:
		v, err := XML(input)
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	case format.TOML:
		v, err := TOML(input)
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	case format.CSV:
		v, err := Delimited(input, ',')
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	case format.TSV:
		v, err := Delimited(input, '\t')
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %s", ErrDecode, f)
	}
}

// Parse parses input as a single document. Multi-record inputs return
// their first record.
func Parse(input string, f format.Format) (value.Value, error) {
	docs, err := Documents(input, f)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}
