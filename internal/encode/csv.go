package encode

import (
	"encoding/csv"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// marshalDelimited renders an array of row objects as CSV or TSV. The
// header comes from the first row's key order.
func marshalDelimited(v value.Value, comma rune) (string, error) {
	f := format.CSV
	if comma == '\t' {
		f = format.TSV
	}

	rows, ok := v.([]value.Value)
	if !ok {
		return "", encodeError(f, "output requires an array of objects, got %s", value.TypeName(v))
	}
	if len(rows) == 0 {
		return "", nil
	}
	first, ok := rows[0].(*value.Object)
	if !ok {
		return "", encodeError(f, "output requires an array of objects, got array of %s", value.TypeName(rows[0]))
	}
	headers := first.Keys()

	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = comma

	if err := w.Write(headers); err != nil {
		return "", encodeError(f, "%s", err)
	}
	for _, row := range rows {
		obj, ok := row.(*value.Object)
		if !ok {
			return "", encodeError(f, "output requires an array of objects, got array of %s", value.TypeName(row))
		}
		record := make([]string, len(headers))
		for i, h := range headers {
			cell, ok := obj.Get(h)
			if !ok || cell == nil {
				continue
			}
			record[i] = value.ToString(cell)
		}
		if err := w.Write(record); err != nil {
			return "", encodeError(f, "%s", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", encodeError(f, "%s", err)
	}
	return b.String(), nil
}
