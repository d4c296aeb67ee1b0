package decode

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// Delimited parses CSV or TSV input into an array of row objects keyed
// by the header row. Every cell stays a string.
func Delimited(input string, comma rune) (value.Value, error) {
	f := format.CSV
	if comma == '\t' {
		f = format.TSV
	}

	r := csv.NewReader(strings.NewReader(input))
	r.Comma = comma
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if err == io.EOF {
		return []value.Value{}, nil
	}
	if err != nil {
		return nil, decodeError(f, err)
	}

	rows := []value.Value{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, decodeError(f, err)
		}
		rows = append(rows, RowObject(headers, record))
	}
}

// RowObject builds one row object from a header row and a record.
// Missing trailing cells become empty strings.
func RowObject(headers, record []string) *value.Object {
	obj := value.NewObjectCapacity(len(headers))
	for i, h := range headers {
		cell := ""
		if i < len(record) {
			cell = record[i]
		}
		obj.Set(h, cell)
	}
	return obj
}
