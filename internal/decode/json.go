package decode

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// JSON parses one JSON document.
func JSON(input string) (value.Value, error) {
	v, err := value.ParseJSON(input)
	if err != nil {
		return nil, decodeError(format.JSON, err)
	}
	return v, nil
}

// JSONValues parses a stream of concatenated JSON values, such as
// `{"a":1}{"a":2}` or a whole file holding a single document.
func JSONValues(input string) ([]value.Value, error) {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()

	var out []value.Value
	for {
		v, err := value.DecodeJSON(dec)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, decodeError(format.JSON, err)
		}
		out = append(out, v)
	}
}
