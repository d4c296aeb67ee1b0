package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/value"
)

// NDJSON returns a source producing one record per non-empty input
// line.
func NDJSON(r io.Reader) Source {
	return &ndjsonSource{r: bufio.NewReaderSize(r, 64*1024)}
}

type ndjsonSource struct {
	r    *bufio.Reader
	done bool
}

func (s *ndjsonSource) Next() (value.Value, error) {
	for {
		if s.done {
			return nil, io.EOF
		}
		line, err := s.r.ReadString('\n')
		if err == io.EOF {
			s.done = true
		} else if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, perr := value.ParseJSON(line)
		if perr != nil {
			return nil, &RecordError{Err: perr}
		}
		return v, nil
	}
}

// JSONValues returns a source over concatenated JSON documents, as in
// `{"a":1}{"a":2}` or a plain single-document file.
func JSONValues(r io.Reader) Source {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonSource{dec: dec}
}

type jsonSource struct {
	dec *json.Decoder
}

func (s *jsonSource) Next() (value.Value, error) {
	v, err := value.DecodeJSON(s.dec)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &RecordError{Err: err}
	}
	return v, nil
}
