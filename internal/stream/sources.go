package stream

import (
	"bufio"
	"encoding/csv"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/decode"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// Lines returns a source producing one string record per input line,
// for raw-input mode.
func Lines(r io.Reader) Source {
	return &lineSource{r: bufio.NewReaderSize(r, 64*1024)}
}

type lineSource struct {
	r    *bufio.Reader
	done bool
}

func (s *lineSource) Next() (value.Value, error) {
	if s.done {
		return nil, io.EOF
	}
	line, err := s.r.ReadString('\n')
	if err == io.EOF {
		s.done = true
		if line == "" {
			return nil, io.EOF
		}
	} else if err != nil {
		return nil, err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// YAMLDocuments returns a source producing one record per YAML
// document.
func YAMLDocuments(r io.Reader) Source {
	return &yamlSource{docs: decode.NewYAMLStream(r)}
}

type yamlSource struct {
	docs *decode.YAMLStream
}

func (s *yamlSource) Next() (value.Value, error) {
	v, err := s.docs.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &RecordError{Err: err}
	}
	return v, nil
}

// CSVRows returns a source producing one object per data row, keyed by
// the header row.
func CSVRows(r io.Reader, comma rune) Source {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	return &csvSource{r: cr}
}

type csvSource struct {
	r       *csv.Reader
	headers []string
}

func (s *csvSource) Next() (value.Value, error) {
	if s.headers == nil {
		headers, err := s.r.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, &RecordError{Err: err}
		}
		s.headers = headers
	}
	record, err := s.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &RecordError{Err: err}
	}
	return decode.RowObject(s.headers, record), nil
}

// XMLChildren returns a source producing one record per child element
// of the document root, which is how multi-gigabyte exports stream
// without materializing the whole tree.
func XMLChildren(r io.Reader) Source {
	return &xmlSource{dec: xml.NewDecoder(r)}
}

type xmlSource struct {
	dec      *xml.Decoder
	inRoot   bool
	finished bool
}

func (s *xmlSource) Next() (value.Value, error) {
	if s.finished {
		return nil, io.EOF
	}
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			s.finished = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, &RecordError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !s.inRoot {
				s.inRoot = true
				continue
			}
			v, err := decode.DecodeElement(s.dec, t)
			if err != nil {
				return nil, &RecordError{Err: err}
			}
			return v, nil
		case xml.EndElement:
			s.finished = true
			return nil, io.EOF
		}
	}
}
