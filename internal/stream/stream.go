// Package stream produces input records lazily and dispatches them to
// the query engine one at a time, bounding memory to a single record.
package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/pedrosanzmtz/qf/internal/value"
)

// Source is a pull iterator over input records. Next returns io.EOF
// when the stream is exhausted.
type Source interface {
	Next() (value.Value, error)
}

// RecordError marks a per-record parse failure that the host may treat
// as fatal or skip, as opposed to a broken input stream.
type RecordError struct {
	Err error
}

func (e *RecordError) Error() string {
	return e.Err.Error()
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Run pulls every record and hands it to handle. Each record's outputs
// are fully emitted before the next record is fetched. With skipBad,
// per-record parse errors are reported to onSkip and processing
// continues.
func Run(src Source, handle func(value.Value) error, skipBad bool, onSkip func(error)) error {
	for {
		v, err := src.Next()
		if err == io.EOF {
			return nil
		}
		var re *RecordError
		if errors.As(err, &re) && skipBad {
			if onSkip != nil {
				onSkip(re.Err)
			}
			continue
		}
		if err != nil {
			return err
		}
		if err := handle(v); err != nil {
			return err
		}
	}
}

// Values returns a source over already-materialized records.
func Values(records []value.Value) Source {
	return &valueSource{records: records}
}

type valueSource struct {
	records []value.Value
	pos     int
}

func (s *valueSource) Next() (value.Value, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	v := s.records[s.pos]
	s.pos++
	return v, nil
}

// Null returns the single-record source used by null-input mode.
func Null() Source {
	return Values([]value.Value{nil})
}

// Slurp drains a source into one array record.
func Slurp(src Source) (value.Value, error) {
	out := []value.Value{}
	for {
		v, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("slurp: %w", err)
		}
		out = append(out, v)
	}
}
