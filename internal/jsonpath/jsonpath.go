// Package jsonpath provides the RFC 9535 selector mode, an alternate
// query language to the jq-style engine for callers that already have
// JSONPath expressions.
package jsonpath

import (
	"fmt"

	"github.com/theory/jsonpath"

	"github.com/pedrosanzmtz/qf/internal/value"
)

// Selector is a compiled JSONPath expression.
type Selector struct {
	path *jsonpath.Path
}

// Compile parses a JSONPath expression like `$.store.book[0].title`.
func Compile(expr string) (*Selector, error) {
	path, err := jsonpath.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath %q: %w", expr, err)
	}
	return &Selector{path: path}, nil
}

// Run selects every matching node from a value. The selector library
// operates on plain Go shapes, so values convert through map form; key
// order inside selected objects is reordered lexicographically.
func (s *Selector) Run(v value.Value) ([]value.Value, error) {
	nodes := s.path.Select(value.ToAny(v))
	out := make([]value.Value, len(nodes))
	for i, node := range nodes {
		converted, err := value.FromAny(node)
		if err != nil {
			return nil, fmt.Errorf("jsonpath result: %w", err)
		}
		out[i] = converted
	}
	return out, nil
}
