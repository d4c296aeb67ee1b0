// Package query compiles and runs jq-style query expressions.
package query

import (
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/query/eval"
	"github.com/pedrosanzmtz/qf/internal/query/parse"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// Query is a compiled expression ready to run against input records.
type Query struct {
	expr ast.Expr
	eval *eval.Evaluator
}

// Compile parses a query source string.
func Compile(src string) (*Query, error) {
	expr, err := parse.Parse(src)
	if err != nil {
		return nil, err
	}
	return &Query{expr: expr, eval: eval.New()}, nil
}

// SetInputs attaches the record source consumed by input/inputs.
func (q *Query) SetInputs(src eval.Source) {
	q.eval.SetInputs(src)
}

// BindVar predefines a variable, as set by --arg and --argjson.
func (q *Query) BindVar(name string, v value.Value) {
	q.eval.BindVar(name, v)
}

// Run evaluates the query against one input value and collects all
// outputs in order.
func (q *Query) Run(input value.Value) ([]value.Value, error) {
	return q.eval.Run(q.expr, input)
}

// Each evaluates the query against one input value, streaming outputs
// through emit.
func (q *Query) Each(input value.Value, emit func(value.Value) error) error {
	return q.eval.Each(q.expr, input, emit)
}
