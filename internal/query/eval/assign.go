package eval

import (
	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

var arithAssignOps = map[ast.AssignOp]ast.Op{
	ast.AssignAdd: ast.OpAdd,
	ast.AssignSub: ast.OpSub,
	ast.AssignMul: ast.OpMul,
	ast.AssignDiv: ast.OpDiv,
	ast.AssignMod: ast.OpMod,
}

func (e *Evaluator) evalAssign(t ast.Assign, input value.Value, scope *env, emit emitFunc) error {
	paths, err := e.pathsOf(t.Path, input, scope)
	if err != nil {
		return err
	}

	switch t.Op {
	case ast.AssignSet:
		// One output per right-hand value, each with every path set.
		return e.eval(t.Value, input, scope, func(rhs value.Value) error {
			result := input
			var err error
			for _, path := range paths {
				result, err = setPath(result, path, rhs)
				if err != nil {
					return err
				}
			}
			return emit(result)
		})

	case ast.AssignUpdate:
		result := input
		for _, path := range paths {
			current := getPath(result, path)
			updated, produced, err := e.updateValue(t.Value, current, scope)
			if err != nil {
				return err
			}
			if !produced {
				// The update filter dropped the value: delete the path.
				result, err = deletePath(result, path)
				if err != nil {
					return err
				}
				continue
			}
			result, err = setPath(result, path, updated)
			if err != nil {
				return err
			}
		}
		return emit(result)

	case ast.AssignAlt:
		rhsNeeded := false
		for _, path := range paths {
			if !value.IsTruthy(getPath(input, path)) {
				rhsNeeded = true
				break
			}
		}
		result := input
		if rhsNeeded {
			rhs, err := e.evalFirst(t.Value, input, scope)
			if err != nil {
				return err
			}
			for _, path := range paths {
				if value.IsTruthy(getPath(result, path)) {
					continue
				}
				result, err = setPath(result, path, rhs)
				if err != nil {
					return err
				}
			}
		}
		return emit(result)

	default:
		op, ok := arithAssignOps[t.Op]
		if !ok {
			return diag.New(diag.KindAssertion, "unhandled assignment operator")
		}
		// P += E is P |= . + E with E evaluated against the original input.
		rhs, err := e.evalFirst(t.Value, input, scope)
		if err != nil {
			return err
		}
		result := input
		for _, path := range paths {
			current := getPath(result, path)
			updated, err := binOp(op, current, rhs)
			if err != nil {
				return err
			}
			result, err = setPath(result, path, updated)
			if err != nil {
				return err
			}
		}
		return emit(result)
	}
}

// updateValue applies an update filter to the value at a path, reporting
// whether the filter produced any value at all.
func (e *Evaluator) updateValue(x ast.Expr, current value.Value, scope *env) (value.Value, bool, error) {
	var (
		out   value.Value
		found bool
	)
	err := e.eval(x, current, scope, func(v value.Value) error {
		out = v
		found = true
		return errStopFirst
	})
	if err != nil && err != errStopFirst {
		return nil, false, err
	}
	return out, found, nil
}
