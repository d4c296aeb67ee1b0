package eval

import (
	"math"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

func binOp(op ast.Op, left, right value.Value) (value.Value, error) {
	switch op {
	case ast.OpAdd:
		return addValues(left, right)
	case ast.OpSub:
		return subValues(left, right)
	case ast.OpMul:
		return mulValues(left, right)
	case ast.OpDiv:
		return divValues(left, right)
	case ast.OpMod:
		return modValues(left, right)
	case ast.OpEq:
		return value.Equal(left, right), nil
	case ast.OpNe:
		return !value.Equal(left, right), nil
	case ast.OpLt:
		return value.Compare(left, right) < 0, nil
	case ast.OpLe:
		return value.Compare(left, right) <= 0, nil
	case ast.OpGt:
		return value.Compare(left, right) > 0, nil
	case ast.OpGe:
		return value.Compare(left, right) >= 0, nil
	case ast.OpAnd:
		return value.IsTruthy(left) && value.IsTruthy(right), nil
	case ast.OpOr:
		return value.IsTruthy(left) || value.IsTruthy(right), nil
	default:
		return nil, diag.New(diag.KindAssertion, "unhandled operator %s", op)
	}
}

func addValues(left, right value.Value) (value.Value, error) {
	switch l := left.(type) {
	case float64:
		if r, ok := right.(float64); ok {
			return l + r, nil
		}
	case string:
		if r, ok := right.(string); ok {
			return l + r, nil
		}
	case []value.Value:
		if r, ok := right.([]value.Value); ok {
			out := make([]value.Value, 0, len(l)+len(r))
			out = append(out, l...)
			out = append(out, r...)
			return out, nil
		}
	case *value.Object:
		if r, ok := right.(*value.Object); ok {
			out := l.Clone()
			for _, k := range r.Keys() {
				v, _ := r.Get(k)
				out.Set(k, v)
			}
			return out, nil
		}
	case nil:
		return right, nil
	}
	if right == nil {
		return left, nil
	}
	return nil, diag.TypeErr("cannot add %s and %s", value.TypeName(left), value.TypeName(right))
}

func subValues(left, right value.Value) (value.Value, error) {
	switch l := left.(type) {
	case float64:
		if r, ok := right.(float64); ok {
			return l - r, nil
		}
	case []value.Value:
		if r, ok := right.([]value.Value); ok {
			out := make([]value.Value, 0, len(l))
			for _, item := range l {
				drop := false
				for _, re := range r {
					if value.Equal(item, re) {
						drop = true
						break
					}
				}
				if !drop {
					out = append(out, item)
				}
			}
			return out, nil
		}
	}
	return nil, diag.TypeErr("cannot subtract %s from %s", value.TypeName(right), value.TypeName(left))
}

func mulValues(left, right value.Value) (value.Value, error) {
	switch l := left.(type) {
	case float64:
		switch r := right.(type) {
		case float64:
			return l * r, nil
		case string:
			return repeatString(r, l)
		case nil:
			return nil, nil
		}
	case string:
		switch r := right.(type) {
		case float64:
			return repeatString(l, r)
		case nil:
			return nil, nil
		}
	case *value.Object:
		if r, ok := right.(*value.Object); ok {
			return mergeObjects(l, r), nil
		}
		if right == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	return nil, diag.TypeErr("cannot multiply %s and %s", value.TypeName(left), value.TypeName(right))
}

func repeatString(s string, n float64) (value.Value, error) {
	if n < 0 || !value.IsInteger(n) {
		return nil, diag.TypeErr("string repeat count must be a non-negative integer")
	}
	var b []byte
	for i := 0; i < int(n); i++ {
		b = append(b, s...)
	}
	return string(b), nil
}

// mergeObjects merges right into left recursively: nested objects merge
// key-wise, anything else from the right wins.
func mergeObjects(left, right *value.Object) *value.Object {
	out := left.Clone()
	for _, k := range right.Keys() {
		rv, _ := right.Get(k)
		if lv, ok := out.Get(k); ok {
			lo, lok := lv.(*value.Object)
			ro, rok := rv.(*value.Object)
			if lok && rok {
				out.Set(k, mergeObjects(lo, ro))
				continue
			}
		}
		out.Set(k, rv)
	}
	return out
}

func divValues(left, right value.Value) (value.Value, error) {
	switch l := left.(type) {
	case float64:
		if r, ok := right.(float64); ok {
			if r == 0 {
				return nil, diag.New(diag.KindDivideByZero, "cannot divide %s by zero", value.FormatNumber(l))
			}
			return l / r, nil
		}
	case string:
		if r, ok := right.(string); ok {
			return splitString(l, r), nil
		}
	}
	return nil, diag.TypeErr("cannot divide %s by %s", value.TypeName(left), value.TypeName(right))
}

func modValues(left, right value.Value) (value.Value, error) {
	l, lok := left.(float64)
	r, rok := right.(float64)
	if !lok || !rok {
		return nil, diag.TypeErr("cannot compute %s %% %s", value.TypeName(left), value.TypeName(right))
	}
	li, ri := int64(math.Trunc(l)), int64(math.Trunc(r))
	if ri == 0 {
		return nil, diag.New(diag.KindDivideByZero, "cannot divide %s by zero", value.FormatNumber(l))
	}
	return float64(li % ri), nil
}
