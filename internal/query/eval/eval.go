// Package eval interprets query expressions over the value domain.
//
// Every expression is a generator producing zero or more values per
// input. Generators are realized as push callbacks: eval invokes emit
// for each output in order, and an emit error stops production, which
// is how limit/first and the stream driver bound work.
package eval

import (
	"errors"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// Source supplies the records consumed by the input and inputs
// builtins. Next returns io.EOF when the stream is exhausted.
type Source interface {
	Next() (value.Value, error)
}

// Evaluator runs parsed queries. A zero Evaluator is usable; attach a
// record source with SetInputs to enable input/inputs.
type Evaluator struct {
	inputs Source
	base   *env
}

// New returns an evaluator without a record source.
func New() *Evaluator {
	return &Evaluator{}
}

// SetInputs attaches the record source consumed by input/inputs.
func (e *Evaluator) SetInputs(src Source) {
	e.inputs = src
}

// BindVar predefines a variable visible to every query run, as set by
// --arg and --argjson.
func (e *Evaluator) BindVar(name string, v value.Value) {
	e.base = e.base.bindVar(name, v)
}

// Run evaluates an expression against one input value and collects the
// outputs.
func (e *Evaluator) Run(expr ast.Expr, input value.Value) ([]value.Value, error) {
	var out []value.Value
	err := e.Each(expr, input, func(v value.Value) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// Each evaluates an expression against one input value, invoking emit
// for every output in order.
func (e *Evaluator) Each(expr ast.Expr, input value.Value, emit func(value.Value) error) error {
	err := e.eval(expr, input, e.base, emit)
	if be, ok := err.(*breakError); ok {
		return diag.New(diag.KindAssertion, "break out of unbound label $%s", be.label)
	}
	return err
}

type emitFunc func(value.Value) error

// breakError is the label/break unwind signal. It is not a diag.Error,
// so try/catch and ? do not intercept it.
type breakError struct {
	label string
}

func (e *breakError) Error() string {
	return "break $" + e.label
}

// isRuntimeError reports whether err is a catchable query error, as
// opposed to an unwind signal or a driver stop.
func isRuntimeError(err error) bool {
	var de *diag.Error
	return errors.As(err, &de)
}

// errorMessage extracts the message handed to a catch body.
func errorMessage(err error) string {
	var de *diag.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

func (e *Evaluator) eval(x ast.Expr, input value.Value, scope *env, emit emitFunc) error {
	switch t := x.(type) {
	case ast.Identity:
		return emit(input)

	case ast.Recurse:
		return recurseAll(input, emit)

	case ast.Field:
		v, err := fieldValue(input, t.Name)
		if err != nil {
			if t.Optional {
				return nil
			}
			return err
		}
		return emit(v)

	case ast.Index:
		return e.eval(t.Base, input, scope, func(base value.Value) error {
			return e.eval(t.Idx, input, scope, func(idx value.Value) error {
				v, err := indexValue(base, idx)
				if err != nil {
					if t.Optional {
						return nil
					}
					return err
				}
				return emit(v)
			})
		})

	case ast.Slice:
		from, to, err := e.sliceBounds(t, input, scope)
		if err != nil {
			return err
		}
		return e.eval(t.Base, input, scope, func(base value.Value) error {
			v, err := sliceValue(base, from, to)
			if err != nil {
				return err
			}
			return emit(v)
		})

	case ast.Iterate:
		return e.eval(t.Base, input, scope, func(base value.Value) error {
			switch base.(type) {
			case []value.Value, *value.Object:
				return iterate(base, emit)
			default:
				if t.Optional {
					return nil
				}
				return diag.TypeErr("cannot iterate over %s", value.TypeName(base))
			}
		})

	case ast.Pipe:
		return e.eval(t.Left, input, scope, func(v value.Value) error {
			return e.eval(t.Right, v, scope, emit)
		})

	case ast.Comma:
		if err := e.eval(t.Left, input, scope, emit); err != nil {
			return err
		}
		return e.eval(t.Right, input, scope, emit)

	case ast.Literal:
		return emit(t.Value)

	case ast.StringInterp:
		return e.evalStringInterp(t, input, scope, emit)

	case ast.Neg:
		return e.eval(t.Expr, input, scope, func(v value.Value) error {
			n, ok := v.(float64)
			if !ok {
				return diag.TypeErr("cannot negate %s", value.TypeName(v))
			}
			return emit(-n)
		})

	case ast.BinOp:
		return e.eval(t.Left, input, scope, func(lv value.Value) error {
			return e.eval(t.Right, input, scope, func(rv value.Value) error {
				v, err := binOp(t.Op, lv, rv)
				if err != nil {
					return err
				}
				return emit(v)
			})
		})

	case ast.Alternative:
		found := false
		err, fromConsumer := e.evalShielded(t.Left, input, scope, func(v value.Value) error {
			if value.IsTruthy(v) {
				found = true
				return emit(v)
			}
			return nil
		})
		if err != nil && (fromConsumer || !isRuntimeError(err)) {
			return err
		}
		if found {
			return nil
		}
		return e.eval(t.Right, input, scope, emit)

	case ast.Try:
		err, fromConsumer := e.evalShielded(t.Body, input, scope, emit)
		if err == nil || fromConsumer || !isRuntimeError(err) {
			return err
		}
		if t.Catch == nil {
			return nil
		}
		return e.eval(t.Catch, errorMessage(err), scope, emit)

	case ast.Optional:
		err, fromConsumer := e.evalShielded(t.Expr, input, scope, emit)
		if err != nil && !fromConsumer && isRuntimeError(err) {
			return nil
		}
		return err

	case ast.ArrayConstruct:
		arr := []value.Value{}
		if t.Inner != nil {
			err := e.eval(t.Inner, input, scope, func(v value.Value) error {
				arr = append(arr, v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return emit(arr)

	case ast.ObjectConstruct:
		return e.evalObject(t.Entries, value.NewObject(), input, scope, emit)

	case ast.If:
		return e.evalIf(t, input, scope, emit)

	case ast.As:
		return e.eval(t.Expr, input, scope, func(v value.Value) error {
			bound, err := bindPattern(scope, t.Pattern, v)
			if err != nil {
				return err
			}
			return e.eval(t.Body, input, bound, emit)
		})

	case ast.Reduce:
		acc, err := e.evalFirst(t.Init, input, scope)
		if err != nil {
			return err
		}
		err = e.eval(t.Expr, input, scope, func(v value.Value) error {
			bound, err := bindPattern(scope, t.Pattern, v)
			if err != nil {
				return err
			}
			acc, err = e.evalFirst(t.Update, acc, bound)
			return err
		})
		if err != nil {
			return err
		}
		return emit(acc)

	case ast.Foreach:
		acc, err := e.evalFirst(t.Init, input, scope)
		if err != nil {
			return err
		}
		return e.eval(t.Expr, input, scope, func(v value.Value) error {
			bound, err := bindPattern(scope, t.Pattern, v)
			if err != nil {
				return err
			}
			acc, err = e.evalFirst(t.Update, acc, bound)
			if err != nil {
				return err
			}
			if t.Extract == nil {
				return emit(acc)
			}
			return e.eval(t.Extract, acc, bound, emit)
		})

	case ast.LabelExpr:
		err := e.eval(t.Body, input, scope, emit)
		if be, ok := err.(*breakError); ok && be.label == t.Name {
			return nil
		}
		return err

	case ast.BreakExpr:
		return &breakError{label: t.Name}

	case ast.FuncDef:
		fn := &closure{params: t.Params, body: t.Body}
		// The function sees itself, enabling recursion.
		defScope := scope.bindFunc(t.Name, len(t.Params), fn)
		fn.env = defScope
		return e.eval(t.Rest, input, defScope, emit)

	case ast.FuncCall:
		return e.evalCall(t, input, scope, emit)

	case ast.VarRef:
		if v, ok := scope.lookupVar(t.Name); ok {
			return emit(v)
		}
		switch t.Name {
		case "ENV":
			return emit(environObject())
		case "__loc__":
			return emit(nil)
		}
		return diag.TypeErr("variable $%s is not defined", t.Name)

	case ast.Assign:
		return e.evalAssign(t, input, scope, emit)

	case ast.FormatExpr:
		v, err := applyFormat(t.Name, input)
		if err != nil {
			return err
		}
		return emit(v)

	default:
		return diag.New(diag.KindAssertion, "unhandled expression %T", x)
	}
}

// evalFirst returns the first output of an expression, or null when it
// produces nothing.
func (e *Evaluator) evalFirst(x ast.Expr, input value.Value, scope *env) (value.Value, error) {
	var (
		out   value.Value
		found bool
	)
	err := e.eval(x, input, scope, func(v value.Value) error {
		out = v
		found = true
		return errStopFirst
	})
	if err != nil && err != errStopFirst {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return out, nil
}

var errStopFirst = errors.New("first value taken")

// emitEscape marks an error that came from the downstream consumer, not
// from the expression under evaluation, so error-catching constructs
// pass it through instead of intercepting it.
type emitEscape struct {
	err error
}

func (e *emitEscape) Error() string {
	return e.err.Error()
}

// evalShielded evaluates an expression whose errors may be caught,
// separating failures of the expression itself from failures returned
// by the downstream emit.
func (e *Evaluator) evalShielded(x ast.Expr, input value.Value, scope *env, emit emitFunc) (error, bool) {
	err := e.eval(x, input, scope, func(v value.Value) error {
		if err := emit(v); err != nil {
			return &emitEscape{err: err}
		}
		return nil
	})
	if esc, ok := err.(*emitEscape); ok {
		return esc.err, true
	}
	return err, false
}

func (e *Evaluator) evalIf(t ast.If, input value.Value, scope *env, emit emitFunc) error {
	return e.eval(t.Cond, input, scope, func(cv value.Value) error {
		if value.IsTruthy(cv) {
			return e.eval(t.Then, input, scope, emit)
		}
		if len(t.Elif) > 0 {
			rest := ast.If{
				Cond: t.Elif[0].Cond,
				Then: t.Elif[0].Then,
				Elif: t.Elif[1:],
				Else: t.Else,
			}
			return e.evalIf(rest, input, scope, emit)
		}
		if t.Else != nil {
			return e.eval(t.Else, input, scope, emit)
		}
		return emit(input)
	})
}

// evalObject expands object construction entry by entry, one output
// object per tuple of the entries' generator outputs.
func (e *Evaluator) evalObject(entries []ast.ObjectEntry, acc *value.Object, input value.Value, scope *env, emit emitFunc) error {
	if len(entries) == 0 {
		return emit(acc)
	}
	entry := entries[0]
	rest := entries[1:]

	withKey := func(key string) error {
		return e.eval(entry.Value, input, scope, func(v value.Value) error {
			next := acc.Clone()
			next.Set(key, v)
			return e.evalObject(rest, next, input, scope, emit)
		})
	}

	if entry.KeyExpr == nil {
		return withKey(entry.Key)
	}
	return e.eval(entry.KeyExpr, input, scope, func(kv value.Value) error {
		key, ok := kv.(string)
		if !ok {
			return diag.TypeErr("object key must be a string, got %s", value.TypeName(kv))
		}
		return withKey(key)
	})
}

func (e *Evaluator) evalStringInterp(t ast.StringInterp, input value.Value, scope *env, emit emitFunc) error {
	var build func(idx int, acc string) error
	build = func(idx int, acc string) error {
		if idx == len(t.Pieces) {
			return emit(acc)
		}
		piece := t.Pieces[idx]
		if piece.Expr == nil {
			return build(idx+1, acc+piece.Literal)
		}
		return e.eval(piece.Expr, input, scope, func(v value.Value) error {
			var rendered string
			if t.Format != "" {
				formatted, err := applyFormat(t.Format, v)
				if err != nil {
					return err
				}
				rendered = formatted.(string)
			} else {
				rendered = value.ToString(v)
			}
			return build(idx+1, acc+rendered)
		})
	}
	return build(0, "")
}

func (e *Evaluator) evalCall(t ast.FuncCall, input value.Value, scope *env, emit emitFunc) error {
	if fn, ok := scope.lookupFunc(t.Name, len(t.Args)); ok {
		callScope := fn.env
		for i, param := range fn.params {
			// Call-by-name: the argument expression re-evaluates in the
			// caller's scope on every reference.
			callScope = callScope.bindFunc(param, 0, &closure{body: t.Args[i], env: scope})
		}
		return e.eval(fn.body, input, callScope, emit)
	}
	return e.callBuiltin(t.Name, t.Args, input, scope, emit)
}

func (e *Evaluator) sliceBounds(t ast.Slice, input value.Value, scope *env) (from, to *int, err error) {
	toInt := func(x ast.Expr) (*int, error) {
		if x == nil {
			return nil, nil
		}
		v, err := e.evalFirst(x, input, scope)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		n, ok := v.(float64)
		if !ok {
			return nil, diag.TypeErr("slice bound must be a number, got %s", value.TypeName(v))
		}
		i := int(math.Floor(n))
		return &i, nil
	}
	if from, err = toInt(t.From); err != nil {
		return nil, nil, err
	}
	if to, err = toInt(t.To); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// ── Step primitives ─────────────────────────────────────────────

func fieldValue(input value.Value, name string) (value.Value, error) {
	switch t := input.(type) {
	case *value.Object:
		v, _ := t.Get(name)
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, diag.TypeErr("cannot index %s with %q", value.TypeName(input), name)
	}
}

func indexValue(base, idx value.Value) (value.Value, error) {
	switch b := base.(type) {
	case []value.Value:
		n, ok := idx.(float64)
		if !ok {
			return nil, diag.New(diag.KindIndex, "cannot index array with %s", value.TypeName(idx))
		}
		i := int(n)
		if i < 0 {
			i += len(b)
		}
		if i < 0 || i >= len(b) {
			return nil, nil
		}
		return b[i], nil
	case *value.Object:
		key, ok := idx.(string)
		if !ok {
			return nil, diag.New(diag.KindKey, "cannot index object with %s", value.TypeName(idx))
		}
		v, _ := b.Get(key)
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, diag.TypeErr("cannot index %s with %s", value.TypeName(base), value.TypeName(idx))
	}
}

func sliceValue(base value.Value, from, to *int) (value.Value, error) {
	clamp := func(length int) (int, int) {
		start, end := 0, length
		if from != nil {
			start = *from
			if start < 0 {
				start += length
			}
			start = min(max(start, 0), length)
		}
		if to != nil {
			end = *to
			if end < 0 {
				end += length
			}
			end = min(max(end, 0), length)
		}
		if end < start {
			end = start
		}
		return start, end
	}

	switch b := base.(type) {
	case []value.Value:
		start, end := clamp(len(b))
		out := make([]value.Value, end-start)
		copy(out, b[start:end])
		return out, nil
	case string:
		runes := []rune(b)
		start, end := clamp(len(runes))
		return string(runes[start:end]), nil
	case nil:
		return nil, nil
	default:
		return nil, diag.TypeErr("cannot slice %s", value.TypeName(base))
	}
}

func iterate(base value.Value, emit emitFunc) error {
	switch b := base.(type) {
	case []value.Value:
		for _, v := range b {
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	case *value.Object:
		for _, k := range b.Keys() {
			v, _ := b.Get(k)
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	default:
		return diag.TypeErr("cannot iterate over %s", value.TypeName(base))
	}
}

func recurseAll(v value.Value, emit emitFunc) error {
	if err := emit(v); err != nil {
		return err
	}
	switch t := v.(type) {
	case []value.Value:
		for _, item := range t {
			if err := recurseAll(item, emit); err != nil {
				return err
			}
		}
	case *value.Object:
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			if err := recurseAll(item, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

func bindPattern(scope *env, pattern ast.Pattern, v value.Value) (*env, error) {
	switch p := pattern.(type) {
	case ast.VarPattern:
		return scope.bindVar(p.Name, v), nil
	case ast.ArrayPattern:
		arr, ok := v.([]value.Value)
		if !ok && v != nil {
			return nil, diag.TypeErr("cannot destructure %s as array", value.TypeName(v))
		}
		var err error
		for i, elem := range p.Elems {
			var item value.Value
			if i < len(arr) {
				item = arr[i]
			}
			scope, err = bindPattern(scope, elem, item)
			if err != nil {
				return nil, err
			}
		}
		return scope, nil
	case ast.ObjectPattern:
		obj, ok := v.(*value.Object)
		if !ok && v != nil {
			return nil, diag.TypeErr("cannot destructure %s as object", value.TypeName(v))
		}
		var err error
		for i, key := range p.Keys {
			var item value.Value
			if obj != nil {
				item, _ = obj.Get(key)
			}
			scope, err = bindPattern(scope, p.Patterns[i], item)
			if err != nil {
				return nil, err
			}
		}
		return scope, nil
	default:
		return nil, diag.New(diag.KindAssertion, "unhandled pattern %T", pattern)
	}
}

func environObject() *value.Object {
	obj := value.NewObject()
	for _, kv := range os.Environ() {
		if name, val, ok := strings.Cut(kv, "="); ok {
			obj.Set(name, val)
		}
	}
	return obj
}

func (e *Evaluator) nextInput() (value.Value, error) {
	if e.inputs == nil {
		return nil, diag.New(diag.KindUser, "No more inputs")
	}
	v, err := e.inputs.Next()
	if err == io.EOF {
		return nil, diag.New(diag.KindUser, "No more inputs")
	}
	if err != nil {
		return nil, diag.New(diag.KindUser, "input: %s", err)
	}
	return v, nil
}
