package eval

import (
	"sort"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// pathStep is one step of a concrete path: an object key or an array
// index. Path expressions store indices normalized to non-negative; a
// path given as an array value (pathFromValue) keeps its indices as
// written, and a negative one counts from the end when applied.
type pathStep struct {
	key   string
	index int
	isKey bool
}

func keyStep(k string) pathStep {
	return pathStep{key: k, isKey: true}
}

func indexStep(i int) pathStep {
	return pathStep{index: i}
}

// pathsOf computes the concrete paths addressed by a path expression
// against an input value. Only path-shaped expressions qualify; anything
// else is a type error.
func (e *Evaluator) pathsOf(x ast.Expr, input value.Value, scope *env) ([][]pathStep, error) {
	switch t := x.(type) {
	case ast.Identity:
		return [][]pathStep{{}}, nil

	case ast.Recurse:
		var out [][]pathStep
		collectRecursePaths(input, nil, &out)
		return out, nil

	case ast.Field:
		switch input.(type) {
		case *value.Object, nil:
			return [][]pathStep{{keyStep(t.Name)}}, nil
		default:
			if t.Optional {
				return nil, nil
			}
			return nil, diag.TypeErr("cannot index %s with %q", value.TypeName(input), t.Name)
		}

	case ast.Pipe:
		return e.composePaths(t.Left, t.Right, input, scope)

	case ast.Comma:
		left, err := e.pathsOf(t.Left, input, scope)
		if err != nil {
			return nil, err
		}
		right, err := e.pathsOf(t.Right, input, scope)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil

	case ast.Index:
		return e.indexPaths(t, input, scope)

	case ast.Slice:
		return e.slicePaths(t, input, scope)

	case ast.Iterate:
		paths, err := e.pathsOf(t.Base, input, scope)
		if err != nil {
			return nil, err
		}
		var out [][]pathStep
		for _, base := range paths {
			sub := getPath(input, base)
			switch v := sub.(type) {
			case []value.Value:
				for i := range v {
					out = append(out, appendStep(base, indexStep(i)))
				}
			case *value.Object:
				for _, k := range v.Keys() {
					out = append(out, appendStep(base, keyStep(k)))
				}
			default:
				if t.Optional {
					continue
				}
				return nil, diag.TypeErr("cannot iterate over %s", value.TypeName(sub))
			}
		}
		return out, nil

	case ast.Optional:
		paths, err := e.pathsOf(t.Expr, input, scope)
		if err != nil && isRuntimeError(err) {
			return nil, nil
		}
		return paths, err

	case ast.If:
		var out [][]pathStep
		err := e.eval(t.Cond, input, scope, func(cv value.Value) error {
			branch := e.selectIfBranch(t, cv)
			if branch == nil {
				branch = ast.Identity{}
			}
			paths, err := e.pathsOf(branch, input, scope)
			if err != nil {
				return err
			}
			out = append(out, paths...)
			return nil
		})
		return out, err

	case ast.FuncCall:
		return e.callPaths(t, input, scope)

	default:
		return nil, diag.TypeErr("invalid path expression")
	}
}

func (e *Evaluator) selectIfBranch(t ast.If, cond value.Value) ast.Expr {
	if value.IsTruthy(cond) {
		return t.Then
	}
	if len(t.Elif) > 0 {
		// The remaining elif arms become a nested if; pathsOf evaluates
		// its condition, generators included, recursively.
		rest := ast.If{Cond: t.Elif[0].Cond, Then: t.Elif[0].Then, Elif: t.Elif[1:], Else: t.Else}
		return rest
	}
	return t.Else
}

func (e *Evaluator) composePaths(left, right ast.Expr, input value.Value, scope *env) ([][]pathStep, error) {
	leftPaths, err := e.pathsOf(left, input, scope)
	if err != nil {
		return nil, err
	}
	var out [][]pathStep
	for _, lp := range leftPaths {
		sub := getPath(input, lp)
		rightPaths, err := e.pathsOf(right, sub, scope)
		if err != nil {
			return nil, err
		}
		for _, rp := range rightPaths {
			path := make([]pathStep, 0, len(lp)+len(rp))
			path = append(path, lp...)
			path = append(path, rp...)
			out = append(out, path)
		}
	}
	return out, nil
}

func (e *Evaluator) indexPaths(t ast.Index, input value.Value, scope *env) ([][]pathStep, error) {
	basePaths, err := e.pathsOf(t.Base, input, scope)
	if err != nil {
		return nil, err
	}
	var out [][]pathStep
	for _, base := range basePaths {
		sub := getPath(input, base)
		err := e.eval(t.Idx, input, scope, func(idx value.Value) error {
			switch i := idx.(type) {
			case string:
				out = append(out, appendStep(base, keyStep(i)))
				return nil
			case float64:
				n := int(i)
				if n < 0 {
					if arr, ok := sub.([]value.Value); ok {
						n += len(arr)
					}
					if n < 0 {
						n = 0
					}
				}
				out = append(out, appendStep(base, indexStep(n)))
				return nil
			default:
				if t.Optional {
					return nil
				}
				return diag.TypeErr("cannot index with %s", value.TypeName(idx))
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// slicePaths expands a slice into the index steps it covers, which keeps
// paths to the Key/Index shape. Slices of not-yet-existing arrays cover
// nothing.
func (e *Evaluator) slicePaths(t ast.Slice, input value.Value, scope *env) ([][]pathStep, error) {
	basePaths, err := e.pathsOf(t.Base, input, scope)
	if err != nil {
		return nil, err
	}
	from, to, err := e.sliceBounds(t, input, scope)
	if err != nil {
		return nil, err
	}
	var out [][]pathStep
	for _, base := range basePaths {
		arr, ok := getPath(input, base).([]value.Value)
		if !ok {
			continue
		}
		start, end := 0, len(arr)
		if from != nil {
			start = normalizeIndex(*from, len(arr))
		}
		if to != nil {
			end = normalizeIndex(*to, len(arr))
		}
		for i := start; i < end; i++ {
			out = append(out, appendStep(base, indexStep(i)))
		}
	}
	return out, nil
}

// callPaths resolves path-valued function calls: user functions expand
// to their bodies, and the path-transparent builtins are special-cased.
func (e *Evaluator) callPaths(t ast.FuncCall, input value.Value, scope *env) ([][]pathStep, error) {
	if fn, ok := scope.lookupFunc(t.Name, len(t.Args)); ok {
		callScope := fn.env
		for i, param := range fn.params {
			callScope = callScope.bindFunc(param, 0, &closure{body: t.Args[i], env: scope})
		}
		return e.pathsOf(fn.body, input, callScope)
	}

	switch t.Name {
	case "empty":
		return nil, nil
	case "select":
		if len(t.Args) == 1 {
			keep := false
			err := e.eval(t.Args[0], input, scope, func(v value.Value) error {
				if value.IsTruthy(v) {
					keep = true
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			if keep {
				return [][]pathStep{{}}, nil
			}
			return nil, nil
		}
	case "recurse":
		if len(t.Args) == 0 {
			return e.pathsOf(ast.Recurse{}, input, scope)
		}
	case "getpath":
		if len(t.Args) == 1 {
			var out [][]pathStep
			err := e.eval(t.Args[0], input, scope, func(v value.Value) error {
				path, err := pathFromValue(v)
				if err != nil {
					return err
				}
				out = append(out, path)
				return nil
			})
			return out, err
		}
	}
	return nil, diag.TypeErr("%s is not a valid path expression", t.Name)
}

func appendStep(base []pathStep, step pathStep) []pathStep {
	path := make([]pathStep, 0, len(base)+1)
	path = append(path, base...)
	path = append(path, step)
	return path
}

func normalizeIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func collectRecursePaths(v value.Value, prefix []pathStep, out *[][]pathStep) {
	*out = append(*out, append([]pathStep(nil), prefix...))
	switch t := v.(type) {
	case []value.Value:
		for i, item := range t {
			collectRecursePaths(item, append(prefix, indexStep(i)), out)
		}
	case *value.Object:
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			collectRecursePaths(item, append(prefix, keyStep(k)), out)
		}
	}
}

// ── Concrete path operations ────────────────────────────────────

func getPath(v value.Value, path []pathStep) value.Value {
	current := v
	for _, step := range path {
		if step.isKey {
			obj, ok := current.(*value.Object)
			if !ok {
				return nil
			}
			current, _ = obj.Get(step.key)
			continue
		}
		arr, ok := current.([]value.Value)
		if !ok {
			return nil
		}
		i := step.index
		if i < 0 {
			i += len(arr)
		}
		if i < 0 || i >= len(arr) {
			return nil
		}
		current = arr[i]
	}
	return current
}

// setPath returns a copy of v with the value at path replaced. Missing
// object keys are created, arrays extend with nulls, and null
// intermediates coerce to the container the next step needs.
func setPath(v value.Value, path []pathStep, newVal value.Value) (value.Value, error) {
	if len(path) == 0 {
		return newVal, nil
	}
	step, rest := path[0], path[1:]

	if step.isKey {
		var obj *value.Object
		switch t := v.(type) {
		case *value.Object:
			obj = t.Clone()
		case nil:
			obj = value.NewObject()
		default:
			return nil, diag.TypeErr("cannot index %s with %q", value.TypeName(v), step.key)
		}
		sub, _ := obj.Get(step.key)
		updated, err := setPath(sub, rest, newVal)
		if err != nil {
			return nil, err
		}
		obj.Set(step.key, updated)
		return obj, nil
	}

	var arr []value.Value
	switch t := v.(type) {
	case []value.Value:
		arr = make([]value.Value, len(t))
		copy(arr, t)
	case nil:
		arr = nil
	default:
		return nil, diag.TypeErr("cannot index %s with number", value.TypeName(v))
	}
	i := step.index
	if i < 0 {
		i += len(arr)
		if i < 0 {
			return nil, diag.New(diag.KindIndex, "out of bounds negative array index")
		}
	}
	for len(arr) <= i {
		arr = append(arr, nil)
	}
	updated, err := setPath(arr[i], rest, newVal)
	if err != nil {
		return nil, err
	}
	arr[i] = updated
	return arr, nil
}

// deletePath returns a copy of v without the addressed element. Paths
// into missing containers are a no-op.
func deletePath(v value.Value, path []pathStep) (value.Value, error) {
	if len(path) == 0 {
		return nil, nil
	}
	step, rest := path[0], path[1:]

	if step.isKey {
		obj, ok := v.(*value.Object)
		if !ok {
			if v == nil {
				return nil, nil
			}
			return nil, diag.TypeErr("cannot delete field of %s", value.TypeName(v))
		}
		if len(rest) == 0 {
			out := obj.Clone()
			out.Delete(step.key)
			return out, nil
		}
		sub, ok := obj.Get(step.key)
		if !ok {
			return obj, nil
		}
		updated, err := deletePath(sub, rest)
		if err != nil {
			return nil, err
		}
		out := obj.Clone()
		out.Set(step.key, updated)
		return out, nil
	}

	arr, ok := v.([]value.Value)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, diag.TypeErr("cannot delete element of %s", value.TypeName(v))
	}
	i := step.index
	if i < 0 {
		i += len(arr)
	}
	if i < 0 || i >= len(arr) {
		return arr, nil
	}
	if len(rest) == 0 {
		out := make([]value.Value, 0, len(arr)-1)
		out = append(out, arr[:i]...)
		out = append(out, arr[i+1:]...)
		return out, nil
	}
	updated, err := deletePath(arr[i], rest)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(arr))
	copy(out, arr)
	out[i] = updated
	return out, nil
}

// deletePaths removes every path, working in reverse sorted order so
// earlier removals cannot shift later indices.
func deletePaths(v value.Value, paths [][]pathStep) (value.Value, error) {
	sorted := make([][]pathStep, len(paths))
	copy(sorted, paths)
	sort.SliceStable(sorted, func(i, j int) bool {
		return value.Compare(pathToValue(sorted[i]), pathToValue(sorted[j])) < 0
	})
	result := v
	var err error
	for i := len(sorted) - 1; i >= 0; i-- {
		result, err = deletePath(result, sorted[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// pathToValue converts a path to its first-class array form.
func pathToValue(path []pathStep) value.Value {
	out := make([]value.Value, len(path))
	for i, step := range path {
		if step.isKey {
			out[i] = step.key
		} else {
			out[i] = float64(step.index)
		}
	}
	return out
}

// pathFromValue converts a first-class path array into path steps.
func pathFromValue(v value.Value) ([]pathStep, error) {
	arr, ok := v.([]value.Value)
	if !ok {
		return nil, diag.TypeErr("path must be an array of strings and numbers, got %s", value.TypeName(v))
	}
	out := make([]pathStep, len(arr))
	for i, seg := range arr {
		switch s := seg.(type) {
		case string:
			out[i] = keyStep(s)
		case float64:
			out[i] = indexStep(int(s))
		default:
			return nil, diag.TypeErr("path element must be a string or number, got %s", value.TypeName(seg))
		}
	}
	return out, nil
}
