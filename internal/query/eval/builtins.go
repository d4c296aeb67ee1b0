package eval

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// builtinFunc implements one primitive. Filter arguments arrive
// unevaluated and re-run as generators in the caller's scope.
type builtinFunc func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error

type builtinKey struct {
	name  string
	arity int
}

var builtins map[builtinKey]builtinFunc

func init() {
	builtins = map[builtinKey]builtinFunc{}
	register := func(name string, arity int, fn builtinFunc) {
		builtins[builtinKey{name, arity}] = fn
	}
	registerCore(register)
	registerStrings(register)
	registerRegex(register)
	registerMath(register)
	registerPaths(register)
}

func (e *Evaluator) callBuiltin(name string, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
	fn, ok := builtins[builtinKey{name, len(args)}]
	if !ok {
		return diag.TypeErr("%s/%d is not defined", name, len(args))
	}
	return fn(e, args, input, scope, emit)
}

// argValue evaluates an argument expression to its first value.
func (e *Evaluator) argValue(arg ast.Expr, input value.Value, scope *env) (value.Value, error) {
	return e.evalFirst(arg, input, scope)
}

func (e *Evaluator) argString(arg ast.Expr, input value.Value, scope *env, what string) (string, error) {
	v, err := e.argValue(arg, input, scope)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", diag.TypeErr("%s must be a string, got %s", what, value.TypeName(v))
	}
	return s, nil
}

func (e *Evaluator) argNumber(arg ast.Expr, input value.Value, scope *env, what string) (float64, error) {
	v, err := e.argValue(arg, input, scope)
	if err != nil {
		return 0, err
	}
	n, ok := v.(float64)
	if !ok {
		return 0, diag.TypeErr("%s must be a number, got %s", what, value.TypeName(v))
	}
	return n, nil
}

var errStopLimit = fmt.Errorf("limit reached")

func registerCore(register func(string, int, builtinFunc)) {
	register("length", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		v, err := lengthOf(input)
		if err != nil {
			return err
		}
		return emit(v)
	})

	register("utf8bytelength", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		if s, ok := input.(string); ok {
			return emit(float64(len(s)))
		}
		v, err := lengthOf(input)
		if err != nil {
			return err
		}
		return emit(v)
	})

	register("type", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		return emit(value.TypeName(input))
	})

	keysFn := func(sorted bool) builtinFunc {
		return func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
			switch t := input.(type) {
			case *value.Object:
				keys := t.Keys()
				if sorted {
					keys = t.SortedKeys()
				}
				out := make([]value.Value, len(keys))
				for i, k := range keys {
					out[i] = k
				}
				return emit(out)
			case []value.Value:
				out := make([]value.Value, len(t))
				for i := range t {
					out[i] = float64(i)
				}
				return emit(out)
			default:
				return diag.TypeErr("%s has no keys", value.TypeName(input))
			}
		}
	}
	register("keys", 0, keysFn(true))
	register("keys_unsorted", 0, keysFn(false))

	register("values", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		switch t := input.(type) {
		case *value.Object:
			return emit(t.Values())
		case []value.Value:
			return emit(input)
		default:
			return diag.TypeErr("%s is not iterable", value.TypeName(input))
		}
	})

	register("has", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		key, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		return emit(hasKey(input, key))
	})

	register("in", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		container, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		return emit(hasKey(container, input))
	})

	register("not", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		return emit(!value.IsTruthy(input))
	})

	register("empty", 0, func(e *Evaluator, _ []ast.Expr, _ value.Value, _ *env, _ emitFunc) error {
		return nil
	})

	register("error", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, _ emitFunc) error {
		return diag.User(value.ToString(input))
	})

	register("error", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, _ emitFunc) error {
		msg, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		return diag.User(value.ToString(msg))
	})

	register("debug", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		fmt.Fprintf(os.Stderr, "[\"DEBUG:\",%s]\n", value.ToJSON(input))
		return emit(input)
	})

	register("debug", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		msg, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "[\"DEBUG:\",%s,%s]\n", value.ToJSON(msg), value.ToJSON(input))
		return emit(input)
	})

	register("select", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return e.eval(args[0], input, scope, func(v value.Value) error {
			if value.IsTruthy(v) {
				return emit(input)
			}
			return nil
		})
	})

	register("map", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		arr, ok := input.([]value.Value)
		if !ok {
			return diag.TypeErr("map requires an array, got %s", value.TypeName(input))
		}
		out := []value.Value{}
		for _, item := range arr {
			err := e.eval(args[0], item, scope, func(v value.Value) error {
				out = append(out, v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return emit(out)
	})

	register("map_values", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		switch t := input.(type) {
		case []value.Value:
			out := []value.Value{}
			for _, item := range t {
				v, produced, err := e.updateValue(args[0], item, scope)
				if err != nil {
					return err
				}
				if produced {
					out = append(out, v)
				}
			}
			return emit(out)
		case *value.Object:
			out := value.NewObjectCapacity(t.Len())
			for _, k := range t.Keys() {
				item, _ := t.Get(k)
				v, produced, err := e.updateValue(args[0], item, scope)
				if err != nil {
					return err
				}
				if produced {
					out.Set(k, v)
				}
			}
			return emit(out)
		default:
			return diag.TypeErr("map_values requires an array or object, got %s", value.TypeName(input))
		}
	})

	register("to_entries", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		obj, ok := input.(*value.Object)
		if !ok {
			return diag.TypeErr("to_entries requires an object, got %s", value.TypeName(input))
		}
		out := make([]value.Value, 0, obj.Len())
		for _, k := range obj.Keys() {
			v, _ := obj.Get(k)
			entry := value.NewObjectCapacity(2)
			entry.Set("key", k)
			entry.Set("value", v)
			out = append(out, entry)
		}
		return emit(out)
	})

	register("from_entries", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		arr, ok := input.([]value.Value)
		if !ok {
			return diag.TypeErr("from_entries requires an array, got %s", value.TypeName(input))
		}
		out := value.NewObjectCapacity(len(arr))
		for _, item := range arr {
			key, val, err := entryKeyValue(item)
			if err != nil {
				return err
			}
			out.Set(key, val)
		}
		return emit(out)
	})

	register("with_entries", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return e.callBuiltin("to_entries", nil, input, scope, func(entries value.Value) error {
			return e.callBuiltin("map", args, entries, scope, func(mapped value.Value) error {
				return e.callBuiltin("from_entries", nil, mapped, scope, emit)
			})
		})
	})

	register("add", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		arr, ok := input.([]value.Value)
		if !ok {
			return diag.TypeErr("add requires an array, got %s", value.TypeName(input))
		}
		if len(arr) == 0 {
			return emit(nil)
		}
		acc := arr[0]
		var err error
		for _, item := range arr[1:] {
			acc, err = addValues(acc, item)
			if err != nil {
				return err
			}
		}
		return emit(acc)
	})

	anyAll := func(name string, stopOn bool) builtinFunc {
		return func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
			arr, ok := input.([]value.Value)
			if !ok {
				return diag.TypeErr("%s requires an array, got %s", name, value.TypeName(input))
			}
			for _, item := range arr {
				truthy := value.IsTruthy(item)
				if len(args) == 1 {
					v, err := e.argValue(args[0], item, scope)
					if err != nil {
						return err
					}
					truthy = value.IsTruthy(v)
				}
				if truthy == stopOn {
					return emit(stopOn)
				}
			}
			return emit(!stopOn)
		}
	}
	register("any", 0, anyAll("any", true))
	register("any", 1, anyAll("any", true))
	register("all", 0, anyAll("all", false))
	register("all", 1, anyAll("all", false))

	register("flatten", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		return flattenTo(input, -1, emit)
	})

	register("flatten", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		depth, err := e.argNumber(args[0], input, scope, "flatten depth")
		if err != nil {
			return err
		}
		if depth < 0 {
			return diag.TypeErr("flatten depth must not be negative")
		}
		return flattenTo(input, int(depth), emit)
	})

	register("transpose", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		arr, ok := input.([]value.Value)
		if !ok {
			return diag.TypeErr("transpose requires an array, got %s", value.TypeName(input))
		}
		maxLen := 0
		for _, row := range arr {
			if inner, ok := row.([]value.Value); ok && len(inner) > maxLen {
				maxLen = len(inner)
			}
		}
		out := make([]value.Value, maxLen)
		for i := 0; i < maxLen; i++ {
			row := make([]value.Value, len(arr))
			for j, col := range arr {
				if inner, ok := col.([]value.Value); ok && i < len(inner) {
					row[j] = inner[i]
				}
			}
			out[i] = row
		}
		return emit(out)
	})

	register("range", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return e.evalRange(ast.Literal{Value: 0.0}, args[0], ast.Literal{Value: 1.0}, input, scope, emit)
	})
	register("range", 2, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return e.evalRange(args[0], args[1], ast.Literal{Value: 1.0}, input, scope, emit)
	})
	register("range", 3, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return e.evalRange(args[0], args[1], args[2], input, scope, emit)
	})

	register("sort", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		arr, ok := input.([]value.Value)
		if !ok {
			return diag.TypeErr("sort requires an array, got %s", value.TypeName(input))
		}
		out := make([]value.Value, len(arr))
		copy(out, arr)
		sort.SliceStable(out, func(i, j int) bool {
			return value.Compare(out[i], out[j]) < 0
		})
		return emit(out)
	})

	register("sort_by", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		keyed, err := e.keyedItems(args[0], input, scope, "sort_by")
		if err != nil {
			return err
		}
		sort.SliceStable(keyed, func(i, j int) bool {
			return value.Compare(keyed[i].key, keyed[j].key) < 0
		})
		out := make([]value.Value, len(keyed))
		for i, kv := range keyed {
			out[i] = kv.item
		}
		return emit(out)
	})

	register("group_by", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		keyed, err := e.keyedItems(args[0], input, scope, "group_by")
		if err != nil {
			return err
		}
		sort.SliceStable(keyed, func(i, j int) bool {
			return value.Compare(keyed[i].key, keyed[j].key) < 0
		})
		var groups []value.Value
		var current []value.Value
		for i, kv := range keyed {
			if i > 0 && !value.Equal(keyed[i-1].key, kv.key) {
				groups = append(groups, current)
				current = nil
			}
			current = append(current, kv.item)
		}
		if current != nil {
			groups = append(groups, current)
		}
		if groups == nil {
			groups = []value.Value{}
		}
		return emit(groups)
	})

	register("unique", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		arr, ok := input.([]value.Value)
		if !ok {
			return diag.TypeErr("unique requires an array, got %s", value.TypeName(input))
		}
		out := make([]value.Value, len(arr))
		copy(out, arr)
		sort.SliceStable(out, func(i, j int) bool {
			return value.Compare(out[i], out[j]) < 0
		})
		deduped := []value.Value{}
		for i, item := range out {
			if i == 0 || value.Compare(out[i-1], item) != 0 {
				deduped = append(deduped, item)
			}
		}
		return emit(deduped)
	})

	register("unique_by", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		keyed, err := e.keyedItems(args[0], input, scope, "unique_by")
		if err != nil {
			return err
		}
		sort.SliceStable(keyed, func(i, j int) bool {
			return value.Compare(keyed[i].key, keyed[j].key) < 0
		})
		out := []value.Value{}
		for i, kv := range keyed {
			if i == 0 || value.Compare(keyed[i-1].key, kv.key) != 0 {
				out = append(out, kv.item)
			}
		}
		return emit(out)
	})

	register("reverse", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		switch t := input.(type) {
		case []value.Value:
			out := make([]value.Value, len(t))
			for i, item := range t {
				out[len(t)-1-i] = item
			}
			return emit(out)
		case string:
			runes := []rune(t)
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return emit(string(runes))
		default:
			return diag.TypeErr("reverse requires an array or string, got %s", value.TypeName(input))
		}
	})

	minMax := func(name string, wantLess bool) builtinFunc {
		return func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
			arr, ok := input.([]value.Value)
			if !ok {
				return diag.TypeErr("%s requires an array, got %s", name, value.TypeName(input))
			}
			if len(arr) == 0 {
				return emit(nil)
			}
			keyOf := func(item value.Value) (value.Value, error) {
				if len(args) == 0 {
					return item, nil
				}
				return e.argValue(args[0], item, scope)
			}
			best := arr[0]
			bestKey, err := keyOf(best)
			if err != nil {
				return err
			}
			for _, item := range arr[1:] {
				key, err := keyOf(item)
				if err != nil {
					return err
				}
				c := value.Compare(key, bestKey)
				if (wantLess && c < 0) || (!wantLess && c >= 0) {
					best, bestKey = item, key
				}
			}
			return emit(best)
		}
	}
	register("min", 0, minMax("min", true))
	register("max", 0, minMax("max", false))
	register("min_by", 1, minMax("min_by", true))
	register("max_by", 1, minMax("max_by", false))

	register("contains", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		other, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		return emit(value.Contains(input, other))
	})

	register("inside", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		other, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		return emit(value.Contains(other, input))
	})

	register("first", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return e.eval(ast.Index{Base: ast.Identity{}, Idx: ast.Literal{Value: 0.0}}, input, scope, emit)
	})

	register("first", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		err := e.eval(args[0], input, scope, func(v value.Value) error {
			if err := emit(v); err != nil {
				return err
			}
			return errStopLimit
		})
		if err == errStopLimit {
			return nil
		}
		return err
	})

	register("last", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return e.eval(ast.Index{Base: ast.Identity{}, Idx: ast.Literal{Value: -1.0}}, input, scope, emit)
	})

	register("last", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		var (
			last  value.Value
			found bool
		)
		err := e.eval(args[0], input, scope, func(v value.Value) error {
			last = v
			found = true
			return nil
		})
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		return emit(last)
	})

	register("nth", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		n, err := e.argNumber(args[0], input, scope, "nth index")
		if err != nil {
			return err
		}
		return e.eval(ast.Index{Base: ast.Identity{}, Idx: ast.Literal{Value: n}}, input, scope, emit)
	})

	register("nth", 2, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		n, err := e.argNumber(args[0], input, scope, "nth index")
		if err != nil {
			return err
		}
		if n < 0 {
			return diag.TypeErr("nth doesn't support negative indices")
		}
		target := int(n)
		count := 0
		err = e.eval(args[1], input, scope, func(v value.Value) error {
			if count == target {
				if err := emit(v); err != nil {
					return err
				}
				return errStopLimit
			}
			count++
			return nil
		})
		if err == errStopLimit {
			return nil
		}
		return err
	})

	register("limit", 2, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		n, err := e.argNumber(args[0], input, scope, "limit count")
		if err != nil {
			return err
		}
		remaining := int(n)
		if remaining <= 0 {
			return nil
		}
		err = e.eval(args[1], input, scope, func(v value.Value) error {
			if err := emit(v); err != nil {
				return err
			}
			remaining--
			if remaining == 0 {
				return errStopLimit
			}
			return nil
		})
		if err == errStopLimit {
			return nil
		}
		return err
	})

	register("recurse", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		return recurseAll(input, emit)
	})

	register("recurse", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		var walk func(v value.Value) error
		walk = func(v value.Value) error {
			if err := emit(v); err != nil {
				return err
			}
			return e.eval(args[0], v, scope, walk)
		}
		return walk(input)
	})

	register("until", 2, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		current := input
		for {
			cond, err := e.argValue(args[0], current, scope)
			if err != nil {
				return err
			}
			if value.IsTruthy(cond) {
				return emit(current)
			}
			current, err = e.evalFirst(args[1], current, scope)
			if err != nil {
				return err
			}
		}
	})

	register("while", 2, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		current := input
		for {
			cond, err := e.argValue(args[0], current, scope)
			if err != nil {
				return err
			}
			if !value.IsTruthy(cond) {
				return nil
			}
			if err := emit(current); err != nil {
				return err
			}
			current, err = e.evalFirst(args[1], current, scope)
			if err != nil {
				return err
			}
		}
	})

	register("repeat", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		current := input
		for {
			if err := emit(current); err != nil {
				return err
			}
			var err error
			current, err = e.evalFirst(args[0], current, scope)
			if err != nil {
				return err
			}
		}
	})

	register("env", 0, func(e *Evaluator, _ []ast.Expr, _ value.Value, _ *env, emit emitFunc) error {
		return emit(environObject())
	})

	register("input", 0, func(e *Evaluator, _ []ast.Expr, _ value.Value, _ *env, emit emitFunc) error {
		v, err := e.nextInput()
		if err != nil {
			return err
		}
		return emit(v)
	})

	register("inputs", 0, func(e *Evaluator, _ []ast.Expr, _ value.Value, _ *env, emit emitFunc) error {
		if e.inputs == nil {
			return nil
		}
		for {
			v, err := e.inputs.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return diag.New(diag.KindUser, "inputs: %s", err)
			}
			if err := emit(v); err != nil {
				return err
			}
		}
	})

	register("builtins", 0, func(e *Evaluator, _ []ast.Expr, _ value.Value, _ *env, emit emitFunc) error {
		names := make([]string, 0, len(builtins))
		for key := range builtins {
			names = append(names, fmt.Sprintf("%s/%d", key.name, key.arity))
		}
		sort.Strings(names)
		out := make([]value.Value, len(names))
		for i, n := range names {
			out[i] = n
		}
		return emit(out)
	})

	register("tojson", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		return emit(value.ToJSON(input))
	})

	register("fromjson", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		s, ok := input.(string)
		if !ok {
			return diag.TypeErr("fromjson requires a string, got %s", value.TypeName(input))
		}
		v, err := value.ParseJSON(s)
		if err != nil {
			return diag.New(diag.KindUser, "fromjson: %s", err)
		}
		return emit(v)
	})
}

// evalRange iterates the cartesian product of the bound generators,
// rightmost fastest, emitting each arithmetic sequence.
func (e *Evaluator) evalRange(fromExpr, toExpr, stepExpr ast.Expr, input value.Value, scope *env, emit emitFunc) error {
	return e.eval(fromExpr, input, scope, func(fromV value.Value) error {
		return e.eval(toExpr, input, scope, func(toV value.Value) error {
			return e.eval(stepExpr, input, scope, func(stepV value.Value) error {
				from, ok1 := fromV.(float64)
				to, ok2 := toV.(float64)
				step, ok3 := stepV.(float64)
				if !ok1 || !ok2 || !ok3 {
					return diag.TypeErr("range bounds must be numbers")
				}
				if step == 0 {
					return diag.TypeErr("range step must not be zero")
				}
				if step > 0 {
					for i := from; i < to; i += step {
						if err := emit(i); err != nil {
							return err
						}
					}
				} else {
					for i := from; i > to; i += step {
						if err := emit(i); err != nil {
							return err
						}
					}
				}
				return nil
			})
		})
	})
}

type keyedItem struct {
	key  value.Value
	item value.Value
}

func (e *Evaluator) keyedItems(keyExpr ast.Expr, input value.Value, scope *env, name string) ([]keyedItem, error) {
	arr, ok := input.([]value.Value)
	if !ok {
		return nil, diag.TypeErr("%s requires an array, got %s", name, value.TypeName(input))
	}
	out := make([]keyedItem, len(arr))
	for i, item := range arr {
		key, err := e.argValue(keyExpr, item, scope)
		if err != nil {
			return nil, err
		}
		out[i] = keyedItem{key: key, item: item}
	}
	return out, nil
}

func lengthOf(input value.Value) (value.Value, error) {
	switch t := input.(type) {
	case nil:
		return 0.0, nil
	case bool:
		return nil, diag.TypeErr("boolean has no length")
	case float64:
		if t < 0 {
			return -t, nil
		}
		return t, nil
	case string:
		count := 0
		for range t {
			count++
		}
		return float64(count), nil
	case []value.Value:
		return float64(len(t)), nil
	case *value.Object:
		return float64(t.Len()), nil
	default:
		return nil, diag.TypeErr("%s has no length", value.TypeName(input))
	}
}

func hasKey(container, key value.Value) bool {
	switch c := container.(type) {
	case *value.Object:
		if k, ok := key.(string); ok {
			_, found := c.Get(k)
			return found
		}
	case []value.Value:
		if n, ok := key.(float64); ok {
			i := int(n)
			return i >= 0 && i < len(c)
		}
	}
	return false
}

func entryKeyValue(item value.Value) (string, value.Value, error) {
	obj, ok := item.(*value.Object)
	if !ok {
		return "", nil, diag.TypeErr("from_entries entry must be an object, got %s", value.TypeName(item))
	}
	var key string
	found := false
	for _, name := range []string{"key", "k", "name"} {
		if v, ok := obj.Get(name); ok {
			key = value.ToString(v)
			found = true
			break
		}
	}
	if !found {
		return "", nil, diag.TypeErr("from_entries entry has no key field")
	}
	for _, name := range []string{"value", "v"} {
		if v, ok := obj.Get(name); ok {
			return key, v, nil
		}
	}
	return key, nil, nil
}

func flattenTo(input value.Value, depth int, emit emitFunc) error {
	arr, ok := input.([]value.Value)
	if !ok {
		return diag.TypeErr("flatten requires an array, got %s", value.TypeName(input))
	}
	out := []value.Value{}
	var walk func(items []value.Value, remaining int)
	walk = func(items []value.Value, remaining int) {
		for _, item := range items {
			if inner, ok := item.([]value.Value); ok && remaining != 0 {
				walk(inner, remaining-1)
				continue
			}
			out = append(out, item)
		}
	}
	walk(arr, depth)
	return emit(out)
}
