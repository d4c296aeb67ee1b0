package eval

import (
	"strconv"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

func registerStrings(register func(string, int, builtinFunc)) {
	register("tostring", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		return emit(value.ToString(input))
	})

	register("tonumber", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		switch t := input.(type) {
		case float64:
			return emit(t)
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return diag.TypeErr("cannot parse %q as number", t)
			}
			return emit(n)
		default:
			return diag.TypeErr("cannot convert %s to number", value.TypeName(input))
		}
	})

	register("ascii_downcase", 0, stringTransform("ascii_downcase", strings.ToLower))
	register("ascii_upcase", 0, stringTransform("ascii_upcase", strings.ToUpper))

	register("ltrimstr", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		prefix, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		s, ok1 := input.(string)
		p, ok2 := prefix.(string)
		if !ok1 || !ok2 {
			return emit(input)
		}
		return emit(strings.TrimPrefix(s, p))
	})

	register("rtrimstr", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		suffix, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		s, ok1 := input.(string)
		p, ok2 := suffix.(string)
		if !ok1 || !ok2 {
			return emit(input)
		}
		return emit(strings.TrimSuffix(s, p))
	})

	register("trim", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		if s, ok := input.(string); ok {
			return emit(strings.TrimSpace(s))
		}
		return emit(input)
	})

	register("split", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		s, ok := input.(string)
		if !ok {
			return diag.TypeErr("split requires a string, got %s", value.TypeName(input))
		}
		sep, err := e.argString(args[0], input, scope, "split separator")
		if err != nil {
			return err
		}
		return emit(splitString(s, sep))
	})

	register("join", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		arr, ok := input.([]value.Value)
		if !ok {
			return diag.TypeErr("join requires an array, got %s", value.TypeName(input))
		}
		sep, err := e.argString(args[0], input, scope, "join separator")
		if err != nil {
			return err
		}
		parts := make([]string, len(arr))
		for i, item := range arr {
			if item == nil {
				continue
			}
			parts[i] = value.ToString(item)
		}
		return emit(strings.Join(parts, sep))
	})

	register("startswith", 1, stringPredicate("startswith", strings.HasPrefix))
	register("endswith", 1, stringPredicate("endswith", strings.HasSuffix))

	register("ascii", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		n, ok := input.(float64)
		if !ok {
			return diag.TypeErr("ascii requires a number, got %s", value.TypeName(input))
		}
		return emit(string(rune(int(n))))
	})

	register("explode", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		s, ok := input.(string)
		if !ok {
			return diag.TypeErr("explode requires a string, got %s", value.TypeName(input))
		}
		out := []value.Value{}
		for _, r := range s {
			out = append(out, float64(r))
		}
		return emit(out)
	})

	register("implode", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		arr, ok := input.([]value.Value)
		if !ok {
			return diag.TypeErr("implode requires an array, got %s", value.TypeName(input))
		}
		var b strings.Builder
		for _, item := range arr {
			n, ok := item.(float64)
			if !ok {
				return diag.TypeErr("implode requires an array of codepoints")
			}
			b.WriteRune(rune(int(n)))
		}
		return emit(b.String())
	})

	register("indices", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		needle, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		return emit(findIndices(input, needle))
	})

	register("index", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		needle, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		indices, _ := findIndices(input, needle).([]value.Value)
		if len(indices) == 0 {
			return emit(nil)
		}
		return emit(indices[0])
	})

	register("rindex", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		needle, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		indices, _ := findIndices(input, needle).([]value.Value)
		if len(indices) == 0 {
			return emit(nil)
		}
		return emit(indices[len(indices)-1])
	})
}

func stringTransform(name string, transform func(string) string) builtinFunc {
	return func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		s, ok := input.(string)
		if !ok {
			return diag.TypeErr("%s requires a string, got %s", name, value.TypeName(input))
		}
		return emit(transform(s))
	}
}

func stringPredicate(name string, pred func(string, string) bool) builtinFunc {
	return func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		s, ok := input.(string)
		if !ok {
			return diag.TypeErr("%s requires a string, got %s", name, value.TypeName(input))
		}
		arg, err := e.argString(args[0], input, scope, name+" argument")
		if err != nil {
			return err
		}
		return emit(pred(s, arg))
	}
}

func splitString(s, sep string) []value.Value {
	if s == "" {
		return []value.Value{}
	}
	parts := strings.Split(s, sep)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

func findIndices(input, needle value.Value) value.Value {
	switch t := input.(type) {
	case string:
		pat, ok := needle.(string)
		if !ok || pat == "" {
			return nil
		}
		out := []value.Value{}
		offset := 0
		for {
			i := strings.Index(t[offset:], pat)
			if i < 0 {
				break
			}
			out = append(out, float64(offset+i))
			offset += i + 1
		}
		return out
	case []value.Value:
		out := []value.Value{}
		if sub, ok := needle.([]value.Value); ok {
			if len(sub) == 0 {
				return nil
			}
			for i := 0; i+len(sub) <= len(t); i++ {
				match := true
				for j := range sub {
					if !value.Equal(t[i+j], sub[j]) {
						match = false
						break
					}
				}
				if match {
					out = append(out, float64(i))
				}
			}
			return out
		}
		for i, item := range t {
			if value.Equal(item, needle) {
				out = append(out, float64(i))
			}
		}
		return out
	default:
		return nil
	}
}
