package eval

import (
	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

func registerPaths(register func(string, int, builtinFunc)) {
	register("path", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		paths, err := e.pathsOf(args[0], input, scope)
		if err != nil {
			return err
		}
		for _, path := range paths {
			if err := emit(pathToValue(path)); err != nil {
				return err
			}
		}
		return nil
	})

	register("paths", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		return walkPaths(input, nil, func(path []pathStep, _ value.Value) error {
			return emit(pathToValue(path))
		})
	})

	register("paths", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return walkPaths(input, nil, func(path []pathStep, v value.Value) error {
			keep, err := e.argValue(args[0], v, scope)
			if err != nil {
				return err
			}
			if value.IsTruthy(keep) {
				return emit(pathToValue(path))
			}
			return nil
		})
	})

	register("leaf_paths", 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
		return walkPaths(input, nil, func(path []pathStep, v value.Value) error {
			switch v.(type) {
			case []value.Value, *value.Object:
				return nil
			default:
				return emit(pathToValue(path))
			}
		})
	})

	register("getpath", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		return e.eval(args[0], input, scope, func(pv value.Value) error {
			path, err := pathFromValue(pv)
			if err != nil {
				return err
			}
			return emit(getPath(input, path))
		})
	})

	register("setpath", 2, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		pv, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		path, err := pathFromValue(pv)
		if err != nil {
			return err
		}
		return e.eval(args[1], input, scope, func(newVal value.Value) error {
			out, err := setPath(input, path, newVal)
			if err != nil {
				return err
			}
			return emit(out)
		})
	})

	register("delpaths", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		pv, err := e.argValue(args[0], input, scope)
		if err != nil {
			return err
		}
		arr, ok := pv.([]value.Value)
		if !ok {
			return diag.TypeErr("delpaths requires an array of paths, got %s", value.TypeName(pv))
		}
		paths := make([][]pathStep, len(arr))
		for i, item := range arr {
			paths[i], err = pathFromValue(item)
			if err != nil {
				return err
			}
		}
		out, err := deletePaths(input, paths)
		if err != nil {
			return err
		}
		return emit(out)
	})

	register("del", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		paths, err := e.pathsOf(args[0], input, scope)
		if err != nil {
			return err
		}
		out, err := deletePaths(input, paths)
		if err != nil {
			return err
		}
		return emit(out)
	})
}

// walkPaths visits every non-root path in document order, handing the
// callback the path and the value it addresses.
func walkPaths(v value.Value, prefix []pathStep, visit func([]pathStep, value.Value) error) error {
	switch t := v.(type) {
	case []value.Value:
		for i, item := range t {
			path := appendStep(prefix, indexStep(i))
			if err := visit(path, item); err != nil {
				return err
			}
			if err := walkPaths(item, path, visit); err != nil {
				return err
			}
		}
	case *value.Object:
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			path := appendStep(prefix, keyStep(k))
			if err := visit(path, item); err != nil {
				return err
			}
			if err := walkPaths(item, path, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
