package eval

import (
	"math"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

func registerMath(register func(string, int, builtinFunc)) {
	unary := func(name string, fn func(float64) float64) {
		register(name, 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
			n, ok := input.(float64)
			if !ok {
				return diag.TypeErr("%s requires a number, got %s", name, value.TypeName(input))
			}
			return emit(fn(n))
		})
	}

	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("round", math.Round)
	unary("fabs", math.Abs)
	unary("sqrt", math.Sqrt)
	unary("log", math.Log)
	unary("log2", math.Log2)
	unary("log10", math.Log10)
	unary("exp", math.Exp)
	unary("exp2", math.Exp2)
	unary("exp10", func(f float64) float64 { return math.Pow(10, f) })
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("asin", math.Asin)
	unary("acos", math.Acos)
	unary("atan", math.Atan)
	unary("sinh", math.Sinh)
	unary("cosh", math.Cosh)
	unary("tanh", math.Tanh)
	unary("cbrt", math.Cbrt)
	unary("significand", func(f float64) float64 {
		frac, _ := math.Frexp(f)
		return frac * 2
	})

	binary := func(name string, fn func(a, b float64) float64) {
		register(name, 2, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
			a, err := e.argNumber(args[0], input, scope, name+" argument")
			if err != nil {
				return err
			}
			b, err := e.argNumber(args[1], input, scope, name+" argument")
			if err != nil {
				return err
			}
			return emit(fn(a, b))
		})
	}

	binary("pow", math.Pow)
	binary("atan2", math.Atan2)
	binary("fmin", math.Min)
	binary("fmax", math.Max)

	register("infinite", 0, func(e *Evaluator, _ []ast.Expr, _ value.Value, _ *env, emit emitFunc) error {
		return emit(math.Inf(1))
	})

	register("nan", 0, func(e *Evaluator, _ []ast.Expr, _ value.Value, _ *env, emit emitFunc) error {
		return emit(math.NaN())
	})

	numberCheck := func(name string, check func(float64) bool) {
		register(name, 0, func(e *Evaluator, _ []ast.Expr, input value.Value, _ *env, emit emitFunc) error {
			n, ok := input.(float64)
			if !ok {
				return emit(false)
			}
			return emit(check(n))
		})
	}
	numberCheck("isnan", math.IsNaN)
	numberCheck("isinfinite", func(f float64) bool { return math.IsInf(f, 0) })
	numberCheck("isnormal", func(f float64) bool {
		return f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) >= math.SmallestNonzeroFloat64*math.Pow(2, 52)
	})
}
