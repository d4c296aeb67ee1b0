package eval

import (
	"errors"
	"io"
	"testing"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/parse"
	"github.com/pedrosanzmtz/qf/internal/value"
)

func run(t *testing.T, input string, query string) []value.Value {
	t.Helper()
	out, err := tryRun(input, query)
	if err != nil {
		t.Fatalf("eval(%q) error = %v", query, err)
	}
	return out
}

func tryRun(input, query string) ([]value.Value, error) {
	expr, err := parse.Parse(query)
	if err != nil {
		return nil, err
	}
	in, err := value.ParseJSON(input)
	if err != nil {
		return nil, err
	}
	return New().Run(expr, in)
}

// runJSON compares outputs by compact JSON, which keeps the fixtures
// readable and checks key order at the same time.
func runJSON(t *testing.T, input, query string) []string {
	t.Helper()
	out := run(t, input, query)
	rendered := make([]string, len(out))
	for i, v := range out {
		rendered[i] = value.ToJSON(v)
	}
	return rendered
}

func expectJSON(t *testing.T, input, query string, want ...string) {
	t.Helper()
	got := runJSON(t, input, query)
	if len(got) != len(want) {
		t.Fatalf("eval(%q) = %v, want %v", query, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("eval(%q) = %v, want %v", query, got, want)
		}
	}
}

func expectError(t *testing.T, input, query string, kind diag.Kind) {
	t.Helper()
	_, err := tryRun(input, query)
	if err == nil {
		t.Fatalf("eval(%q) expected error", query)
	}
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("eval(%q) error = %v, want diagnostic", query, err)
	}
	if de.Kind != kind {
		t.Fatalf("eval(%q) error kind = %s, want %s", query, de.Kind, kind)
	}
}

func TestIdentityAndFields(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":1}`, ".", `{"a":1}`)
	expectJSON(t, `{"a":{"b":2}}`, ".a.b", `2`)
	expectJSON(t, `{"a":1}`, ".missing", `null`)
	expectJSON(t, `null`, ".a", `null`)
	expectError(t, `"text"`, ".a", diag.KindType)
	expectJSON(t, `"text"`, ".a?") // nothing
}

func TestIndexSliceIterate(t *testing.T) {
	t.Parallel()

	expectJSON(t, `[10,20,30]`, ".[1]", `20`)
	expectJSON(t, `[10,20,30]`, ".[-1]", `30`)
	expectJSON(t, `[10,20,30]`, ".[9]", `null`)
	expectJSON(t, `[1,2,3,4,5]`, ".[2:4]", `[3,4]`)
	expectJSON(t, `[1,2,3,4,5]`, ".[-2:]", `[4,5]`)
	expectJSON(t, `"hello"`, ".[1:3]", `"el"`)
	expectJSON(t, `null`, ".[1:3]", `null`)
	expectJSON(t, `[1,2,3]`, ".[]", `1`, `2`, `3`)
	expectJSON(t, `{"a":1,"b":2}`, ".[]", `1`, `2`)
	expectError(t, `null`, ".[]", diag.KindType)
	expectJSON(t, `null`, ".[]?")
	expectError(t, `5`, ".[]", diag.KindType)
}

func TestPipeAndComma(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":{"b":3}}`, ".a | .b", `3`)
	expectJSON(t, `{"a":1,"b":2}`, ".a, .b", `1`, `2`)

	// comma distributes over pipe: A | (B, C) == (A|B), (A|C)
	left := runJSON(t, `{"x":{"a":1,"b":2}}`, ".x | (.a, .b)")
	right := runJSON(t, `{"x":{"a":1,"b":2}}`, "(.x | .a), (.x | .b)")
	if len(left) != len(right) || left[0] != right[0] || left[1] != right[1] {
		t.Errorf("distributivity broken: %v vs %v", left, right)
	}
}

func TestPipeAssociativity(t *testing.T) {
	t.Parallel()

	input := `{"a":{"b":{"c":42}}}`
	one := runJSON(t, input, ".a | (.b | .c)")
	two := runJSON(t, input, "(.a | .b) | .c")
	if one[0] != two[0] || one[0] != "42" {
		t.Errorf("associativity broken: %v vs %v", one, two)
	}
}

func TestRecurse(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":[1]}`, "..", `{"a":[1]}`, `[1]`, `1`)
}

func TestArithmetic(t *testing.T) {
	t.Parallel()

	expectJSON(t, `null`, "1 + 2", `3`)
	expectJSON(t, `null`, `"a" + "b"`, `"ab"`)
	expectJSON(t, `null`, "[1] + [2]", `[1,2]`)
	expectJSON(t, `null`, `{"a":1} + {"b":2}`, `{"a":1,"b":2}`)
	expectJSON(t, `null`, `{"a":1} + {"a":2}`, `{"a":2}`)
	expectJSON(t, `null`, "null + 5", `5`)
	expectJSON(t, `null`, "10 - 4", `6`)
	expectJSON(t, `null`, "[1,2,3,1] - [1]", `[2,3]`)
	expectJSON(t, `null`, "6 * 7", `42`)
	expectJSON(t, `null`, `"ab" * 3`, `"ababab"`)
	expectJSON(t, `null`, `{"a":{"x":1}} * {"a":{"y":2}}`, `{"a":{"x":1,"y":2}}`)
	expectJSON(t, `null`, "10 / 4", `2.5`)
	expectJSON(t, `null`, `"a,b,c" / ","`, `["a","b","c"]`)
	expectJSON(t, `null`, "7 % 3", `1`)
	expectError(t, `null`, "1 / 0", diag.KindDivideByZero)
	expectError(t, `null`, "1 % 0", diag.KindDivideByZero)
	expectError(t, `null`, `1 + "a"`, diag.KindType)
	expectError(t, `null`, `"ab" * -1`, diag.KindType)
	expectJSON(t, `null`, "-(3 + 2)", `-5`)
}

func TestBinOpCartesian(t *testing.T) {
	t.Parallel()

	// rightmost varies fastest
	expectJSON(t, `null`, "(1,2) + (10,20)", `11`, `21`, `12`, `22`)
}

func TestComparisonAndLogic(t *testing.T) {
	t.Parallel()

	expectJSON(t, `null`, "1 < 2", `true`)
	expectJSON(t, `null`, `1 == "1"`, `false`)
	expectJSON(t, `null`, "null == null", `true`)
	expectJSON(t, `null`, `null < false`, `true`)
	expectJSON(t, `null`, `"a" < [1]`, `true`)
	expectJSON(t, `null`, "true and false", `false`)
	expectJSON(t, `null`, "true or false", `true`)
	expectJSON(t, `null`, "true | not", `false`)
	expectJSON(t, `0`, ". | not", `false`) // zero is truthy
}

func TestAlternative(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":null}`, ".a // 42", `42`)
	expectJSON(t, `{"a":1}`, ".a // 42", `1`)
	expectJSON(t, `{"a":false}`, ".a // 42", `42`)
	// errors on the left count as no values
	expectJSON(t, `5`, `(.a) // "fallback"`, `"fallback"`)
	// only truthy values pass
	expectJSON(t, `null`, "(null, 1, false, 2) // 99", `1`, `2`)
}

func TestTryCatch(t *testing.T) {
	t.Parallel()

	expectJSON(t, `"hello"`, `try .foo catch "err"`, `"err"`)
	expectJSON(t, `"hello"`, "try .foo") // swallowed
	expectJSON(t, `null`, `try error("boom") catch .`, `"boom"`)
	expectJSON(t, `{"a":1}`, "try .a catch .", `1`)
}

func TestErrorSuppressionScope(t *testing.T) {
	t.Parallel()

	// ? and try protect only their own expression: an error raised
	// further down the pipe must still propagate.
	if _, err := tryRun(`[1]`, `.[]? | error("boom")`); err == nil {
		t.Error("downstream error swallowed by .[]?")
	}
	if _, err := tryRun(`{"a":1}`, `(.a?) | error("boom")`); err == nil {
		t.Error("downstream error swallowed by ?")
	}
	if _, err := tryRun(`{"a":1}`, `try .a | error("boom")`); err == nil {
		t.Error("downstream error swallowed by try")
	}
	// the alternative still falls back when its own left side errors
	expectJSON(t, `5`, `(.a // 1) | . + 1`, `2`)
}

func TestStringInterpolation(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"name":"world"}`, `"Hello \(.name)"`, `"Hello world"`)
	expectJSON(t, `{"n":3}`, `"\(.n) + \(.n) = \(.n + .n)"`, `"3 + 3 = 6"`)
	// generator interpolation is cartesian, rightmost fastest
	expectJSON(t, `null`, `"\(1,2)-\(3,4)"`, `"1-3"`, `"1-4"`, `"2-3"`, `"2-4"`)
}

func TestConstruction(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":1,"b":2}`, "[.a, .b]", `[1,2]`)
	expectJSON(t, `null`, "[]", `[]`)
	expectJSON(t, `[1,2,3]`, "[.[] | . * 2]", `[2,4,6]`)
	expectJSON(t, `{"x":1,"y":2}`, "{a: .x, b: .y}", `{"a":1,"b":2}`)
	expectJSON(t, `{"a":7}`, "{a}", `{"a":7}`)
	expectJSON(t, `{"k":"key"}`, "{(.k): 1}", `{"key":1}`)
	expectJSON(t, `null`, `3 as $v | {$v}`, `{"v":3}`)
	// cartesian object construction
	expectJSON(t, `null`, "{a: (1,2), b: 3}", `{"a":1,"b":3}`, `{"a":2,"b":3}`)
	expectError(t, `null`, "{(1): 2}", diag.KindType)
}

func TestObjectKeyOrderPreserved(t *testing.T) {
	t.Parallel()

	expectJSON(t, `null`, `{z: 1, a: 2, m: 3}`, `{"z":1,"a":2,"m":3}`)
	expectJSON(t, `{"z":1,"a":2}`, "keys_unsorted", `["z","a"]`)
	expectJSON(t, `{"z":1,"a":2}`, "keys", `["a","z"]`)
}

func TestIfThenElse(t *testing.T) {
	t.Parallel()

	expectJSON(t, `5`, `if . > 3 then "big" else "small" end`, `"big"`)
	expectJSON(t, `1`, `if . > 3 then "big" else "small" end`, `"small"`)
	expectJSON(t, `2`, `if . == 1 then "one" elif . == 2 then "two" else "many" end`, `"two"`)
	expectJSON(t, `5`, "if false then 1 end", `5`) // missing else is identity
	// generator condition selects per value
	expectJSON(t, `null`, "if (true, false) then 1 else 2 end", `1`, `2`)
}

func TestVariablesAndDestructuring(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":1}`, ".a as $x | $x + $x", `2`)
	expectJSON(t, `[1,2]`, ". as [$a, $b] | $a + $b", `3`)
	expectJSON(t, `[1]`, ". as [$a, $b] | $b", `null`)
	expectJSON(t, `{"a":1,"b":2}`, `. as {a: $x, b: $y} | $x + $y`, `3`)
	expectError(t, `5`, ". as [$a] | $a", diag.KindType)
	expectError(t, `null`, "$nope", diag.KindType)
}

func TestReduce(t *testing.T) {
	t.Parallel()

	expectJSON(t, `[1,2,3,4,5]`, "reduce .[] as $x (0; . + $x)", `15`)
	expectJSON(t, `[]`, "reduce .[] as $x (0; . + $x)", `0`)
	expectJSON(t, `["a","b"]`, `reduce .[] as $s (""; . + $s)`, `"ab"`)
}

func TestForeach(t *testing.T) {
	t.Parallel()

	expectJSON(t, `[1,2,3]`, "foreach .[] as $x (0; . + $x)", `1`, `3`, `6`)
	expectJSON(t, `[1,2,3]`, "foreach .[] as $x (0; . + $x; . * 10)", `10`, `30`, `60`)
}

func TestFunctionDefinitions(t *testing.T) {
	t.Parallel()

	expectJSON(t, `null`, "def double: . * 2; 5 | double", `10`)
	expectJSON(t, `5`, "def fact: if . <= 1 then 1 else . * ((.-1) | fact) end; fact", `120`)
	expectJSON(t, `null`, "def f(a; b): a + b; f(1; 2)", `3`)
	// arity overloading
	expectJSON(t, `null`, "def f: 1; def f(x): x + 10; f, f(5)", `1`, `15`)
	// call-by-name: the argument is a filter, re-evaluated per reference
	expectJSON(t, `null`, "def twice(f): [f, f]; twice(1, 2)", `[1,2,1,2]`)
	// closures capture the definition scope
	expectJSON(t, `null`, "1 as $x | def get: $x; 2 as $x | get", `1`)
}

func TestLabelBreak(t *testing.T) {
	t.Parallel()

	expectJSON(t, `null`, "label $out | (1, 2, break $out, 3)", `1`, `2`)
	// break is not catchable by try
	expectJSON(t, `null`, "label $out | (1, (try (break $out) catch "+`"caught"`+"), 3)", `1`)
	// break without a matching label is an error at the top level
	if _, err := tryRun(`null`, "break $nope"); err == nil {
		t.Error("unbound break must error")
	}
}

func TestSpecScenarios(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":{"b":[1,2,3]}}`, ".a.b[1]", `2`)
	expectJSON(t, `[1,2,3,4,5]`, "[.[] | select(. > 3)]", `[4,5]`)
	expectJSON(t, `{"name":"world"}`, `"Hello \(.name)"`, `"Hello world"`)
	expectJSON(t, `[{"a":1},{"b":2}]`, ".[0] * .[1]", `{"a":1,"b":2}`)
	expectJSON(t, `[1,2,3,4,5]`, "reduce .[] as $x (0; . + $x)", `15`)
	expectJSON(t, `5`, "def fact: if . <= 1 then 1 else . * ((.-1) | fact) end; fact", `120`)
	expectJSON(t, `{"a":1,"b":2}`, "to_entries | map(.value += 10) | from_entries", `{"a":11,"b":12}`)
}

func TestAssignments(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":1}`, ".a = 5", `{"a":5}`)
	expectJSON(t, `{"a":1}`, ".b = 2", `{"a":1,"b":2}`)
	expectJSON(t, `{"a":1}`, ".a |= . + 10", `{"a":11}`)
	expectJSON(t, `{"a":1,"b":2}`, ".[] |= . * 2", `{"a":2,"b":4}`)
	expectJSON(t, `{"a":1}`, ".a += 4", `{"a":5}`)
	expectJSON(t, `{"a":8}`, ".a -= 3", `{"a":5}`)
	expectJSON(t, `{"a":4}`, ".a *= 2", `{"a":8}`)
	expectJSON(t, `{"a":8}`, ".a /= 2", `{"a":4}`)
	expectJSON(t, `{"a":7}`, ".a %= 4", `{"a":3}`)
	expectJSON(t, `{"a":null}`, ".a //= 9", `{"a":9}`)
	expectJSON(t, `{"a":1}`, ".a //= 9", `{"a":1}`)
	// one output per right-hand value
	expectJSON(t, `{"a":0}`, ".a = (1, 2)", `{"a":1}`, `{"a":2}`)
	// assignment through missing structure creates it
	expectJSON(t, `null`, ".a.b = 1", `{"a":{"b":1}}`)
	expectJSON(t, `{}`, ".xs[2] = 9", `{"xs":[null,null,9]}`)
	// update with empty deletes the path
	expectJSON(t, `{"a":1,"b":2}`, ".a |= empty", `{"b":2}`)
	// type mismatch raises
	expectError(t, `[1]`, ".a = 1", diag.KindType)
}

func TestAssignLawUpdate(t *testing.T) {
	t.Parallel()

	// after P |= f, getpath(p) equals f applied to the old value
	expectJSON(t, `{"xs":[1,2,3]}`, ".xs[] |= . + 1 | .xs", `[2,3,4]`)
}

func TestDelAndPaths(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":1,"b":2}`, "del(.a)", `{"b":2}`)
	expectJSON(t, `[1,2,3,4]`, "del(.[1], .[3])", `[1,3]`)
	expectJSON(t, `{"a":{"b":1,"c":2}}`, "del(.a.b)", `{"a":{"c":2}}`)
	expectJSON(t, `{"a":{"b":[1,2,3]}}`, "path(.a.b[1])", `["a","b",1]`)
	expectJSON(t, `[[1]]`, "paths", `[0]`, `[0,0]`)
	expectJSON(t, `{"a":[1]}`, "leaf_paths", `["a",0]`)
	expectJSON(t, `{"a":{"b":5}}`, `getpath(["a","b"])`, `5`)
	expectJSON(t, `{"a":{"b":5}}`, `getpath(["a","x"])`, `null`)
	expectJSON(t, `{}`, `setpath(["a",1]; 9)`, `{"a":[null,9]}`)
	expectJSON(t, `{"a":1,"b":2}`, `delpaths([["a"]])`, `{"b":2}`)
	// del through negative index
	expectJSON(t, `[1,2,3]`, "del(.[-1])", `[1,2]`)
}

func TestPathLaw(t *testing.T) {
	t.Parallel()

	// getpath(path(P)) == P for every path expression output
	input := `{"a":{"b":[10,20]}}`
	viaPath := runJSON(t, input, "[path(.a.b[]) as $p | getpath($p)]")
	direct := runJSON(t, input, "[.a.b[]]")
	if viaPath[0] != direct[0] {
		t.Errorf("path law broken: %v vs %v", viaPath, direct)
	}
}

func TestDelReversesSet(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":1}`, `setpath(["b"]; 2) | delpaths([["b"]])`, `{"a":1}`)
}

func TestCoreBuiltins(t *testing.T) {
	t.Parallel()

	expectJSON(t, `"hello"`, "length", `5`)
	expectJSON(t, `[1,2,3]`, "length", `3`)
	expectJSON(t, `{"a":1}`, "length", `1`)
	expectJSON(t, `null`, "length", `0`)
	expectJSON(t, `-5`, "length", `5`)
	expectJSON(t, `"héllo"`, "length", `5`)
	expectJSON(t, `"héllo"`, "utf8bytelength", `6`)
	expectJSON(t, `[1,"a",null]`, "[.[] | type]", `["number","string","null"]`)
	expectJSON(t, `{"a":1}`, `has("a")`, `true`)
	expectJSON(t, `{"a":1}`, `has("b")`, `false`)
	expectJSON(t, `[1,2]`, "has(1)", `true`)
	expectJSON(t, `"a"`, `. as $k | {"a":1} | has($k)`, `true`)
	expectJSON(t, `"b"`, `in({"a":1})`, `false`)
	expectJSON(t, `null`, "empty")
	expectError(t, `"boom"`, "error", diag.KindUser)
	expectError(t, `null`, `error("custom")`, diag.KindUser)
}

func TestCollectionBuiltins(t *testing.T) {
	t.Parallel()

	expectJSON(t, `[3,1,2]`, "sort", `[1,2,3]`)
	expectJSON(t, `[{"a":2},{"a":1}]`, "sort_by(.a)", `[{"a":1},{"a":2}]`)
	expectJSON(t, `[{"a":1},{"a":2},{"a":1}]`, "group_by(.a)", `[[{"a":1},{"a":1}],[{"a":2}]]`)
	expectJSON(t, `[1,2,1,3,2]`, "unique", `[1,2,3]`)
	expectJSON(t, `[{"a":1,"v":1},{"a":1,"v":2}]`, "unique_by(.a)", `[{"a":1,"v":1}]`)
	expectJSON(t, `[1,2,3]`, "reverse", `[3,2,1]`)
	expectJSON(t, `"abc"`, "reverse", `"cba"`)
	expectJSON(t, `[3,1,2]`, "min", `1`)
	expectJSON(t, `[3,1,2]`, "max", `3`)
	expectJSON(t, `[]`, "min", `null`)
	expectJSON(t, `[{"a":2},{"a":1}]`, "min_by(.a)", `{"a":1}`)
	expectJSON(t, `[{"a":2},{"a":1}]`, "max_by(.a)", `{"a":2}`)
	expectJSON(t, `[[1,2],[3,[4,5]]]`, "flatten", `[1,2,3,4,5]`)
	expectJSON(t, `[[1,[2]]]`, "flatten(1)", `[1,[2]]`)
	expectJSON(t, `[[1,2],[3,4]]`, "transpose", `[[1,3],[2,4]]`)
	expectJSON(t, `[1,2,3]`, "add", `6`)
	expectJSON(t, `["a","b"]`, "add", `"ab"`)
	expectJSON(t, `[]`, "add", `null`)
	expectJSON(t, `[true,false]`, "any", `true`)
	expectJSON(t, `[true,false]`, "all", `false`)
	expectJSON(t, `[1,2,3]`, "any(. > 2)", `true`)
	expectJSON(t, `[1,2,3]`, "all(. > 0)", `true`)
	expectJSON(t, `null`, "[range(5)]", `[0,1,2,3,4]`)
	expectJSON(t, `null`, "[range(2; 5)]", `[2,3,4]`)
	expectJSON(t, `null`, "[range(0; 10; 3)]", `[0,3,6,9]`)
	expectJSON(t, `null`, "[range(3; 0; -1)]", `[3,2,1]`)
	expectJSON(t, `{"a":1,"b":2}`, "to_entries", `[{"key":"a","value":1},{"key":"b","value":2}]`)
	expectJSON(t, `[{"key":"a","value":1}]`, "from_entries", `{"a":1}`)
	expectJSON(t, `[{"name":"a","value":1}]`, "from_entries", `{"a":1}`)
	expectJSON(t, `{"a":1}`, "with_entries(.value += 1)", `{"a":2}`)
	expectJSON(t, `{"a":1,"b":2}`, "map_values(. * 10)", `{"a":10,"b":20}`)
	expectJSON(t, `{"a":1,"b":2}`, "map_values(select(. > 1))", `{"b":2}`)
}

func TestSearchBuiltins(t *testing.T) {
	t.Parallel()

	expectJSON(t, `"foobar"`, `contains("foo")`, `true`)
	expectJSON(t, `[1,2,3]`, "contains([2])", `true`)
	expectJSON(t, `"foo"`, `inside("foobar")`, `true`)
	expectJSON(t, `"abcabc"`, `indices("b")`, `[1,4]`)
	expectJSON(t, `[1,2,1]`, "indices(1)", `[0,2]`)
	expectJSON(t, `[0,1,2,1,3,1,4]`, "indices([1,2])", `[1]`)
	expectJSON(t, `"abcabc"`, `index("b")`, `1`)
	expectJSON(t, `"abcabc"`, `rindex("b")`, `4`)
	expectJSON(t, `"abc"`, `index("z")`, `null`)
}

func TestStringBuiltins(t *testing.T) {
	t.Parallel()

	expectJSON(t, `42`, "tostring", `"42"`)
	expectJSON(t, `"x"`, "tostring", `"x"`)
	expectJSON(t, `[1]`, "tostring", `"[1]"`)
	expectJSON(t, `"42"`, "tonumber", `42`)
	expectJSON(t, `3.5`, "tonumber", `3.5`)
	expectError(t, `"abc"`, "tonumber", diag.KindType)
	expectJSON(t, `"Hello"`, "ascii_downcase", `"hello"`)
	expectJSON(t, `"Hello"`, "ascii_upcase", `"HELLO"`)
	expectJSON(t, `"foobar"`, `ltrimstr("foo")`, `"bar"`)
	expectJSON(t, `"foobar"`, `rtrimstr("bar")`, `"foo"`)
	expectJSON(t, `"  x  "`, "trim", `"x"`)
	expectJSON(t, `"a,b,c"`, `split(",")`, `["a","b","c"]`)
	expectJSON(t, `["a","b"]`, `join("-")`, `"a-b"`)
	expectJSON(t, `[1,null,"a"]`, `join(",")`, `"1,,a"`)
	expectJSON(t, `"foobar"`, `startswith("foo")`, `true`)
	expectJSON(t, `"foobar"`, `endswith("bar")`, `true`)
	expectJSON(t, `"abc"`, "explode", `[97,98,99]`)
	expectJSON(t, `[97,98,99]`, "implode", `"abc"`)
	expectJSON(t, `65`, "ascii", `"A"`)
	expectJSON(t, `"a,b,c"`, `split(",") | join("-")`, `"a-b-c"`)
}

func TestRegexBuiltins(t *testing.T) {
	t.Parallel()

	expectJSON(t, `"hello123"`, `test("\\d+")`, `true`)
	expectJSON(t, `"hello"`, `test("\\d+")`, `false`)
	expectJSON(t, `"HELLO"`, `test("hello"; "i")`, `true`)
	expectJSON(t, `"abc123"`, `match("\\d+") | .string`, `"123"`)
	expectJSON(t, `"abc123"`, `match("\\d+") | .offset`, `3`)
	expectJSON(t, `"ab12"`, `match("(?<letters>[a-z]+)") | .captures[0].name`, `"letters"`)
	expectJSON(t, `"ab12"`, `capture("(?<letters>[a-z]+)(?<digits>\\d+)")`, `{"letters":"ab","digits":"12"}`)
	expectJSON(t, `"a1b2"`, `[scan("\\d")]`, `["1","2"]`)
	expectJSON(t, `"a1b2"`, `sub("\\d"; "x")`, `"axb2"`)
	expectJSON(t, `"a1b2"`, `gsub("\\d"; "x")`, `"axbx"`)
	expectJSON(t, `"a1b2c"`, `[splits("\\d")]`, `["a","b","c"]`)
	expectJSON(t, `"a1b2c"`, `split("\\d"; "")`, `["a","b","c"]`)
	expectError(t, `"x"`, `test("[unclosed")`, diag.KindRegex)
}

func TestIterationBuiltins(t *testing.T) {
	t.Parallel()

	expectJSON(t, `[1,2,3]`, "first", `1`)
	expectJSON(t, `[1,2,3]`, "last", `3`)
	expectJSON(t, `null`, "first(1, 2, 3)", `1`)
	expectJSON(t, `null`, "last(1, 2, 3)", `3`)
	expectJSON(t, `[10,20,30]`, "nth(1)", `20`)
	expectJSON(t, `null`, "nth(1; 5, 6, 7)", `6`)
	expectJSON(t, `null`, "[limit(2; 1, 2, 3, 4)]", `[1,2]`)
	expectJSON(t, `null`, "[limit(0; 1, 2)]", `[]`)
	expectJSON(t, `1`, "until(. > 100; . * 2)", `128`)
	expectJSON(t, `1`, "[while(. < 10; . * 2)]", `[1,2,4,8]`)
	expectJSON(t, `1`, "[limit(3; repeat(. * 2))]", `[1,2,4]`)
}

func TestRecurseFilter(t *testing.T) {
	t.Parallel()

	expectJSON(t, `[[1],[2]]`, "[recurse(.[]?)]", `[[[1],[2]],[1],1,[2],2]`)
	expectJSON(t, `2`, "[recurse(if . < 10 then . * 2 else empty end)]", `[2,4,8,16]`)
}

func TestMathBuiltins(t *testing.T) {
	t.Parallel()

	expectJSON(t, `3.7`, "floor", `3`)
	expectJSON(t, `3.2`, "ceil", `4`)
	expectJSON(t, `3.5`, "round", `4`)
	expectJSON(t, `-2.5`, "fabs", `2.5`)
	expectJSON(t, `9`, "sqrt", `3`)
	expectJSON(t, `null`, "pow(2; 10)", `1024`)
	expectJSON(t, `null`, "infinite > 1e308", `true`)
	expectJSON(t, `null`, "nan | isnan", `true`)
	expectJSON(t, `null`, "infinite | isinfinite", `true`)
	expectJSON(t, `1`, "isnormal", `true`)
	expectJSON(t, `null`, "nan == nan", `false`)
	expectJSON(t, `null`, "[nan, 1] | sort | .[1]", `1`)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	expectJSON(t, `{"a":1}`, "tojson", `"{\"a\":1}"`)
	expectJSON(t, `{"a":[1,true,null]}`, "tojson | fromjson", `{"a":[1,true,null]}`)
	expectJSON(t, `"[1,2]"`, "fromjson", `[1,2]`)
	expectError(t, `"{bad"`, "fromjson", diag.KindUser)
}

func TestFormatStrings(t *testing.T) {
	t.Parallel()

	expectJSON(t, `"hello"`, "@base64", `"aGVsbG8="`)
	expectJSON(t, `"aGVsbG8="`, "@base64d", `"hello"`)
	expectJSON(t, `"a b&c"`, "@uri", `"a%20b%26c"`)
	expectJSON(t, `"<b>"`, "@html", `"&lt;b&gt;"`)
	expectJSON(t, `["a","b \"q\"",1,null]`, "@csv", `"\"a\",\"b \"\"q\"\"\",1,"`)
	expectJSON(t, `["a\tb","c"]`, "@tsv", `"a\\tb\tc"`)
	expectJSON(t, `{"a":1}`, "@json", `"{\"a\":1}"`)
	expectJSON(t, `5`, "@text", `"5"`)
	// format strings apply the formatter per interpolated value only
	expectJSON(t, `["x","y"]`, `@csv "row: \(.)"`, `"row: \"x\",\"y\""`)
	expectError(t, `null`, "@nope", diag.KindUser)
}

func TestEnvBuiltin(t *testing.T) {
	t.Setenv("QF_TEST_ENV", "marker")

	out := run(t, `null`, "env.QF_TEST_ENV")
	if len(out) != 1 || out[0] != "marker" {
		t.Errorf("env lookup = %v", out)
	}

	out = run(t, `null`, "$ENV.QF_TEST_ENV")
	if len(out) != 1 || out[0] != "marker" {
		t.Errorf("$ENV lookup = %v", out)
	}
}

func TestInputBuiltins(t *testing.T) {
	t.Parallel()

	expr, err := parse.Parse("[., input, inputs]")
	if err != nil {
		t.Fatal(err)
	}
	e := New()
	e.SetInputs(&sliceSource{values: []value.Value{2.0, 3.0, 4.0}})
	out, err := e.Run(expr, 1.0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := value.ToJSON(out[0]); got != "[1,2,3,4]" {
		t.Errorf("inputs = %s, want [1,2,3,4]", got)
	}

	// exhausted input raises a catchable error
	expr, err = parse.Parse(`try input catch "done"`)
	if err != nil {
		t.Fatal(err)
	}
	e = New()
	e.SetInputs(&sliceSource{})
	out, err = e.Run(expr, nil)
	if err != nil || len(out) != 1 || out[0] != "done" {
		t.Errorf("exhausted input = %v, %v", out, err)
	}
}

type sliceSource struct {
	values []value.Value
	pos    int
}

func (s *sliceSource) Next() (value.Value, error) {
	if s.pos >= len(s.values) {
		return nil, io.EOF
	}
	v := s.values[s.pos]
	s.pos++
	return v, nil
}
