package eval

import (
	"regexp"
	"strings"
	"sync"

	"github.com/pedrosanzmtz/qf/internal/diag"
	"github.com/pedrosanzmtz/qf/internal/query/ast"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// Regex builtins run on Go's RE2 engine. Compiled patterns are cached
// per pattern+flags pair; an invalid pattern raises RegexError on first
// use and every use after.
var regexCache sync.Map // string -> *regexp.Regexp

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	cacheKey := flags + "\x00" + pattern
	if cached, ok := regexCache.Load(cacheKey); ok {
		return cached.(*regexp.Regexp), nil
	}

	src := pattern
	if strings.ContainsRune(flags, 'x') {
		// Extended mode: drop comments and insignificant whitespace.
		// A backslash-escaped whitespace character is kept.
		var b strings.Builder
		for _, line := range strings.Split(src, "\n") {
			line, _, _ = strings.Cut(line, "#")
			escaped := false
			for _, r := range line {
				if !escaped && strings.ContainsRune(" \t\r\f\v", r) {
					continue
				}
				escaped = !escaped && r == '\\'
				b.WriteRune(r)
			}
		}
		src = b.String()
	}

	var inline strings.Builder
	for _, f := range "ims" {
		if strings.ContainsRune(flags, f) {
			inline.WriteRune(f)
		}
	}
	if inline.Len() > 0 {
		src = "(?" + inline.String() + ")" + src
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, diag.New(diag.KindRegex, "invalid regex %q: %s", pattern, err)
	}
	regexCache.Store(cacheKey, re)
	return re, nil
}

func (e *Evaluator) regexArgs(args []ast.Expr, input value.Value, scope *env, name string) (subject string, re *regexp.Regexp, err error) {
	subject, ok := input.(string)
	if !ok {
		return "", nil, diag.TypeErr("%s requires a string input, got %s", name, value.TypeName(input))
	}
	pattern, err := e.argString(args[0], input, scope, name+" pattern")
	if err != nil {
		return "", nil, err
	}
	flags := ""
	if len(args) > 1 {
		flags, err = e.argString(args[1], input, scope, name+" flags")
		if err != nil {
			return "", nil, err
		}
	}
	re, err = compileRegex(pattern, flags)
	if err != nil {
		return "", nil, err
	}
	return subject, re, nil
}

func registerRegex(register func(string, int, builtinFunc)) {
	testFn := func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		s, re, err := e.regexArgs(args, input, scope, "test")
		if err != nil {
			return err
		}
		return emit(re.MatchString(s))
	}
	register("test", 1, testFn)
	register("test", 2, testFn)

	matchFn := func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		s, re, err := e.regexArgs(args, input, scope, "match")
		if err != nil {
			return err
		}
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			return nil
		}
		return emit(matchObject(re, s, loc))
	}
	register("match", 1, matchFn)
	register("match", 2, matchFn)

	captureFn := func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		s, re, err := e.regexArgs(args, input, scope, "capture")
		if err != nil {
			return err
		}
		m := re.FindStringSubmatch(s)
		if m == nil {
			return nil
		}
		out := value.NewObject()
		for i, name := range re.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			out.Set(name, m[i])
		}
		return emit(out)
	}
	register("capture", 1, captureFn)
	register("capture", 2, captureFn)

	register("scan", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		s, re, err := e.regexArgs(args, input, scope, "scan")
		if err != nil {
			return err
		}
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if len(m) == 1 {
				if err := emit(m[0]); err != nil {
					return err
				}
				continue
			}
			caps := make([]value.Value, len(m)-1)
			for i, c := range m[1:] {
				caps[i] = c
			}
			if err := emit(caps); err != nil {
				return err
			}
		}
		return nil
	})

	register("splits", 1, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		s, re, err := e.regexArgs(args, input, scope, "splits")
		if err != nil {
			return err
		}
		for _, part := range re.Split(s, -1) {
			if err := emit(part); err != nil {
				return err
			}
		}
		return nil
	})

	register("split", 2, func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
		s, re, err := e.regexArgs(args, input, scope, "split")
		if err != nil {
			return err
		}
		parts := re.Split(s, -1)
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return emit(out)
	})

	subFn := func(global bool) builtinFunc {
		return func(e *Evaluator, args []ast.Expr, input value.Value, scope *env, emit emitFunc) error {
			s, ok := input.(string)
			if !ok {
				return diag.TypeErr("sub requires a string input, got %s", value.TypeName(input))
			}
			pattern, err := e.argString(args[0], input, scope, "sub pattern")
			if err != nil {
				return err
			}
			replacement, err := e.argString(args[1], input, scope, "sub replacement")
			if err != nil {
				return err
			}
			flags := ""
			if len(args) > 2 {
				flags, err = e.argString(args[2], input, scope, "sub flags")
				if err != nil {
					return err
				}
			}
			re, err := compileRegex(pattern, flags)
			if err != nil {
				return err
			}
			if global {
				return emit(re.ReplaceAllString(s, replacement))
			}
			replaced := false
			out := re.ReplaceAllStringFunc(s, func(m string) string {
				if replaced {
					return m
				}
				replaced = true
				result := []byte{}
				result = re.ExpandString(result, replacement, s, re.FindStringSubmatchIndex(s))
				return string(result)
			})
			return emit(out)
		}
	}
	register("sub", 2, subFn(false))
	register("sub", 3, subFn(false))
	register("gsub", 2, subFn(true))
	register("gsub", 3, subFn(true))
}

// matchObject builds the jq match shape: offset, length, string, and a
// captures array. Offsets are byte positions.
func matchObject(re *regexp.Regexp, s string, loc []int) *value.Object {
	out := value.NewObjectCapacity(4)
	out.Set("offset", float64(loc[0]))
	out.Set("length", float64(loc[1]-loc[0]))
	out.Set("string", s[loc[0]:loc[1]])

	names := re.SubexpNames()
	captures := []value.Value{}
	for i := 1; i*2 < len(loc); i++ {
		entry := value.NewObjectCapacity(4)
		start, end := loc[i*2], loc[i*2+1]
		if start < 0 {
			entry.Set("offset", -1.0)
			entry.Set("length", 0.0)
			entry.Set("string", nil)
		} else {
			entry.Set("offset", float64(start))
			entry.Set("length", float64(end-start))
			entry.Set("string", s[start:end])
		}
		if names[i] != "" {
			entry.Set("name", names[i])
		} else {
			entry.Set("name", nil)
		}
		captures = append(captures, entry)
	}
	out.Set("captures", captures)
	return out
}
