// Package execute wires the record sources, the query engine, and the
// serializers into the qf run loop.
package execute

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/pedrosanzmtz/qf/internal/config"
	"github.com/pedrosanzmtz/qf/internal/exit"
	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/jsonpath"
	"github.com/pedrosanzmtz/qf/internal/query"
	"github.com/pedrosanzmtz/qf/internal/query/eval"
	"github.com/pedrosanzmtz/qf/internal/stream"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// engine abstracts the two query languages: the jq-style engine and
// the JSONPath selector mode.
type engine interface {
	SetInputs(src eval.Source)
	Each(input value.Value, emit func(value.Value) error) error
}

// selectorEngine adapts the JSONPath selector; it has no notion of
// input/inputs, so the record source is ignored.
type selectorEngine struct {
	sel *jsonpath.Selector
}

func (s *selectorEngine) SetInputs(eval.Source) {}

func (s *selectorEngine) Each(input value.Value, emit func(value.Value) error) error {
	results, err := s.sel.Run(input)
	if err != nil {
		return err
	}
	for _, v := range results {
		if err := emit(v); err != nil {
			return err
		}
	}
	return nil
}

// Runner executes one configured invocation.
type Runner struct {
	cfg    *config.Config
	engine engine
	stdout io.Writer
	stderr io.Writer
}

// New compiles the query and prepares a runner.
func New(cfg *config.Config) (*Runner, *exit.Result) {
	r := &Runner{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}

	if cfg.JSONPath {
		sel, err := jsonpath.Compile(cfg.Query)
		if err != nil {
			return nil, exit.Errorf("qf: %v\n", err)
		}
		r.engine = &selectorEngine{sel: sel}
		return r, nil
	}

	q, err := query.Compile(cfg.Query)
	if err != nil {
		return nil, exit.Errorf("qf: %v\n", err)
	}
	for name, v := range cfg.Args {
		q.BindVar(name, v)
	}
	r.engine = q
	return r, nil
}

// Run executes the invocation, returning the process exit code.
func (r *Runner) Run(ctx context.Context) int {
	colorize := r.shouldColorize()
	color.NoColor = !colorize

	if err := r.run(ctx, colorize); err != nil {
		fmt.Fprintf(r.stderr, "qf: %v\n", err)
		return exit.CodeError
	}
	return exit.CodeOK
}

func (r *Runner) run(ctx context.Context, colorize bool) error {
	if r.cfg.NullInput {
		w := r.newWriter(r.stdout, r.outputFormat(format.JSON), colorize)
		return r.evalRecords(ctx, stream.Null(), w)
	}

	if len(r.cfg.Files) == 0 {
		return r.runInput(ctx, input{reader: os.Stdin, name: "-"}, colorize)
	}

	if r.cfg.Slurp && len(r.cfg.Files) > 1 {
		return r.runMultiFileSlurp(ctx, colorize)
	}

	for _, path := range r.cfg.Files {
		in, err := openFile(path)
		if err != nil {
			return err
		}
		err = r.runInput(ctx, in, colorize)
		in.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// runInput processes one input stream end to end.
func (r *Runner) runInput(ctx context.Context, in input, colorize bool) error {
	if r.cfg.Streaming() {
		return r.runStreaming(ctx, in, colorize)
	}
	return r.runBatch(ctx, in, colorize)
}

func (r *Runner) runStreaming(ctx context.Context, in input, colorize bool) error {
	inFmt := format.JSON
	if r.cfg.InputFormat != nil {
		inFmt = *r.cfg.InputFormat
	} else if in.name != "-" {
		if f, err := format.FromPath(in.name); err == nil {
			inFmt = f
		}
	}

	var src stream.Source
	if r.cfg.JSONL {
		src = stream.NDJSON(in.reader)
	} else {
		var err error
		src, err = streamSource(in.reader, inFmt)
		if err != nil {
			return err
		}
	}
	src = stream.Throttle(ctx, src, r.cfg.Rate)

	// Streaming defaults to JSON output: individual records rarely
	// serialize back to CSV or XML.
	w := r.newWriter(r.stdout, r.outputFormat(format.JSON), colorize)
	return r.evalRecords(ctx, src, w)
}

func (r *Runner) runBatch(ctx context.Context, in input, colorize bool) error {
	content, err := readAll(in)
	if err != nil {
		return err
	}
	inFmt := r.resolveFormat(in.name, content)

	records, err := batchRecords(content, inFmt, r.cfg)
	if err != nil {
		return err
	}

	outFmt := r.outputFormat(inFmt)
	if r.cfg.InPlace {
		return r.runInPlace(ctx, in.name, records, outFmt)
	}
	w := r.newWriter(r.stdout, outFmt, colorize)
	return r.evalRecords(ctx, stream.Values(records), w)
}

func (r *Runner) runMultiFileSlurp(ctx context.Context, colorize bool) error {
	slurped := make([]value.Value, 0, len(r.cfg.Files))
	var outFmt *format.Format
	for _, path := range r.cfg.Files {
		in, err := openFile(path)
		if err != nil {
			return err
		}
		content, err := readAll(in)
		in.Close()
		if err != nil {
			return err
		}
		inFmt := r.resolveFormat(path, content)
		if outFmt == nil {
			outFmt = &inFmt
		}
		doc, err := parseWhole(content, inFmt, r.cfg.RawInput)
		if err != nil {
			return err
		}
		slurped = append(slurped, doc)
	}

	w := r.newWriter(r.stdout, r.outputFormat(*outFmt), colorize)
	return r.evalRecords(ctx, stream.Values([]value.Value{slurped}), w)
}

// evalRecords is the dispatcher: one evaluation per record, outputs
// flushed before the next record is pulled. The engine shares the
// source cursor so input/inputs consume the remaining records.
func (r *Runner) evalRecords(ctx context.Context, src stream.Source, w *resultWriter) error {
	r.engine.SetInputs(src)
	onSkip := func(err error) {
		fmt.Fprintf(r.stderr, "qf: skipping record: %v\n", err)
	}
	err := stream.Run(src, func(record value.Value) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return r.engine.Each(record, w.Write)
	}, r.cfg.SkipBadRecords, onSkip)
	if err != nil {
		return err
	}
	return w.Flush()
}

func (r *Runner) outputFormat(fallback format.Format) format.Format {
	if r.cfg.OutputFormat != nil {
		return *r.cfg.OutputFormat
	}
	return fallback
}

func (r *Runner) resolveFormat(name, content string) format.Format {
	if r.cfg.InputFormat != nil {
		return *r.cfg.InputFormat
	}
	if name != "-" {
		if f, err := format.FromPath(name); err == nil {
			return f
		}
	}
	return format.Detect(content)
}

func (r *Runner) shouldColorize() bool {
	if r.cfg.NoColor || r.cfg.InPlace {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	switch r.cfg.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}
