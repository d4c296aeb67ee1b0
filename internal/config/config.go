// Package config parses the qf command line.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/exit"
	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

var (
	ErrNoArguments           = errors.New("no arguments provided")
	ErrInPlaceNeedsFile      = errors.New("--in-place requires a file argument")
	ErrSlurpWithStream       = errors.New("--slurp cannot be combined with --stream or --jsonl")
	ErrInvalidArgFormat      = errors.New("argument must be in format name=value")
	ErrEmptyArgName          = errors.New("argument name cannot be empty")
	ErrInvalidColorMode      = errors.New("color mode must be auto, always, or never")
	ErrJSONPathWithRawInput  = errors.New("--jsonpath cannot be combined with --raw-input")
	ErrNegativeRate          = errors.New("--rate must not be negative")
	ErrRateWithoutStreaming  = errors.New("--rate requires --stream or --jsonl")
	ErrSkipBadNeedsStreaming = errors.New("--skip-bad-records requires --stream or --jsonl")
)

// ColorMode selects when output is colorized.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode resolves a --color flag value.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return 0, fmt.Errorf("%w, got %q", ErrInvalidColorMode, s)
	}
}

// Config is the parsed command line.
type Config struct {
	Query string
	Files []string

	InputFormat  *format.Format // nil means detect
	OutputFormat *format.Format // nil means same as input

	InPlace    bool
	Compact    bool
	Raw        bool
	Color      ColorMode
	NoColor    bool
	Slurp      bool
	RawInput   bool
	JoinOutput bool
	NullInput  bool

	Stream         bool
	JSONL          bool
	Rate           float64
	SkipBadRecords bool

	JSONPath bool

	// Variables bound as $name from --arg (strings) and --argjson
	// (parsed JSON values).
	Args map[string]value.Value
}

// Streaming reports whether records arrive lazily.
func (c *Config) Streaming() bool {
	return c.Stream || c.JSONL
}

// argFlag collects repeatable name=value flags, holding raw string
// values for --arg and decoded JSON for --argjson.
type argFlag struct {
	values map[string]value.Value
	json   bool
}

func (a *argFlag) String() string {
	var pairs []string
	for k := range a.values {
		pairs = append(pairs, k)
	}
	return strings.Join(pairs, ",")
}

func (a *argFlag) Set(raw string) error {
	name, val, ok := strings.Cut(raw, "=")
	if !ok {
		return fmt.Errorf("%w, got: %s", ErrInvalidArgFormat, raw)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyArgName
	}
	if !a.json {
		a.values[name] = val
		return nil
	}
	parsed, err := value.ParseJSON(val)
	if err != nil {
		return fmt.Errorf("invalid JSON for --argjson %s: %w", name, err)
	}
	a.values[name] = parsed
	return nil
}

// Parse parses command-line arguments and returns a validated Config.
// A nil Config comes with the exit result to print.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Errorf("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)

	var (
		inputFormat  = fs.String("input-format", "", "Force input format [yaml, json, xml, toml, csv, tsv]")
		outputFormat = fs.String("output-format", "", "Output format (default: same as input)")
		inPlace      = fs.Bool("in-place", false, "Edit the file in place")
		compact      = fs.Bool("compact", false, "Compact output without pretty printing")
		raw          = fs.Bool("raw", false, "Print string results without quotes")
		colorMode    = fs.String("color", "auto", "Colorize output [auto, always, never]")
		noColor      = fs.Bool("no-color", false, "Disable colorized output")
		slurp        = fs.Bool("slurp", false, "Read all inputs into a single array")
		rawInput     = fs.Bool("raw-input", false, "Read input lines as strings")
		joinOutput   = fs.Bool("join-output", false, "No newlines between outputs")
		nullInput    = fs.Bool("null-input", false, "Run the query once with null input")
		streamMode   = fs.Bool("stream", false, "Process records one at a time for large inputs")
		jsonl        = fs.Bool("jsonl", false, "Read newline-delimited JSON records")
		rate         = fs.Float64("rate", 0, "Throttle streamed records per second (0 for unlimited)")
		skipBad      = fs.Bool("skip-bad-records", false, "Skip records that fail to parse instead of aborting")
		jsonPathMode = fs.Bool("jsonpath", false, "Interpret the query as an RFC 9535 JSONPath expression")
		argValues    = &argFlag{values: map[string]value.Value{}}
		argJSON      = &argFlag{values: nil, json: true}
	)
	argJSON.values = argValues.values

	// Short aliases mirror the long flags.
	fs.StringVar(inputFormat, "p", "", "")
	fs.StringVar(outputFormat, "o", "", "")
	fs.BoolVar(inPlace, "i", false, "")
	fs.BoolVar(compact, "c", false, "")
	fs.BoolVar(raw, "r", false, "")
	fs.BoolVar(slurp, "s", false, "")
	fs.BoolVar(rawInput, "R", false, "")
	fs.BoolVar(joinOutput, "j", false, "")
	fs.BoolVar(nullInput, "n", false, "")
	fs.Var(argValues, "arg", "Bind $name to a string value: --arg name=value (repeatable)")
	fs.Var(argJSON, "argjson", "Bind $name to a JSON value: --argjson name=json (repeatable)")

	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Usagef("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	cfg := &Config{
		InPlace:        *inPlace,
		Compact:        *compact,
		Raw:            *raw,
		NoColor:        *noColor,
		Slurp:          *slurp,
		RawInput:       *rawInput,
		JoinOutput:     *joinOutput,
		NullInput:      *nullInput,
		Stream:         *streamMode,
		JSONL:          *jsonl,
		Rate:           *rate,
		SkipBadRecords: *skipBad,
		JSONPath:       *jsonPathMode,
		Args:           argValues.values,
	}

	positional := fs.Args()
	if len(positional) == 0 {
		cfg.Query = "."
	} else {
		cfg.Query = positional[0]
		cfg.Files = positional[1:]
	}

	mode, err := ParseColorMode(*colorMode)
	if err != nil {
		return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
	}
	cfg.Color = mode

	if *inputFormat != "" {
		f, err := format.Parse(*inputFormat)
		if err != nil {
			return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
		}
		cfg.InputFormat = &f
	}
	if *outputFormat != "" {
		f, err := format.Parse(*outputFormat)
		if err != nil {
			return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
		}
		cfg.OutputFormat = &f
	}

	if err := cfg.Validate(); err != nil {
		return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
	}
	return cfg, nil
}

// Validate rejects flag combinations with no defined behavior.
func (c *Config) Validate() error {
	if c.InPlace && len(c.Files) == 0 {
		return ErrInPlaceNeedsFile
	}
	if c.Slurp && c.Streaming() {
		return ErrSlurpWithStream
	}
	if c.JSONPath && c.RawInput {
		return ErrJSONPathWithRawInput
	}
	if c.Rate < 0 {
		return ErrNegativeRate
	}
	if c.Rate > 0 && !c.Streaming() {
		return ErrRateWithoutStreaming
	}
	if c.SkipBadRecords && !c.Streaming() {
		return ErrSkipBadNeedsStreaming
	}
	return nil
}

// Usage returns the help text.
func Usage() string {
	return `qf - a fast, universal data format query tool

Usage:
  qf [flags] [query] [file...]

The query defaults to "." and input is read from stdin when no files
are given. Formats are detected from file extensions or content.

Flags:
  -p, --input-format FMT    Force input format [yaml, json, xml, toml, csv, tsv]
  -o, --output-format FMT   Output format (default: same as input)
  -i, --in-place            Edit the file in place
  -c, --compact             Compact output
  -r, --raw                 Print string results without quotes
      --color MODE          Colorize output [auto, always, never]
      --no-color            Disable colorized output
  -s, --slurp               Read all inputs into a single array
  -R, --raw-input           Read input lines as strings
  -j, --join-output         No newlines between outputs
  -n, --null-input          Run the query once with null input
      --stream              Process records one at a time
      --jsonl               Read newline-delimited JSON
      --rate N              Throttle streamed records per second
      --skip-bad-records    Skip records that fail to parse
      --jsonpath            Treat the query as an RFC 9535 JSONPath
      --arg name=value      Bind $name to a string (repeatable)
      --argjson name=json   Bind $name to a JSON value (repeatable)
`
}
