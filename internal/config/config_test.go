package config

import (
	"testing"

	"github.com/pedrosanzmtz/qf/internal/format"
)

func parseOK(t *testing.T, args ...string) *Config {
	t.Helper()
	cfg, result := Parse(append([]string{"qf"}, args...))
	if result != nil {
		t.Fatalf("Parse(%v) failed: %s", args, result.Message)
	}
	return cfg
}

func parseFail(t *testing.T, args ...string) {
	t.Helper()
	cfg, result := Parse(append([]string{"qf"}, args...))
	if result == nil {
		t.Fatalf("Parse(%v) = %+v, want failure", args, cfg)
	}
	if result.ExitCode == 0 {
		t.Fatalf("Parse(%v) exit code = 0, want non-zero", args)
	}
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	cfg := parseOK(t)
	if cfg.Query != "." {
		t.Errorf("Query = %q, want .", cfg.Query)
	}
	if len(cfg.Files) != 0 || cfg.InputFormat != nil || cfg.OutputFormat != nil {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Color != ColorAuto {
		t.Errorf("Color = %v, want auto", cfg.Color)
	}
}

func TestParsePositionals(t *testing.T) {
	t.Parallel()

	cfg := parseOK(t, ".a.b", "one.yaml", "two.yaml")
	if cfg.Query != ".a.b" {
		t.Errorf("Query = %q", cfg.Query)
	}
	if len(cfg.Files) != 2 || cfg.Files[0] != "one.yaml" {
		t.Errorf("Files = %v", cfg.Files)
	}
}

func TestParseFormats(t *testing.T) {
	t.Parallel()

	cfg := parseOK(t, "-p", "yaml", "-o", "json", ".")
	if cfg.InputFormat == nil || *cfg.InputFormat != format.YAML {
		t.Errorf("InputFormat = %v", cfg.InputFormat)
	}
	if cfg.OutputFormat == nil || *cfg.OutputFormat != format.JSON {
		t.Errorf("OutputFormat = %v", cfg.OutputFormat)
	}

	parseFail(t, "-p", "ini", ".")
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	cfg := parseOK(t, "-c", "-r", "-s", "-n", "-j", ".")
	if !cfg.Compact || !cfg.Raw || !cfg.Slurp || !cfg.NullInput || !cfg.JoinOutput {
		t.Errorf("flags = %+v", cfg)
	}

	cfg = parseOK(t, "--stream", "--rate", "10", "--skip-bad-records", ".", "big.xml")
	if !cfg.Stream || cfg.Rate != 10 || !cfg.SkipBadRecords {
		t.Errorf("stream flags = %+v", cfg)
	}
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	cfg := parseOK(t, "--arg", "name=world", "--argjson", "n=42", ".")
	if cfg.Args["name"] != "world" {
		t.Errorf("Args[name] = %v", cfg.Args["name"])
	}
	if cfg.Args["n"] != 42.0 {
		t.Errorf("Args[n] = %v", cfg.Args["n"])
	}

	parseFail(t, "--arg", "noequals", ".")
	parseFail(t, "--argjson", "x={bad", ".")
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	cfg := parseOK(t, "--color", "always", ".")
	if cfg.Color != ColorAlways {
		t.Errorf("Color = %v", cfg.Color)
	}
	parseFail(t, "--color", "rainbow", ".")
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	parseFail(t, "-i", ".")                      // in-place without file
	parseFail(t, "-s", "--jsonl", ".")           // slurp with streaming
	parseFail(t, "-s", "--stream", ".")          // slurp with streaming
	parseFail(t, "--rate", "5", ".")             // rate without streaming
	parseFail(t, "--skip-bad-records", ".")      // skip without streaming
	parseFail(t, "--jsonpath", "-R", ".")        // jsonpath over raw lines
	parseFail(t, "--rate", "-1", "--jsonl", ".") // negative rate
}
