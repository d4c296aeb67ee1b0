// Package format identifies the document formats qf reads and writes.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is the sentinel error for format resolution failures.
var ErrUnknownFormat = errors.New("unknown format")

// Format is a supported document format.
type Format int

const (
	YAML Format = iota
	JSON
	XML
	TOML
	CSV
	TSV
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case YAML:
		return "yaml"
	case JSON:
		return "json"
	case XML:
		return "xml"
	case TOML:
		return "toml"
	case CSV:
		return "csv"
	case TSV:
		return "tsv"
	default:
		return "unknown"
	}
}

// Parse resolves a format name from a CLI flag.
func Parse(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	case "xml":
		return XML, nil
	case "toml":
		return TOML, nil
	case "csv":
		return CSV, nil
	case "tsv":
		return TSV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FromPath resolves a format from a file extension. A trailing .gz is
// ignored so compressed inputs resolve from their inner extension.
func FromPath(path string) (Format, error) {
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return Parse(ext)
}

// Detect sniffs a format from document content when no extension or
// flag is available: JSON and XML have unambiguous lead characters,
// everything else reads as YAML.
func Detect(input string) Format {
	trimmed := strings.TrimLeft(input, " \t\r\n")
	switch {
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		return JSON
	case strings.HasPrefix(trimmed, "<"):
		return XML
	default:
		return YAML
	}
}
