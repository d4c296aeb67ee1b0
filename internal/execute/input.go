package execute

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/pedrosanzmtz/qf/internal/config"
	"github.com/pedrosanzmtz/qf/internal/decode"
	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/stream"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// input is one open document stream with its source name for format
// detection.
type input struct {
	reader  io.Reader
	name    string
	closers []io.Closer
}

func (in input) Close() {
	for _, c := range in.closers {
		c.Close()
	}
}

// openFile opens a document file, transparently decompressing .gz
// inputs so compressed exports query like plain ones.
func openFile(path string) (input, error) {
	f, err := os.Open(path)
	if err != nil {
		return input{}, fmt.Errorf("reading %s: %w", path, err)
	}
	in := input{reader: f, name: path, closers: []io.Closer{f}}

	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return input{}, fmt.Errorf("reading %s: %w", path, err)
		}
		in.reader = gz
		in.closers = append([]io.Closer{gz}, in.closers...)
	}
	return in, nil
}

func readAll(in input) (string, error) {
	content, err := io.ReadAll(in.reader)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", in.name, err)
	}
	return string(content), nil
}

// streamSource builds the lazy per-record source for --stream.
func streamSource(r io.Reader, f format.Format) (stream.Source, error) {
	switch f {
	case format.JSON:
		return stream.JSONValues(r), nil
	case format.YAML:
		return stream.YAMLDocuments(r), nil
	case format.XML:
		return stream.XMLChildren(r), nil
	case format.CSV:
		return stream.CSVRows(r, ','), nil
	case format.TSV:
		return stream.CSVRows(r, '\t'), nil
	default:
		return nil, fmt.Errorf("streaming is not supported for %s", f)
	}
}

// batchRecords materializes the records of one input under the batch
// flags: raw lines, slurping, or format decoding.
func batchRecords(content string, f format.Format, cfg *config.Config) ([]value.Value, error) {
	if cfg.RawInput {
		lines := []value.Value{}
		for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
			lines = append(lines, line)
		}
		if cfg.Slurp {
			return []value.Value{lines}, nil
		}
		return lines, nil
	}

	docs, err := decode.Documents(content, f)
	if err != nil {
		return nil, err
	}
	if cfg.Slurp {
		return []value.Value{append([]value.Value{}, docs...)}, nil
	}
	return docs, nil
}

// parseWhole parses one file into a single record for multi-file
// slurping.
func parseWhole(content string, f format.Format, rawInput bool) (value.Value, error) {
	if rawInput {
		return content, nil
	}
	return decode.Parse(content, f)
}
