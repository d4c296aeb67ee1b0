package execute

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pedrosanzmtz/qf/internal/encode"
	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/stream"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// resultWriter renders result documents to the output, separating YAML
// documents with --- and terminating results with newlines unless join
// mode is on.
type resultWriter struct {
	out     io.Writer
	opts    encode.Options
	join    bool
	written int
}

func (r *Runner) newWriter(out io.Writer, f format.Format, colorize bool) *resultWriter {
	return &resultWriter{
		out: out,
		opts: encode.Options{
			Format:  f,
			Compact: r.cfg.Compact,
			Raw:     r.cfg.Raw,
			Color:   colorize,
		},
		join: r.cfg.JoinOutput,
	}
}

// Write renders one result document.
func (w *resultWriter) Write(v value.Value) error {
	rendered, err := encode.Value(v, w.opts)
	if err != nil {
		return err
	}
	if w.opts.Format == format.YAML && w.written > 0 {
		if _, err := io.WriteString(w.out, "---\n"); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w.out, rendered); err != nil {
		return err
	}
	if !w.join && !strings.HasSuffix(rendered, "\n") {
		if _, err := io.WriteString(w.out, "\n"); err != nil {
			return err
		}
	}
	w.written++
	return nil
}

// Flush exists for symmetry with buffered outputs; the writer itself
// is unbuffered.
func (w *resultWriter) Flush() error {
	return nil
}

// runInPlace renders all results into a temporary file beside the
// target and renames it over the original, so the edit is atomic and
// a failed run leaves the file untouched.
func (r *Runner) runInPlace(ctx context.Context, path string, records []value.Value, outFmt format.Format) error {
	var buf strings.Builder
	w := r.newWriter(&buf, outFmt, false)
	if err := r.evalRecords(ctx, stream.Values(records), w); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
