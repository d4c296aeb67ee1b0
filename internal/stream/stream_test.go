package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/pedrosanzmtz/qf/internal/value"
)

func drain(t *testing.T, src Source) []value.Value {
	t.Helper()
	var out []value.Value
	for {
		v, err := src.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, v)
	}
}

func asJSON(vs []value.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = value.ToJSON(v)
	}
	return out
}

func TestNDJSON(t *testing.T) {
	t.Parallel()

	src := NDJSON(strings.NewReader("{\"a\":1}\n\n{\"a\":2}\n{\"a\":3}"))
	got := asJSON(drain(t, src))
	want := []string{`{"a":1}`, `{"a":2}`, `{"a":3}`}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("records = %v, want %v", got, want)
		}
	}
}

func TestNDJSONBadRecord(t *testing.T) {
	t.Parallel()

	src := NDJSON(strings.NewReader("{\"a\":1}\n{broken\n"))
	if _, err := src.Next(); err != nil {
		t.Fatalf("first record error = %v", err)
	}
	_, err := src.Next()
	var re *RecordError
	if !errors.As(err, &re) {
		t.Fatalf("bad record error = %v, want RecordError", err)
	}
}

func TestJSONValues(t *testing.T) {
	t.Parallel()

	src := JSONValues(strings.NewReader(`{"a":1}{"a":2} 3`))
	got := asJSON(drain(t, src))
	if len(got) != 3 || got[2] != "3" {
		t.Errorf("records = %v", got)
	}
}

func TestYAMLDocuments(t *testing.T) {
	t.Parallel()

	src := YAMLDocuments(strings.NewReader("a: 1\n---\nb: 2\n"))
	got := asJSON(drain(t, src))
	if len(got) != 2 || got[0] != `{"a":1}` || got[1] != `{"b":2}` {
		t.Errorf("records = %v", got)
	}
}

func TestCSVRows(t *testing.T) {
	t.Parallel()

	src := CSVRows(strings.NewReader("name,age\nAlice,30\nBob,25\n"), ',')
	got := asJSON(drain(t, src))
	if len(got) != 2 || got[0] != `{"name":"Alice","age":"30"}` {
		t.Errorf("records = %v", got)
	}
}

func TestXMLChildren(t *testing.T) {
	t.Parallel()

	src := XMLChildren(strings.NewReader("<root><item><n>a</n></item><item><n>b</n></item></root>"))
	got := asJSON(drain(t, src))
	if len(got) != 2 {
		t.Fatalf("records = %v, want 2", got)
	}
	if got[0] != `{"n":{"$text":"a"}}` {
		t.Errorf("record[0] = %s", got[0])
	}
}

func TestLines(t *testing.T) {
	t.Parallel()

	src := Lines(strings.NewReader("one\ntwo\nthree"))
	got := drain(t, src)
	if len(got) != 3 || got[2] != "three" {
		t.Errorf("lines = %v", got)
	}
}

func TestSlurp(t *testing.T) {
	t.Parallel()

	v, err := Slurp(NDJSON(strings.NewReader("1\n2\n3\n")))
	if err != nil {
		t.Fatalf("Slurp() error = %v", err)
	}
	if got := value.ToJSON(v); got != "[1,2,3]" {
		t.Errorf("Slurp() = %s", got)
	}
}

func TestRunOrderAndSkip(t *testing.T) {
	t.Parallel()

	src := NDJSON(strings.NewReader("1\n{bad\n3\n"))
	var handled []string
	var skipped int
	err := Run(src, func(v value.Value) error {
		handled = append(handled, value.ToJSON(v))
		return nil
	}, true, func(error) { skipped++ })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(handled) != 2 || handled[0] != "1" || handled[1] != "3" {
		t.Errorf("handled = %v", handled)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	// without skipBad the bad record is fatal
	src = NDJSON(strings.NewReader("{bad\n"))
	if err := Run(src, func(value.Value) error { return nil }, false, nil); err == nil {
		t.Error("bad record must be fatal without skip")
	}
}

// Stream mode must equal per-record evaluation in order.
func TestStreamEquivalence(t *testing.T) {
	t.Parallel()

	input := "{\"n\":1}\n{\"n\":2}\n{\"n\":3}\n"

	var streamed []string
	err := Run(NDJSON(strings.NewReader(input)), func(v value.Value) error {
		streamed = append(streamed, value.ToJSON(v))
		return nil
	}, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	batch := drain(t, NDJSON(strings.NewReader(input)))
	if len(streamed) != len(batch) {
		t.Fatalf("stream %v vs batch %v", streamed, batch)
	}
	for i := range batch {
		if streamed[i] != value.ToJSON(batch[i]) {
			t.Fatalf("stream %v vs batch %v", streamed, batch)
		}
	}
}

func TestThrottle(t *testing.T) {
	t.Parallel()

	src := Throttle(context.Background(), Values([]value.Value{1.0, 2.0}), 0)
	if _, ok := src.(*valueSource); !ok {
		t.Error("zero rate must not wrap the source")
	}

	src = Throttle(context.Background(), Values([]value.Value{1.0, 2.0}), 1000)
	got := drain(t, src)
	if len(got) != 2 {
		t.Errorf("throttled records = %v", got)
	}
}
