package decode

import (
	"strings"
	"testing"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

func TestJSON(t *testing.T) {
	t.Parallel()

	v, err := JSON(`{"z": 1, "a": [true, null, "x"]}`)
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if got := value.ToJSON(v); got != `{"z":1,"a":[true,null,"x"]}` {
		t.Errorf("JSON() = %s, key order lost", got)
	}

	if _, err := JSON("{broken"); err == nil {
		t.Error("invalid JSON must error")
	}
	if _, err := JSON(`{"a":1} trailing`); err == nil {
		t.Error("trailing garbage must error")
	}
}

func TestJSONValues(t *testing.T) {
	t.Parallel()

	docs, err := JSONValues(`{"a":1}{"a":2}{"a":3}`)
	if err != nil {
		t.Fatalf("JSONValues() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("JSONValues() = %d docs, want 3", len(docs))
	}
	if got := value.ToJSON(docs[2]); got != `{"a":3}` {
		t.Errorf("docs[2] = %s", got)
	}
}

func TestYAML(t *testing.T) {
	t.Parallel()

	v, err := YAML("zebra: 1\nalpha:\n  - x\n  - true\ncount: 3.5\n")
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	if got := value.ToJSON(v); got != `{"zebra":1,"alpha":["x",true],"count":3.5}` {
		t.Errorf("YAML() = %s", got)
	}

	if _, err := YAML("key: [unterminated"); err == nil {
		t.Error("invalid YAML must error")
	}
}

func TestYAMLDocuments(t *testing.T) {
	t.Parallel()

	docs, err := YAMLDocuments("a: 1\n---\nb: 2\n")
	if err != nil {
		t.Fatalf("YAMLDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %d, want 2", len(docs))
	}
	if got := value.ToJSON(docs[1]); got != `{"b":2}` {
		t.Errorf("docs[1] = %s", got)
	}
}

func TestXML(t *testing.T) {
	t.Parallel()

	v, err := XML(`<root><item id="1">hello</item><item id="2">world</item><name>test</name></root>`)
	if err != nil {
		t.Fatalf("XML() error = %v", err)
	}
	got := value.ToJSON(v)
	want := `{"item":[{"@id":"1","$text":"hello"},{"@id":"2","$text":"world"}],"name":{"$text":"test"}}`
	if got != want {
		t.Errorf("XML() = %s, want %s", got, want)
	}

	if _, err := XML("<root><unclosed>"); err == nil {
		t.Error("malformed XML must error")
	}
}

func TestTOML(t *testing.T) {
	t.Parallel()

	input := `
name = "qf"
version = 42
pi = 3.25
enabled = true
tags = ["cli", "query"]

[package]
license = "MIT"
`
	v, err := TOML(input)
	if err != nil {
		t.Fatalf("TOML() error = %v", err)
	}
	obj, ok := v.(*value.Object)
	if !ok {
		t.Fatalf("TOML() = %T, want object", v)
	}
	keys := obj.Keys()
	if keys[0] != "name" || keys[len(keys)-1] != "package" {
		t.Errorf("key order = %v", keys)
	}
	if n, _ := obj.Get("version"); n != 42.0 {
		t.Errorf("version = %v, want 42", n)
	}
	pkg, _ := obj.Get("package")
	if lic, _ := pkg.(*value.Object).Get("license"); lic != "MIT" {
		t.Errorf("license = %v", lic)
	}

	if _, err := TOML("= broken"); err == nil {
		t.Error("invalid TOML must error")
	}
}

func TestTOMLDatetime(t *testing.T) {
	t.Parallel()

	v, err := TOML("created = 2024-01-15T10:30:00Z\n")
	if err != nil {
		t.Fatalf("TOML() error = %v", err)
	}
	created, _ := v.(*value.Object).Get("created")
	s, ok := created.(string)
	if !ok || !strings.Contains(s, "2024-01-15") {
		t.Errorf("created = %v, want RFC3339 string", created)
	}
}

func TestDelimited(t *testing.T) {
	t.Parallel()

	v, err := Delimited("name,age\nAlice,30\nBob,25\n", ',')
	if err != nil {
		t.Fatalf("Delimited() error = %v", err)
	}
	got := value.ToJSON(v)
	want := `[{"name":"Alice","age":"30"},{"name":"Bob","age":"25"}]`
	if got != want {
		t.Errorf("Delimited() = %s, want %s", got, want)
	}

	v, err = Delimited("a,b\n1,\"x, y\"\n", ',')
	if err != nil {
		t.Fatalf("Delimited() quoted error = %v", err)
	}
	rows := v.([]value.Value)
	cell, _ := rows[0].(*value.Object).Get("b")
	if cell != "x, y" {
		t.Errorf("quoted cell = %v", cell)
	}

	v, err = Delimited("x\ty\n1\t2\n", '\t')
	if err != nil {
		t.Fatalf("Delimited() tsv error = %v", err)
	}
	if got := value.ToJSON(v); got != `[{"x":"1","y":"2"}]` {
		t.Errorf("tsv = %s", got)
	}
}

func TestDocumentsDispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		format format.Format
		count  int
	}{
		{"json single", `{"a":1}`, format.JSON, 1},
		{"json stream", `1 2 3`, format.JSON, 3},
		{"yaml multi", "a: 1\n---\nb: 2\n", format.YAML, 2},
		{"xml", "<r><a>1</a></r>", format.XML, 1},
		{"toml", `a = 1`, format.TOML, 1},
		{"csv", "h\nv\n", format.CSV, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := Documents(tt.input, tt.format)
			if err != nil {
				t.Fatalf("Documents() error = %v", err)
			}
			if len(docs) != tt.count {
				t.Errorf("Documents() = %d records, want %d", len(docs), tt.count)
			}
		})
	}
}
