package decode

import (
	"io"

	"github.com/goccy/go-yaml"
)

// YAMLStream reads a YAML document stream lazily, one document per
// Next call.
type YAMLStream struct {
	dec *yaml.Decoder
}

// NewYAMLStream wraps a reader in a lazy YAML document stream.
func NewYAMLStream(r io.Reader) *YAMLStream {
	return &YAMLStream{dec: yaml.NewDecoder(r, yaml.UseOrderedMap())}
}

// Next decodes the next document, returning io.EOF at end of stream.
func (s *YAMLStream) Next() (any, error) {
	var doc any
	if err := s.dec.Decode(&doc); err != nil {
		return nil, err
	}
	return fromYAML(doc)
}
