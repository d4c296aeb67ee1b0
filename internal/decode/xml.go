package decode

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pedrosanzmtz/qf/internal/format"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// XML parses an XML document. The root element's content becomes the
// top-level object; attributes map to "@name" keys, character data to
// "$text", and repeated sibling elements collapse into arrays.
func XML(input string) (value.Value, error) {
	dec := xml.NewDecoder(strings.NewReader(input))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, decodeError(format.XML, io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, decodeError(format.XML, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			root, err := decodeElement(dec, start)
			if err != nil {
				return nil, decodeError(format.XML, err)
			}
			return root, nil
		}
	}
}

// DecodeElement builds the value for one element whose start tag has
// already been consumed. Used by the XML stream source for root
// children.
func DecodeElement(dec *xml.Decoder, start xml.StartElement) (value.Value, error) {
	return decodeElement(dec, start)
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (value.Value, error) {
	obj := value.NewObject()
	for _, attr := range start.Attr {
		obj.Set("@"+attr.Name.Local, attr.Value)
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			appendChild(obj, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if s := strings.TrimSpace(text.String()); s != "" {
				obj.Set("$text", s)
			}
			return obj, nil
		}
	}
}

// appendChild stores a child element, collapsing repeated names into an
// array in document order.
func appendChild(obj *value.Object, name string, child value.Value) {
	existing, ok := obj.Get(name)
	if !ok {
		obj.Set(name, child)
		return
	}
	if arr, ok := existing.([]value.Value); ok {
		obj.Set(name, append(arr, child))
		return
	}
	obj.Set(name, []value.Value{existing, child})
}
