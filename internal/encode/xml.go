package encode

import (
	"strings"

	"github.com/pedrosanzmtz/qf/internal/value"
)

// marshalXML mirrors the decoder's conventions: "@key" entries become
// attributes, "$text" the character data, everything else child
// elements. Values that are not objects are wrapped in a root element.
func marshalXML(v value.Value) (string, error) {
	var b strings.Builder
	obj, ok := v.(*value.Object)
	if !ok {
		b.WriteString("<root>")
		b.WriteString(escapeXML(value.ToString(v)))
		b.WriteString("</root>")
		return b.String(), nil
	}
	if err := writeXMLBody(&b, obj); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeXMLBody(b *strings.Builder, obj *value.Object) error {
	for _, k := range obj.Keys() {
		if strings.HasPrefix(k, "@") || k == "$text" {
			continue
		}
		item, _ := obj.Get(k)
		if err := writeXMLElement(b, k, item); err != nil {
			return err
		}
	}
	return nil
}

func writeXMLElement(b *strings.Builder, name string, v value.Value) error {
	// Arrays repeat the element name per item.
	if arr, ok := v.([]value.Value); ok {
		for _, item := range arr {
			if err := writeXMLElement(b, name, item); err != nil {
				return err
			}
		}
		return nil
	}

	b.WriteByte('<')
	b.WriteString(name)

	obj, isObj := v.(*value.Object)
	if isObj {
		for _, k := range obj.Keys() {
			if !strings.HasPrefix(k, "@") {
				continue
			}
			attr, _ := obj.Get(k)
			b.WriteByte(' ')
			b.WriteString(strings.TrimPrefix(k, "@"))
			b.WriteString(`="`)
			b.WriteString(escapeXML(value.ToString(attr)))
			b.WriteByte('"')
		}
	}

	if v == nil {
		b.WriteString("/>")
		return nil
	}
	b.WriteByte('>')

	if isObj {
		if text, ok := obj.Get("$text"); ok {
			b.WriteString(escapeXML(value.ToString(text)))
		}
		if err := writeXMLBody(b, obj); err != nil {
			return err
		}
	} else {
		b.WriteString(escapeXML(value.ToString(v)))
	}

	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
	return nil
}

func escapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
