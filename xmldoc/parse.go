// Package xmldoc converts between XML (or HTML) text and the infoset
// events consumed by the EXI codec, and rebuilds element trees from
// events.
package xmldoc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/clems4ever/exi-encoder/infoset"
	"github.com/clems4ever/exi-encoder/stringtable"
)

// Options controls how text is turned into events.
type Options struct {
	// KeepWhitespace emits character data made only of white space.
	// By default such text is dropped.
	KeepWhitespace bool
}

// Stream parses the XML document in r and calls fn for each event in
// document order, ending with EndDocument. The XML declaration and
// DOCTYPE are not reported.
func Stream(r io.Reader, opts Options, fn func(infoset.Event) error) error {
	type stackItem struct {
		raw      xml.Name
		bindings map[string]string
	}
	stack := []*stackItem{}

	resolve := func(prefix string) (string, bool) {
		switch prefix {
		case "xml":
			return stringtable.XMLNamespace, true
		case "xmlns":
			return "", false
		}
		for i := len(stack) - 1; i >= 0; i-- {
			if uri, ok := stack[i].bindings[prefix]; ok {
				return uri, true
			}
		}
		return "", prefix == ""
	}

	var text strings.Builder
	flush := func() error {
		s := text.String()
		text.Reset()
		if len(stack) == 0 || s == "" {
			return nil
		}
		if !opts.KeepWhitespace && strings.TrimSpace(s) == "" {
			return nil
		}
		return fn(infoset.Characters(s))
	}

	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if err := flush(); err != nil {
				return err
			}
			item := &stackItem{raw: t.Name}
			var attrs []xml.Attr
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "xmlns":
					if item.bindings == nil {
						item.bindings = make(map[string]string)
					}
					item.bindings[a.Name.Local] = a.Value
				case a.Name.Space == "" && a.Name.Local == "xmlns":
					if item.bindings == nil {
						item.bindings = make(map[string]string)
					}
					item.bindings[""] = a.Value
				default:
					attrs = append(attrs, a)
				}
			}
			stack = append(stack, item)

			uri, ok := resolve(t.Name.Space)
			if !ok {
				return fmt.Errorf("xmldoc: unbound prefix %q on <%s:%s>", t.Name.Space, t.Name.Space, t.Name.Local)
			}
			if err := fn(infoset.StartElement(uri, t.Name.Local)); err != nil {
				return err
			}
			// declarations in source order
			for _, a := range t.Attr {
				var prefix string
				switch {
				case a.Name.Space == "xmlns":
					prefix = a.Name.Local
				case a.Name.Space == "" && a.Name.Local == "xmlns":
				default:
					continue
				}
				if err := fn(infoset.Namespace(prefix, a.Value, prefix == t.Name.Space)); err != nil {
					return err
				}
			}
			for _, a := range attrs {
				// unprefixed attributes are in no namespace
				var uri string
				if a.Name.Space != "" {
					var ok bool
					if uri, ok = resolve(a.Name.Space); !ok {
						return fmt.Errorf("xmldoc: unbound prefix %q on attribute %s:%s", a.Name.Space, a.Name.Space, a.Name.Local)
					}
				}
				if err := fn(infoset.Attribute(uri, a.Name.Local, a.Value)); err != nil {
					return err
				}
			}

		case xml.EndElement:
			if err := flush(); err != nil {
				return err
			}
			if len(stack) == 0 {
				return fmt.Errorf("xmldoc: unexpected end element </%s>", t.Name.Local)
			}
			top := stack[len(stack)-1]
			if top.raw != t.Name {
				return fmt.Errorf("xmldoc: element <%s> closed by </%s>", qualified(top.raw), qualified(t.Name))
			}
			uri, _ := resolve(t.Name.Space)
			stack = stack[:len(stack)-1]
			if err := fn(infoset.EndElement(uri, t.Name.Local)); err != nil {
				return err
			}

		case xml.CharData:
			text.Write(t)

		case xml.Comment:
			if err := flush(); err != nil {
				return err
			}
			if err := fn(infoset.Comment(string(t))); err != nil {
				return err
			}

		case xml.ProcInst:
			if t.Target == "xml" {
				continue
			}
			if err := flush(); err != nil {
				return err
			}
			if err := fn(infoset.ProcessingInstruction(t.Target, string(t.Inst))); err != nil {
				return err
			}
		}
	}

	if len(stack) > 0 {
		return fmt.Errorf("xmldoc: unexpected end of input inside <%s>", qualified(stack[len(stack)-1].raw))
	}
	return fn(infoset.EndDocument())
}

// Parse collects the events of the XML document in r.
func Parse(r io.Reader, opts Options) ([]infoset.Event, error) {
	var events []infoset.Event
	err := Stream(r, opts, func(ev infoset.Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
