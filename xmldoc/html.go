package xmldoc

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/clems4ever/exi-encoder/infoset"
	"github.com/clems4ever/exi-encoder/stringtable"
)

var foreignNamespaces = map[string]string{
	"svg":  "http://www.w3.org/2000/svg",
	"math": "http://www.w3.org/1998/Math/MathML",
}

var attributeNamespaces = map[string]string{
	"xlink": "http://www.w3.org/1999/xlink",
	"xml":   stringtable.XMLNamespace,
}

// StreamHTML parses legacy HTML, which need not be well-formed XML, and
// reports the repaired tree as events. HTML elements are in no namespace;
// SVG and MathML elements get their namespace declared on the outermost
// foreign element. The DOCTYPE is dropped, as are xmlns attributes.
func StreamHTML(r io.Reader, opts Options, fn func(infoset.Event) error) error {
	doc, err := html.Parse(r)
	if err != nil {
		return err
	}

	var traverse func(n *html.Node, depth int, ns string) error
	traverse = func(n *html.Node, depth int, ns string) error {
		switch n.Type {
		case html.ElementNode:
			uri := foreignNamespaces[n.Namespace]
			if err := fn(infoset.StartElement(uri, n.Data)); err != nil {
				return err
			}
			if uri != ns {
				if err := fn(infoset.Namespace("", uri, true)); err != nil {
					return err
				}
			}
			for _, a := range n.Attr {
				if a.Key == "xmlns" || a.Namespace == "xmlns" || strings.HasPrefix(a.Key, "xmlns:") {
					continue
				}
				if err := fn(infoset.Attribute(attributeNamespaces[a.Namespace], a.Key, a.Val)); err != nil {
					return err
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if err := traverse(c, depth+1, uri); err != nil {
					return err
				}
			}
			return fn(infoset.EndElement(uri, n.Data))
		case html.TextNode:
			if depth == 0 || n.Data == "" {
				return nil
			}
			if !opts.KeepWhitespace && strings.TrimSpace(n.Data) == "" {
				return nil
			}
			return fn(infoset.Characters(n.Data))
		case html.CommentNode:
			return fn(infoset.Comment(n.Data))
		case html.DoctypeNode:
			return nil
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := traverse(c, depth, ns); err != nil {
				return err
			}
		}
		return nil
	}
	if err := traverse(doc, 0, ""); err != nil {
		return err
	}
	return fn(infoset.EndDocument())
}

// ParseHTML collects the events of the HTML document in r.
func ParseHTML(r io.Reader, opts Options) ([]infoset.Event, error) {
	var events []infoset.Event
	err := StreamHTML(r, opts, func(ev infoset.Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}
