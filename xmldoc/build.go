package xmldoc

import (
	"fmt"

	"github.com/clems4ever/exi-encoder/infoset"
	"github.com/clems4ever/exi-encoder/stringtable"
)

// Build reconstructs a document from events. Elements and attributes get
// the prefixes declared for their namespace in scope, preferring the
// declaration flagged LocalElementNS. Where no declaration is in scope
// one is added, so the result always serializes to namespace-correct XML.
func Build(events []infoset.Event) (*Document, error) {
	type stackItem struct {
		el     *Element
		sealed bool
		local  bool // Prefix came from a LocalElementNS declaration
	}
	doc := &Document{}
	stack := []*stackItem{}
	generated := 0

	lookup := func(prefix string) string {
		if prefix == "xml" {
			return stringtable.XMLNamespace
		}
		for i := len(stack) - 1; i >= 0; i-- {
			nss := stack[i].el.Namespaces
			for j := len(nss) - 1; j >= 0; j-- {
				if nss[j].Prefix == prefix {
					return nss[j].URI
				}
			}
		}
		return ""
	}

	// prefixFor finds a prefix bound to uri in scope. Attributes in a
	// namespace need a non-empty prefix.
	prefixFor := func(uri string, attr bool) (string, bool) {
		if uri == stringtable.XMLNamespace {
			return "xml", true
		}
		for i := len(stack) - 1; i >= 0; i-- {
			for _, ns := range stack[i].el.Namespaces {
				if ns.URI == uri && (!attr || ns.Prefix != "") && lookup(ns.Prefix) == uri {
					return ns.Prefix, true
				}
			}
		}
		if !attr && lookup("") == uri {
			return "", true
		}
		return "", false
	}

	// seal fixes the prefixes of the innermost element once its start
	// tag is complete.
	seal := func() {
		if len(stack) == 0 {
			return
		}
		top := stack[len(stack)-1]
		if top.sealed {
			return
		}
		top.sealed = true
		el := top.el
		if !top.local || lookup(el.Prefix) != el.Name.URI {
			if p, ok := prefixFor(el.Name.URI, false); ok {
				el.Prefix = p
			} else {
				el.Namespaces = append(el.Namespaces, Namespace{URI: el.Name.URI})
				el.Prefix = ""
			}
		}
		for i := range el.Attributes {
			a := &el.Attributes[i]
			if a.Name.URI == "" {
				continue
			}
			if p, ok := prefixFor(a.Name.URI, true); ok {
				a.Prefix = p
				continue
			}
			for {
				generated++
				a.Prefix = fmt.Sprintf("ns%d", generated)
				if lookup(a.Prefix) == "" {
					break
				}
			}
			el.Namespaces = append(el.Namespaces, Namespace{Prefix: a.Prefix, URI: a.Name.URI})
		}
	}

	current := func(ev infoset.Event) (*stackItem, error) {
		if len(stack) == 0 {
			return nil, fmt.Errorf("xmldoc: %s outside the root element", ev.Kind)
		}
		return stack[len(stack)-1], nil
	}

	for _, ev := range events {
		switch ev.Kind {
		case infoset.KindStartElement:
			seal()
			el := &Element{Name: ev.Name}
			if len(stack) > 0 {
				parent := stack[len(stack)-1].el
				parent.Children = append(parent.Children, el)
			} else if doc.Root != nil {
				return nil, fmt.Errorf("xmldoc: second root element %s", ev.Name)
			} else {
				doc.Root = el
			}
			stack = append(stack, &stackItem{el: el})

		case infoset.KindNamespace, infoset.KindAttribute:
			top, err := current(ev)
			if err != nil {
				return nil, err
			}
			if top.sealed {
				return nil, fmt.Errorf("xmldoc: %s after the content of %s started", ev.Kind, top.el.Name)
			}
			if ev.Kind == infoset.KindAttribute {
				top.el.Attributes = append(top.el.Attributes, Attr{Name: ev.Name, Value: ev.Value})
				continue
			}
			top.el.Namespaces = append(top.el.Namespaces, Namespace{Prefix: ev.Prefix, URI: ev.Name.URI})
			if ev.LocalElementNS {
				top.el.Prefix = ev.Prefix
				top.local = true
			}

		case infoset.KindCharacters:
			seal()
			top, err := current(ev)
			if err != nil {
				return nil, err
			}
			// Merge with previous string if possible
			el := top.el
			if n := len(el.Children); n > 0 {
				if str, ok := el.Children[n-1].(string); ok {
					el.Children[n-1] = str + ev.Value
					continue
				}
			}
			el.Children = append(el.Children, ev.Value)

		case infoset.KindComment, infoset.KindProcessingInstruction:
			seal()
			var node interface{} = Comment(ev.Value)
			if ev.Kind == infoset.KindProcessingInstruction {
				node = ProcInst{Target: ev.Target, Data: ev.Value}
			}
			switch {
			case len(stack) > 0:
				el := stack[len(stack)-1].el
				el.Children = append(el.Children, node)
			case doc.Root == nil:
				doc.Prolog = append(doc.Prolog, node)
			default:
				doc.Epilog = append(doc.Epilog, node)
			}

		case infoset.KindEndElement:
			seal()
			if _, err := current(ev); err != nil {
				return nil, err
			}
			stack = stack[:len(stack)-1]

		case infoset.KindEndDocument:
			if len(stack) > 0 {
				return nil, fmt.Errorf("xmldoc: end of document with %d open elements", len(stack))
			}
			return doc, nil
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("xmldoc: %d elements left open", len(stack))
	}
	return doc, nil
}
