package xmldoc

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/clems4ever/exi-encoder/infoset"
)

// Namespace is a namespace declaration carried by an element. An empty
// Prefix declares the default namespace.
type Namespace struct {
	Prefix string
	URI    string
}

// Attr is an attribute with the prefix it is written with.
type Attr struct {
	Name   infoset.QName
	Prefix string
	Value  string
}

type Comment string

type ProcInst struct {
	Target string
	Data   string
}

// Element represents an XML node structure
type Element struct {
	Name       infoset.QName
	Prefix     string
	Namespaces []Namespace
	Attributes []Attr
	Children   []interface{} // *Element, string (CharData), Comment or ProcInst
}

// Document is a root element with the comments and processing
// instructions around it.
type Document struct {
	Prolog []interface{} // Comment or ProcInst
	Root   *Element
	Epilog []interface{}
}

func qualifiedName(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// String serializes the Element back to an XML string
func (e *Element) String() string {
	var sb strings.Builder
	e.writeTo(&sb)
	return sb.String()
}

func (e *Element) writeStartTag(w io.Writer) {
	io.WriteString(w, "<"+qualifiedName(e.Prefix, e.Name.Local))
	for _, ns := range e.Namespaces {
		name := "xmlns"
		if ns.Prefix != "" {
			name += ":" + ns.Prefix
		}
		io.WriteString(w, " "+name+`="`)
		xml.EscapeText(w, []byte(ns.URI))
		io.WriteString(w, `"`)
	}
	for _, attr := range e.Attributes {
		io.WriteString(w, " "+qualifiedName(attr.Prefix, attr.Name.Local)+`="`)
		xml.EscapeText(w, []byte(attr.Value))
		io.WriteString(w, `"`)
	}
}

func (e *Element) writeTo(sb *strings.Builder) {
	e.writeStartTag(sb)
	sb.WriteString(">")
	for _, child := range e.Children {
		switch c := child.(type) {
		case *Element:
			c.writeTo(sb) // Recursive
		default:
			writeLeaf(sb, c)
		}
	}
	sb.WriteString("</" + qualifiedName(e.Prefix, e.Name.Local) + ">")
}

// writeLeaf writes character data, a comment or a processing
// instruction.
func writeLeaf(w io.Writer, node interface{}) {
	switch c := node.(type) {
	case string:
		xml.EscapeText(w, []byte(c))
	case Comment:
		io.WriteString(w, "<!--"+string(c)+"-->")
	case ProcInst:
		if c.Data == "" {
			io.WriteString(w, "<?"+c.Target+"?>")
		} else {
			io.WriteString(w, "<?"+c.Target+" "+c.Data+"?>")
		}
	}
}

func (e *Element) PrettyPrint(w io.Writer, depth int) {
	indent := strings.Repeat("  ", depth)

	// Determine if we should print inline (simple content) or block (complex content)
	isComplex := false
	for _, c := range e.Children {
		if _, ok := c.(string); !ok {
			isComplex = true
			break
		}
	}

	io.WriteString(w, indent)
	e.writeStartTag(w)
	if len(e.Children) == 0 {
		io.WriteString(w, " />\n")
		return
	}
	io.WriteString(w, ">")

	if isComplex {
		io.WriteString(w, "\n")
		for _, c := range e.Children {
			switch child := c.(type) {
			case *Element:
				child.PrettyPrint(w, depth+1)
			case string:
				trimmed := strings.TrimSpace(child)
				if trimmed != "" {
					io.WriteString(w, strings.Repeat("  ", depth+1))
					xml.EscapeText(w, []byte(trimmed))
					io.WriteString(w, "\n")
				}
			default:
				io.WriteString(w, strings.Repeat("  ", depth+1))
				writeLeaf(w, child)
				io.WriteString(w, "\n")
			}
		}
		io.WriteString(w, indent)
	} else {
		// All children are strings
		for _, c := range e.Children {
			writeLeaf(w, c)
		}
	}

	io.WriteString(w, "</"+qualifiedName(e.Prefix, e.Name.Local)+">\n")
}

func (d *Document) String() string {
	var sb strings.Builder
	for _, n := range d.Prolog {
		writeLeaf(&sb, n)
	}
	if d.Root != nil {
		d.Root.writeTo(&sb)
	}
	for _, n := range d.Epilog {
		writeLeaf(&sb, n)
	}
	return sb.String()
}

// PrettyPrint writes the document indented, one node per line.
func (d *Document) PrettyPrint(w io.Writer) {
	for _, n := range d.Prolog {
		writeLeaf(w, n)
		io.WriteString(w, "\n")
	}
	if d.Root != nil {
		d.Root.PrettyPrint(w, 0)
	}
	for _, n := range d.Epilog {
		writeLeaf(w, n)
		io.WriteString(w, "\n")
	}
}
