// Package grammar implements the EXI built-in (schema-less) grammars: the
// document grammar and one element grammar per open element. Element
// grammars learn productions as events occur so that later occurrences of
// the same event in the same element get shorter codes.
//
// Every element instance starts from a fresh grammar; nothing learned in
// one element is visible to a sibling with the same name.
package grammar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clems4ever/exi-encoder/bitstream"
	"github.com/clems4ever/exi-encoder/infoset"
)

var (
	// ErrUnexpectedEvent is returned when the current grammar has no
	// production for an event.
	ErrUnexpectedEvent = errors.New("grammar: unexpected event")
	// ErrInvalidCode is returned when a decoded event code selects no
	// production.
	ErrInvalidCode = errors.New("grammar: invalid event code")
)

// State names the grammar a context is currently in.
type State uint8

const (
	DocContent State = iota
	DocEnd
	StartTagContent
	ElementContent
	numStates
)

func (s State) String() string {
	switch s {
	case DocContent:
		return "DocContent"
	case DocEnd:
		return "DocEnd"
	case StartTagContent:
		return "StartTagContent"
	case ElementContent:
		return "ElementContent"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Production is one grammar alternative. Wildcard productions (SE(*),
// AT(*)) match any name; learned SE and AT productions carry one.
type Production struct {
	Kind     infoset.Kind
	Name     infoset.QName
	Wildcard bool
}

func (p Production) String() string {
	switch {
	case p.Wildcard:
		return p.Kind.String() + "(*)"
	case p.Kind == infoset.KindStartElement || p.Kind == infoset.KindAttribute:
		return p.Kind.String() + "(" + p.Name.String() + ")"
	default:
		return p.Kind.String()
	}
}

func (p Production) matches(kind infoset.Kind, name infoset.QName) bool {
	if p.Kind != kind {
		return false
	}
	if p.Wildcard {
		return true
	}
	if kind == infoset.KindStartElement || kind == infoset.KindAttribute {
		return p.Name == name
	}
	return true
}

// Code is a hierarchical event code of one to three parts. Each part is
// an n-bit value whose width depends on the number of alternatives at
// its level.
type Code struct {
	Parts  [3]uint32
	Widths [3]uint8
	Len    int
}

func (c Code) String() string {
	parts := make([]string, c.Len)
	for i := 0; i < c.Len; i++ {
		parts[i] = fmt.Sprintf("%d", c.Parts[i])
	}
	return strings.Join(parts, ".")
}

// Bits returns the number of bits the code occupies.
func (c Code) Bits() int {
	n := 0
	for i := 0; i < c.Len; i++ {
		n += int(c.Widths[i])
	}
	return n
}

type node struct {
	prod Production
	sub  []node
}

func leaf(k infoset.Kind) node {
	return node{prod: Production{Kind: k}}
}

func wildcard(k infoset.Kind) node {
	return node{prod: Production{Kind: k, Wildcard: true}}
}

var (
	misc = []node{leaf(infoset.KindComment), leaf(infoset.KindProcessingInstruction)}

	docContent = []node{
		wildcard(infoset.KindStartElement),
		leaf(infoset.KindEndDocument),
		{sub: misc},
	}
	docEnd = []node{
		leaf(infoset.KindEndDocument),
		{sub: misc},
	}
	startTagBuiltins = []node{
		leaf(infoset.KindEndElement),
		wildcard(infoset.KindAttribute),
		leaf(infoset.KindNamespace),
		wildcard(infoset.KindStartElement),
		leaf(infoset.KindCharacters),
		{sub: misc},
	}
	elementBuiltins = []node{
		leaf(infoset.KindEndElement),
		{sub: []node{
			wildcard(infoset.KindStartElement),
			leaf(infoset.KindCharacters),
			{sub: misc},
		}},
	}
)

// Context is the grammar state of the document or of one open element.
type Context struct {
	Name    infoset.QName
	state   State
	learned [numStates][]Production
}

// State reports the grammar the context is in.
func (c *Context) State() State {
	return c.state
}

// Learned returns the productions learned in state s, newest first.
func (c *Context) Learned(s State) []Production {
	return append([]Production(nil), c.learned[s]...)
}

func (c *Context) alternatives() []node {
	switch c.state {
	case DocContent:
		return docContent
	case DocEnd:
		return docEnd
	}
	learned := c.learned[c.state]
	alts := make([]node, 0, len(learned)+2)
	for _, p := range learned {
		alts = append(alts, node{prod: p})
	}
	if c.state == StartTagContent {
		return append(alts, node{sub: startTagBuiltins})
	}
	return append(alts, elementBuiltins...)
}

// Encode returns the event code for kind and name. Learned productions
// take precedence over the built-in ones.
func (c *Context) Encode(kind infoset.Kind, name infoset.QName) (Code, Production, error) {
	var code Code
	if p, ok := find(c.alternatives(), kind, name, &code); ok {
		return code, p, nil
	}
	return Code{}, Production{}, fmt.Errorf("%w: %s in %s", ErrUnexpectedEvent, kind, c.state)
}

func find(alts []node, kind infoset.Kind, name infoset.QName, code *Code) (Production, bool) {
	level := code.Len
	if level == len(code.Parts) {
		return Production{}, false
	}
	for i, n := range alts {
		code.Parts[level] = uint32(i)
		code.Widths[level] = bitstream.Width(len(alts))
		code.Len = level + 1
		if n.sub != nil {
			if p, ok := find(n.sub, kind, name, code); ok {
				return p, true
			}
			code.Len = level + 1
			continue
		}
		if n.prod.matches(kind, name) {
			return n.prod, true
		}
	}
	code.Len = level
	return Production{}, false
}

// Decode reads an event code part by part through read and returns the
// production it selects.
func (c *Context) Decode(read func(width uint8) (uint32, error)) (Production, error) {
	alts := c.alternatives()
	for {
		v, err := read(bitstream.Width(len(alts)))
		if err != nil {
			return Production{}, err
		}
		if int(v) >= len(alts) {
			return Production{}, fmt.Errorf("%w: %d of %d in %s", ErrInvalidCode, v, len(alts), c.state)
		}
		n := alts[v]
		if n.sub == nil {
			return n.prod, nil
		}
		alts = n.sub
	}
}

// Learn adds a production for p to the current grammar. Learning a
// production that is already present is a no-op.
func (c *Context) Learn(p Production) {
	if c.state != StartTagContent && c.state != ElementContent {
		return
	}
	switch p.Kind {
	case infoset.KindStartElement, infoset.KindAttribute:
		if p.Kind == infoset.KindAttribute && c.state != StartTagContent {
			return
		}
	case infoset.KindCharacters:
		p.Name = infoset.QName{}
	case infoset.KindEndElement:
		// EE already has a first-level code in ElementContent
		if c.state == ElementContent {
			return
		}
		p.Name = infoset.QName{}
	default:
		return
	}
	p.Wildcard = false
	for _, q := range c.learned[c.state] {
		if q == p {
			return
		}
	}
	c.learned[c.state] = append([]Production{p}, c.learned[c.state]...)
}

func (c *Context) advance(kind infoset.Kind) {
	switch c.state {
	case DocContent:
		if kind == infoset.KindStartElement {
			c.state = DocEnd
		}
	case StartTagContent:
		switch kind {
		case infoset.KindStartElement, infoset.KindCharacters,
			infoset.KindComment, infoset.KindProcessingInstruction:
			c.state = ElementContent
		}
	}
}
