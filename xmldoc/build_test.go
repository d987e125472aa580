package xmldoc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clems4ever/exi-encoder/infoset"
)

func TestElement_String(t *testing.T) {
	el := &Element{
		Name: infoset.QName{Local: "Div"},
		Attributes: []Attr{
			{Name: infoset.QName{Local: "class"}, Value: "a<b"},
		},
		Children: []interface{}{
			"Text",
			&Element{Name: infoset.QName{Local: "Span"}, Children: []interface{}{"More Text"}},
			Comment("c"),
		},
	}

	expected := `<Div class="a&lt;b">Text<Span>More Text</Span><!--c--></Div>`
	if got := el.String(); got != expected {
		t.Errorf("String() mismatch:\nExpected: %s\nGot:      %s", expected, got)
	}
}

func TestElement_PrettyPrint(t *testing.T) {
	el := &Element{
		Name:       infoset.QName{URI: "urn:x", Local: "Div"},
		Prefix:     "x",
		Namespaces: []Namespace{{Prefix: "x", URI: "urn:x"}},
		Attributes: []Attr{
			{Name: infoset.QName{Local: "id"}, Value: "main"},
		},
		Children: []interface{}{
			&Element{Name: infoset.QName{Local: "P"}, Children: []interface{}{"Hello"}},
			&Element{Name: infoset.QName{Local: "Br"}},
			ProcInst{Target: "pi", Data: "go"},
		},
	}

	var buf bytes.Buffer
	el.PrettyPrint(&buf, 0)

	expected := `<x:Div xmlns:x="urn:x" id="main">
  <P>Hello</P>
  <Br />
  <?pi go?>
</x:Div>
`
	if got := buf.String(); got != expected {
		t.Errorf("PrettyPrint() mismatch:\nExpected:\n%s\nGot:\n%s", expected, got)
	}
}

func TestBuild_ParsedDocument(t *testing.T) {
	events, err := Parse(strings.NewReader(sampleXML), Options{})
	require.NoError(t, err)

	doc, err := Build(events)
	require.NoError(t, err)
	assert.Equal(t, `<!-- head --><r xmlns="urn:d" xmlns:p="urn:p" p:id="7" plain="x"><p:c>t &amp; u</p:c><e></e></r><?done?>`, doc.String())

	again, err := Parse(strings.NewReader(doc.String()), Options{})
	require.NoError(t, err)
	assert.Equal(t, events, again)
}

func TestBuild_SynthesizesDeclarations(t *testing.T) {
	doc, err := Build([]infoset.Event{
		infoset.StartElement("urn:x", "a"),
		infoset.Attribute("urn:y", "k", "v"),
		infoset.StartElement("", "b"),
		infoset.Attribute("http://www.w3.org/XML/1998/namespace", "lang", "en"),
		infoset.EndElement("", "b"),
		infoset.EndElement("urn:x", "a"),
		infoset.EndDocument(),
	})
	require.NoError(t, err)
	assert.Equal(t, `<a xmlns="urn:x" xmlns:ns1="urn:y" ns1:k="v"><b xmlns="" xml:lang="en"></b></a>`, doc.String())
}

func TestBuild_MergesCharacters(t *testing.T) {
	doc, err := Build([]infoset.Event{
		infoset.StartElement("", "a"),
		infoset.Characters("x"),
		infoset.Characters("y"),
		infoset.EndElement("", "a"),
		infoset.EndDocument(),
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"xy"}, doc.Root.Children)
}

func TestBuild_Errors(t *testing.T) {
	se := infoset.StartElement("", "a")
	ee := infoset.EndElement("", "a")
	tests := map[string][]infoset.Event{
		"second root":           {se, ee, se, ee, infoset.EndDocument()},
		"attribute after child": {se, se, ee, infoset.Attribute("", "x", "1"), ee, infoset.EndDocument()},
		"characters at top":     {infoset.Characters("x"), infoset.EndDocument()},
		"end without start":     {ee, infoset.EndDocument()},
		"open at end":           {se, infoset.EndDocument()},
		"no end document":       {se},
	}
	for name, events := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Build(events)
			assert.Error(t, err)
		})
	}
}
