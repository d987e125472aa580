package xmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clems4ever/exi-encoder/infoset"
)

func TestParseHTML(t *testing.T) {
	const svg = "http://www.w3.org/2000/svg"
	input := `<!DOCTYPE html><html><body><p>hi<br></p><svg><circle r="1"/></svg></body></html>`

	events, err := ParseHTML(strings.NewReader(input), Options{})
	require.NoError(t, err)

	expected := []infoset.Event{
		infoset.StartElement("", "html"),
		infoset.StartElement("", "head"),
		infoset.EndElement("", "head"),
		infoset.StartElement("", "body"),
		infoset.StartElement("", "p"),
		infoset.Characters("hi"),
		infoset.StartElement("", "br"),
		infoset.EndElement("", "br"),
		infoset.EndElement("", "p"),
		infoset.StartElement(svg, "svg"),
		infoset.Namespace("", svg, true),
		infoset.StartElement(svg, "circle"),
		infoset.Attribute("", "r", "1"),
		infoset.EndElement(svg, "circle"),
		infoset.EndElement(svg, "svg"),
		infoset.EndElement("", "body"),
		infoset.EndElement("", "html"),
		infoset.EndDocument(),
	}
	assert.Equal(t, expected, events)

	doc, err := Build(events)
	require.NoError(t, err)
	assert.Equal(t, `<html><head></head><body><p>hi<br></br></p><svg xmlns="http://www.w3.org/2000/svg"><circle r="1"></circle></svg></body></html>`, doc.String())
}
