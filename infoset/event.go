// Package infoset defines the XML infoset events exchanged between an XML
// front-end and the EXI codec.
package infoset

import "fmt"

// Kind identifies the structural token carried by an Event.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindStartElement
	KindEndElement
	KindAttribute
	KindCharacters
	KindNamespace
	KindComment
	KindProcessingInstruction
	KindEndDocument
)

func (k Kind) String() string {
	switch k {
	case KindStartElement:
		return "SE"
	case KindEndElement:
		return "EE"
	case KindAttribute:
		return "AT"
	case KindCharacters:
		return "CH"
	case KindNamespace:
		return "NS"
	case KindComment:
		return "CM"
	case KindProcessingInstruction:
		return "PI"
	case KindEndDocument:
		return "ED"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// QName is a namespace URI plus local name pair.
type QName struct {
	URI   string
	Local string
}

func (q QName) String() string {
	if q.URI == "" {
		return q.Local
	}
	return "{" + q.URI + "}" + q.Local
}

// Event is one structural token of a document, in document order.
//
// Field use depends on Kind:
//
//	SE, EE     Name
//	AT         Name, Value
//	CH, CM     Value
//	NS         Name.URI (namespace), Prefix, LocalElementNS
//	PI         Target, Value (data)
//	ED         nothing
type Event struct {
	Kind   Kind
	Name   QName
	Value  string
	Prefix string
	// LocalElementNS marks the namespace declaration whose prefix is
	// used by the element that carries it.
	LocalElementNS bool
	Target         string
}

func (e Event) String() string {
	switch e.Kind {
	case KindStartElement, KindEndElement:
		return e.Kind.String() + " " + e.Name.String()
	case KindAttribute:
		return fmt.Sprintf("AT %s=%q", e.Name, e.Value)
	case KindCharacters, KindComment:
		return fmt.Sprintf("%s %q", e.Kind, e.Value)
	case KindNamespace:
		return fmt.Sprintf("NS %s=%q", e.Prefix, e.Name.URI)
	case KindProcessingInstruction:
		return fmt.Sprintf("PI %s %q", e.Target, e.Value)
	default:
		return e.Kind.String()
	}
}

func StartElement(uri, local string) Event {
	return Event{Kind: KindStartElement, Name: QName{URI: uri, Local: local}}
}

func EndElement(uri, local string) Event {
	return Event{Kind: KindEndElement, Name: QName{URI: uri, Local: local}}
}

func Attribute(uri, local, value string) Event {
	return Event{Kind: KindAttribute, Name: QName{URI: uri, Local: local}, Value: value}
}

func Characters(value string) Event {
	return Event{Kind: KindCharacters, Value: value}
}

// Namespace declares prefix for uri on the element being started.
func Namespace(prefix, uri string, localElementNS bool) Event {
	return Event{Kind: KindNamespace, Prefix: prefix, Name: QName{URI: uri}, LocalElementNS: localElementNS}
}

func Comment(text string) Event {
	return Event{Kind: KindComment, Value: text}
}

func ProcessingInstruction(target, data string) Event {
	return Event{Kind: KindProcessingInstruction, Target: target, Value: data}
}

func EndDocument() Event {
	return Event{Kind: KindEndDocument}
}
