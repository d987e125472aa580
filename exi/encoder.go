package exi

import (
	"io"
	"unicode/utf8"

	"github.com/clems4ever/exi-encoder/bitstream"
	"github.com/clems4ever/exi-encoder/compr"
	"github.com/clems4ever/exi-encoder/grammar"
	"github.com/clems4ever/exi-encoder/infoset"
	"github.com/clems4ever/exi-encoder/stringtable"
)

// Encoder writes one EXI document. Events are pushed with Encode; the
// stream is complete once EndDocument has been encoded. Names and
// values must be valid UTF-8.
type Encoder struct {
	*session
	out *bitstream.Writer
	// structure is out, or the structure channel in compression mode
	structure *bitstream.Writer
	main      *channel
	values    *valueChannels
	comp      compr.Compressor
}

// NewEncoder validates opts and writes the header to w. Unsupported
// options fail before anything is written.
func NewEncoder(w io.Writer, opts Options, sopts ...SessionOption) (*Encoder, error) {
	s := newSession(opts, sopts)
	if err := opts.validate(); err != nil {
		return nil, s.fail(err, ErrUnsupportedOption, 0)
	}
	e := &Encoder{session: s, out: bitstream.NewWriter(w)}
	e.structure = e.out
	if opts.Compression {
		c, err := compr.Compression(opts.Codec)
		if err != nil {
			return nil, s.fail(err, ErrUnsupportedOption, 0)
		}
		e.comp = c
		e.main = newChannel()
		e.structure = e.main.w
		e.values = newValueChannels()
	}
	if err := writeHeader(e.out, opts); err != nil {
		return nil, s.fail(err, nil, e.out.Offset())
	}
	if opts.Compression {
		if err := e.out.Align(); err != nil {
			return nil, s.fail(err, nil, e.out.Offset())
		}
	}
	s.log.WithFields(opts.fields()).Debug("exi: encoder started")
	return e, nil
}

// Encode appends ev to the stream. Encoding EndDocument flushes the
// stream; any event after it fails.
func (e *Encoder) Encode(ev infoset.Event) error {
	if e.err != nil {
		return e.err
	}
	if err := e.encode(ev); err != nil {
		return e.fail(err, nil, e.structure.Offset())
	}
	e.counts[ev.Kind]++
	if ev.Kind == infoset.KindEndDocument {
		return e.finish()
	}
	return nil
}

// Close reports whether the document was completed.
func (e *Encoder) Close() error {
	if e.err != nil {
		return e.err
	}
	if !e.stack.Ended() {
		return e.fail(unexpected("document closed with %d open elements and no end of document", e.stack.Depth()), nil, e.structure.Offset())
	}
	return nil
}

func (e *Encoder) encode(ev infoset.Event) error {
	top := e.stack.Top()
	var name infoset.QName
	switch ev.Kind {
	case infoset.KindStartElement, infoset.KindAttribute:
		name = ev.Name
	case infoset.KindEndElement:
		if e.stack.Depth() > 0 && ev.Name != (infoset.QName{}) && ev.Name != top.Name {
			return unexpected("end of %s while %s is open", ev.Name, top.Name)
		}
	case infoset.KindCharacters, infoset.KindNamespace, infoset.KindComment,
		infoset.KindProcessingInstruction, infoset.KindEndDocument:
	default:
		return unexpected("event kind %s", ev.Kind)
	}
	if err := checkText(ev); err != nil {
		return err
	}

	code, p, err := e.stack.Encode(ev.Kind, name)
	if err != nil {
		return err
	}
	for i := 0; i < code.Len; i++ {
		if err := e.structure.WriteBits(code.Parts[i], code.Widths[i]); err != nil {
			return err
		}
	}
	if err := e.encodeContent(ev, p, top); err != nil {
		return err
	}
	_, err = e.stack.Commit(p, name)
	return err
}

// checkText rejects strings that are not valid UTF-8. The character
// codec writes code points, so such bytes could not be decoded back.
func checkText(ev infoset.Event) error {
	for _, f := range []struct{ what, s string }{
		{"namespace", ev.Name.URI},
		{"local name", ev.Name.Local},
		{"prefix", ev.Prefix},
		{"target", ev.Target},
		{"value", ev.Value},
	} {
		if !utf8.ValidString(f.s) {
			return unexpected("invalid UTF-8 in %s %q of %s", f.what, f.s, ev.Kind)
		}
	}
	return nil
}

func (e *Encoder) encodeContent(ev infoset.Event, p grammar.Production, top *grammar.Context) error {
	w := e.structure
	switch ev.Kind {
	case infoset.KindStartElement:
		if p.Wildcard {
			return e.writeQName(ev.Name)
		}
	case infoset.KindAttribute:
		if p.Wildcard {
			if err := e.writeQName(ev.Name); err != nil {
				return err
			}
		}
		return e.writeValue(ev.Name, ev.Value)
	case infoset.KindCharacters:
		return e.writeValue(top.Name, ev.Value)
	case infoset.KindNamespace:
		uriID, err := e.writeURI(ev.Name.URI)
		if err != nil {
			return err
		}
		if err := e.writeCompact(e.table.InternPrefix(uriID, ev.Prefix), ev.Prefix); err != nil {
			return err
		}
		return w.WriteBool(ev.LocalElementNS)
	case infoset.KindComment:
		return w.WriteString(ev.Value)
	case infoset.KindProcessingInstruction:
		if err := w.WriteString(ev.Target); err != nil {
			return err
		}
		return w.WriteString(ev.Value)
	}
	return nil
}

// writeCompact writes a URI or prefix: the index plus one on a hit, 0
// and the literal string on a miss.
func (e *Encoder) writeCompact(ref stringtable.Ref, s string) error {
	width := bitstream.Width(ref.Size + 1)
	if ref.Hit {
		return e.structure.WriteBits(uint32(ref.Index+1), width)
	}
	if err := e.structure.WriteBits(0, width); err != nil {
		return err
	}
	return e.structure.WriteString(s)
}

func (e *Encoder) writeURI(uri string) (int, error) {
	ref := e.table.InternURI(uri)
	return ref.Index, e.writeCompact(ref, uri)
}

func (e *Encoder) writeQName(q infoset.QName) error {
	uriID, err := e.writeURI(q.URI)
	if err != nil {
		return err
	}
	w := e.structure
	ref := e.table.InternLocalName(uriID, q.Local)
	if ref.Hit {
		if err := w.WriteUint(0); err != nil {
			return err
		}
		return w.WriteBits(uint32(ref.Index), bitstream.Width(ref.Size))
	}
	if err := w.WriteUint(uint64(utf8.RuneCountInString(q.Local)) + 1); err != nil {
		return err
	}
	return w.WriteChars(q.Local)
}

// writeValue writes an attribute or character value through the value
// partitions of scope.
func (e *Encoder) writeValue(scope infoset.QName, v string) error {
	w := e.structure
	if e.values != nil {
		w = e.values.writer(scope)
	}
	ref := e.table.InternValue(scope, v)
	switch ref.Hit {
	case stringtable.ValueLocal:
		if err := w.WriteUint(0); err != nil {
			return err
		}
		return w.WriteBits(uint32(ref.Index), bitstream.Width(ref.LocalSize))
	case stringtable.ValueGlobal:
		if err := w.WriteUint(1); err != nil {
			return err
		}
		return w.WriteBits(uint32(ref.Index), bitstream.Width(ref.GlobalSize))
	}
	if err := w.WriteUint(uint64(utf8.RuneCountInString(v)) + 2); err != nil {
		return err
	}
	return w.WriteChars(v)
}

// finish writes the compressed channels, if any, and flushes the stream.
func (e *Encoder) finish() error {
	if e.values != nil {
		channels, err := e.values.flush(e.main)
		if err != nil {
			return e.fail(err, nil, e.out.Offset())
		}
		e.channels = len(channels)
		body, err := compr.AppendChannels(nil, e.comp, channels)
		if err != nil {
			return e.fail(err, nil, e.out.Offset())
		}
		if err := e.out.WriteBytes(body); err != nil {
			return e.fail(err, nil, e.out.Offset())
		}
	}
	if err := e.out.Close(); err != nil {
		return e.fail(err, nil, e.out.Offset())
	}
	e.log.WithFields(e.summary()).WithField("bytes", e.out.Offset()).Debug("exi: encoder finished")
	return nil
}

// Encode writes events as one EXI document. events must end with
// EndDocument.
func Encode(w io.Writer, events []infoset.Event, opts Options, sopts ...SessionOption) error {
	e, err := NewEncoder(w, opts, sopts...)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := e.Encode(ev); err != nil {
			return err
		}
	}
	return e.Close()
}
