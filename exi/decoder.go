package exi

import (
	"bytes"
	"fmt"
	"io"

	"github.com/clems4ever/exi-encoder/bitstream"
	"github.com/clems4ever/exi-encoder/compr"
	"github.com/clems4ever/exi-encoder/infoset"
)

// Decoder reads one EXI document event by event.
type Decoder struct {
	*session
	in *bitstream.Reader
	// structure is in, or the structure channel in compression mode
	structure *bitstream.Reader
	values    *valueFrames
}

// NewDecoder reads the header from r. opts apply when the stream carries
// no options document. In compression mode the whole input is read and
// its channels verified before NewDecoder returns.
func NewDecoder(r io.Reader, opts Options, sopts ...SessionOption) (*Decoder, error) {
	s := newSession(opts, sopts)
	if err := opts.validate(); err != nil {
		return nil, s.fail(err, ErrUnsupportedOption, 0)
	}
	d := &Decoder{session: s, in: bitstream.NewReader(r)}
	d.structure = d.in
	o, err := readHeader(d.in, opts)
	if err != nil {
		return nil, s.fail(err, ErrStreamUnderflow, d.in.Offset())
	}
	s.opts = o
	if o.Compression {
		if err := d.readChannels(); err != nil {
			return nil, s.fail(err, ErrCorruptCompressedBlock, d.in.Offset())
		}
	}
	s.log.WithFields(o.fields()).Debug("exi: decoder started")
	return d, nil
}

func (d *Decoder) readChannels() error {
	body, err := d.in.ReadRest()
	if err != nil {
		return err
	}
	dec, err := compr.Decompression(d.opts.Codec)
	if err != nil {
		return err
	}
	frames, err := compr.ReadChannels(body, dec)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("%w: no structure channel", ErrCorruptCompressedBlock)
	}
	d.channels = len(frames)
	d.structure = bitstream.NewReader(bytes.NewReader(frames[0]))
	d.values = newValueFrames(frames[1:])
	return nil
}

// Decode returns the next event. After EndDocument it returns io.EOF.
func (d *Decoder) Decode() (infoset.Event, error) {
	if d.err != nil {
		return infoset.Event{}, d.err
	}
	if d.stack.Ended() {
		return infoset.Event{}, io.EOF
	}
	ev, err := d.decode()
	if err != nil {
		return infoset.Event{}, d.fail(err, ErrStreamUnderflow, d.structure.Offset())
	}
	d.counts[ev.Kind]++
	if ev.Kind == infoset.KindEndDocument {
		if d.values != nil {
			if err := d.values.finish(); err != nil {
				return infoset.Event{}, d.fail(err, ErrCorruptCompressedBlock, d.structure.Offset())
			}
		}
		d.log.WithFields(d.summary()).Debug("exi: decoder finished")
	}
	return ev, nil
}

func (d *Decoder) decode() (infoset.Event, error) {
	top := d.stack.Top()
	p, err := d.stack.Decode(d.structure.ReadBits)
	if err != nil {
		return infoset.Event{}, err
	}
	ev := infoset.Event{Kind: p.Kind, Name: p.Name}
	switch p.Kind {
	case infoset.KindStartElement:
		if p.Wildcard {
			ev.Name, err = d.readQName()
		}
	case infoset.KindAttribute:
		if p.Wildcard {
			if ev.Name, err = d.readQName(); err != nil {
				return ev, err
			}
		}
		ev.Value, err = d.readValue(ev.Name)
	case infoset.KindCharacters:
		ev.Value, err = d.readValue(top.Name)
	case infoset.KindNamespace:
		err = d.readNamespace(&ev)
	case infoset.KindComment:
		ev.Value, err = d.structure.ReadString()
	case infoset.KindProcessingInstruction:
		if ev.Target, err = d.structure.ReadString(); err != nil {
			return ev, err
		}
		ev.Value, err = d.structure.ReadString()
	}
	if err != nil {
		return ev, err
	}

	var name infoset.QName
	if p.Kind == infoset.KindStartElement || p.Kind == infoset.KindAttribute {
		name = ev.Name
	}
	closed, err := d.stack.Commit(p, name)
	if err != nil {
		return ev, err
	}
	if closed != nil {
		ev.Name = closed.Name
	}
	return ev, nil
}

func (d *Decoder) readNamespace(ev *infoset.Event) error {
	uriID, uri, err := d.readURI()
	if err != nil {
		return err
	}
	ev.Name.URI = uri
	prefixes := d.table.Prefixes(uriID)
	ev.Prefix, err = d.readCompact(prefixes.Len(), prefixes.At, func(s string) {
		d.table.InternPrefix(uriID, s)
	})
	if err != nil {
		return err
	}
	ev.LocalElementNS, err = d.structure.ReadBool()
	return err
}

// readCompact reads a URI or prefix written by Encoder.writeCompact.
func (d *Decoder) readCompact(size int, at func(int) (string, bool), add func(string)) (string, error) {
	v, err := d.structure.ReadBits(bitstream.Width(size + 1))
	if err != nil {
		return "", err
	}
	if v == 0 {
		s, err := d.structure.ReadString()
		if err != nil {
			return "", err
		}
		add(s)
		return s, nil
	}
	s, ok := at(int(v) - 1)
	if !ok {
		return "", corrupt("string id %d out of %d", v-1, size)
	}
	return s, nil
}

func (d *Decoder) readURI() (int, string, error) {
	uris := d.table.URIs()
	id := -1
	uri, err := d.readCompact(uris.Len(), uris.At, func(s string) {
		id = d.table.AddURI(s)
	})
	if err != nil {
		return 0, "", err
	}
	if id < 0 {
		id, _ = uris.Lookup(uri)
	}
	return id, uri, nil
}

func (d *Decoder) readQName() (infoset.QName, error) {
	uriID, uri, err := d.readURI()
	if err != nil {
		return infoset.QName{}, err
	}
	r := d.structure
	n, err := r.ReadUint()
	if err != nil {
		return infoset.QName{}, err
	}
	if n > 0 {
		local, err := r.ReadChars(n - 1)
		if err != nil {
			return infoset.QName{}, err
		}
		d.table.InternLocalName(uriID, local)
		return infoset.QName{URI: uri, Local: local}, nil
	}
	locals := d.table.LocalNames(uriID)
	id, err := r.ReadBits(bitstream.Width(locals.Len()))
	if err != nil {
		return infoset.QName{}, err
	}
	local, ok := locals.At(int(id))
	if !ok {
		return infoset.QName{}, corrupt("local name id %d out of %d in %q", id, locals.Len(), uri)
	}
	return infoset.QName{URI: uri, Local: local}, nil
}

func (d *Decoder) readValue(scope infoset.QName) (string, error) {
	r := d.structure
	if d.values != nil {
		var err error
		if r, err = d.values.reader(scope); err != nil {
			return "", err
		}
	}
	n, err := r.ReadUint()
	if err != nil {
		return "", err
	}
	switch n {
	case 0:
		lp := d.table.LocalValues(scope)
		if lp == nil {
			return "", corrupt("local value reference for %s before any value", scope)
		}
		return readIndexed(r, lp.Len(), lp.At, "local value")
	case 1:
		gp := d.table.GlobalValues()
		return readIndexed(r, gp.Len(), gp.At, "global value")
	}
	v, err := r.ReadChars(n - 2)
	if err != nil {
		return "", err
	}
	d.table.AddValue(scope, v)
	return v, nil
}

func readIndexed(r *bitstream.Reader, size int, at func(int) (string, bool), what string) (string, error) {
	id, err := r.ReadBits(bitstream.Width(size))
	if err != nil {
		return "", err
	}
	s, ok := at(int(id))
	if !ok {
		return "", corrupt("%s id %d out of %d", what, id, size)
	}
	return s, nil
}

// Decode reads a whole document. The events end with EndDocument.
func Decode(r io.Reader, opts Options, sopts ...SessionOption) ([]infoset.Event, error) {
	d, err := NewDecoder(r, opts, sopts...)
	if err != nil {
		return nil, err
	}
	var events []infoset.Event
	for {
		ev, err := d.Decode()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}
