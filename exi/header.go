package exi

import (
	"fmt"

	"github.com/clems4ever/exi-encoder/bitstream"
	"github.com/clems4ever/exi-encoder/compr"
)

var cookie = [4]byte{'$', 'E', 'X', 'I'}

const (
	distinguishingBits = 0b10
	// presence bit: an options document follows the header
	optionsPresent = 0x20
	// preview flag and format version; 0 is final version 1
	versionMask = 0x1f
)

// writeHeader writes the optional cookie, the header byte and, when
// IncludeSchemaID is set, the options document.
func writeHeader(w *bitstream.Writer, o Options) error {
	if o.Cookie {
		if err := w.WriteBytes(cookie[:]); err != nil {
			return err
		}
	}
	if err := w.WriteBits(distinguishingBits, 2); err != nil {
		return err
	}
	if err := w.WriteBool(o.IncludeSchemaID); err != nil {
		return err
	}
	if err := w.WriteBits(0, 5); err != nil {
		return err
	}
	if !o.IncludeSchemaID {
		return nil
	}
	return writeOptionsDocument(w, o)
}

func writeOptionsDocument(w *bitstream.Writer, o Options) error {
	if err := w.WriteBool(o.Compression); err != nil {
		return err
	}
	if err := w.WriteBits(uint32(o.Codec), 2); err != nil {
		return err
	}
	if err := w.WriteBool(o.PreserveLexicalValues); err != nil {
		return err
	}
	return w.WriteString(o.SchemaID)
}

// readHeader reads what writeHeader wrote. The options document, when
// present, replaces o.
func readHeader(r *bitstream.Reader, o Options) (Options, error) {
	b, err := r.ReadBits(8)
	if err != nil {
		return o, err
	}
	hasCookie := b == uint32(cookie[0])
	if hasCookie {
		rest, err := r.ReadBytes(len(cookie) - 1)
		if err != nil {
			return o, err
		}
		if string(rest) != string(cookie[1:]) {
			return o, corrupt("bad cookie %q", "$"+string(rest))
		}
		if b, err = r.ReadBits(8); err != nil {
			return o, err
		}
	}
	if b>>6 != distinguishingBits {
		return o, corrupt("not an EXI stream (header %#02x)", b)
	}
	if b&versionMask != 0 {
		return o, corrupt("unsupported format version (header %#02x)", b)
	}
	if b&optionsPresent == 0 {
		o.IncludeSchemaID = false
		o.Cookie = hasCookie
		return o, nil
	}
	doc, err := readOptionsDocument(r)
	doc.Cookie = hasCookie
	return doc, err
}

func readOptionsDocument(r *bitstream.Reader) (Options, error) {
	o := Options{IncludeSchemaID: true}
	var err error
	if o.Compression, err = r.ReadBool(); err != nil {
		return o, err
	}
	codec, err := r.ReadBits(2)
	if err != nil {
		return o, err
	}
	o.Codec = compr.Algo(codec)
	if !o.Codec.Valid() {
		return o, corrupt("options document names codec %d", codec)
	}
	if o.PreserveLexicalValues, err = r.ReadBool(); err != nil {
		return o, err
	}
	if o.SchemaID, err = r.ReadString(); err != nil {
		return o, err
	}
	if o.SchemaID != "" {
		return o, fmt.Errorf("%w: stream was encoded against schema %q", ErrUnsupportedOption, o.SchemaID)
	}
	return o, nil
}
