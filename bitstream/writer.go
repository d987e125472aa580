package bitstream

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/icza/bitio"
)

// Writer appends bit-packed values to an io.Writer. Partial bytes are
// buffered until Align or Close.
type Writer struct {
	bw   *bitio.Writer
	bits uint64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bitio.NewWriter(w)}
}

// WriteBits writes the width lowest bits of v, most significant first.
// A width of 0 writes nothing.
func (w *Writer) WriteBits(v uint32, width uint8) error {
	if width > MaxWidth {
		return fmt.Errorf("bitstream: width %d exceeds %d", width, MaxWidth)
	}
	if width == 0 {
		return nil
	}
	if err := w.bw.WriteBits(uint64(v)&(1<<width-1), width); err != nil {
		return err
	}
	w.bits += uint64(width)
	return nil
}

func (w *Writer) WriteBool(b bool) error {
	if err := w.bw.WriteBool(b); err != nil {
		return err
	}
	w.bits++
	return nil
}

// WriteBytes writes p as whole octets. It does not align first.
func (w *Writer) WriteBytes(p []byte) error {
	n, err := w.bw.Write(p)
	w.bits += 8 * uint64(n)
	return err
}

// WriteUint writes v as an EXI Unsigned Integer: 7-bit groups, least
// significant group first, with the high bit of each octet set when more
// octets follow.
func (w *Writer) WriteUint(v uint64) error {
	for {
		b := uint32(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if err := w.WriteBits(b, 8); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// WriteString writes s as an EXI String: its length in code points
// followed by the code points.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteUint(uint64(utf8.RuneCountInString(s))); err != nil {
		return err
	}
	return w.WriteChars(s)
}

// WriteChars writes the code points of s without a length prefix.
// Invalid UTF-8 bytes are written as U+FFFD.
func (w *Writer) WriteChars(s string) error {
	for _, r := range s {
		if err := w.WriteUint(uint64(r)); err != nil {
			return err
		}
	}
	return nil
}

// Align pads the current byte with zero bits.
func (w *Writer) Align() error {
	skipped, err := w.bw.Align()
	w.bits += uint64(skipped)
	return err
}

// Close aligns the stream and flushes buffered bytes. It does not close
// the underlying writer.
func (w *Writer) Close() error {
	if err := w.Align(); err != nil {
		return err
	}
	return w.bw.Close()
}

// BitsWritten returns the number of bits written so far, padding included.
func (w *Writer) BitsWritten() uint64 {
	return w.bits
}

// Offset returns the index of the byte the next bit goes into.
func (w *Writer) Offset() int64 {
	return int64(w.bits / 8)
}
