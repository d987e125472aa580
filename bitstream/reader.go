package bitstream

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/icza/bitio"
)

// Reader mirrors Writer bit for bit.
type Reader struct {
	br   *bitio.Reader
	bits uint64
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bitio.NewReader(r)}
}

func (r *Reader) underflow(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w at bit %d", ErrUnderflow, r.bits)
	}
	return err
}

// ReadBits reads a width-bit unsigned value, most significant bit first.
func (r *Reader) ReadBits(width uint8) (uint32, error) {
	if width > MaxWidth {
		return 0, fmt.Errorf("bitstream: width %d exceeds %d", width, MaxWidth)
	}
	if width == 0 {
		return 0, nil
	}
	v, err := r.br.ReadBits(width)
	if err != nil {
		return 0, r.underflow(err)
	}
	r.bits += uint64(width)
	return uint32(v), nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.br.ReadBool()
	if err != nil {
		return false, r.underflow(err)
	}
	r.bits++
	return b, nil
}

// ReadBytes reads exactly n octets.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	p := make([]byte, n)
	got, err := io.ReadFull(r.br, p)
	r.bits += 8 * uint64(got)
	if err != nil {
		return nil, r.underflow(err)
	}
	return p, nil
}

// ReadRest aligns the stream and returns every remaining octet.
func (r *Reader) ReadRest() ([]byte, error) {
	r.Align()
	p, err := io.ReadAll(r.br)
	r.bits += 8 * uint64(len(p))
	return p, err
}

// ReadUint reads an EXI Unsigned Integer.
func (r *Reader) ReadUint() (uint64, error) {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		b, err := r.ReadBits(8)
		if err != nil {
			return 0, err
		}
		if shift == 63 && b&0x7e != 0 || shift > 63 {
			return 0, fmt.Errorf("%w: unsigned integer overflows 64 bits at bit %d", ErrMalformed, r.bits)
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

// ReadString reads an EXI String.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint()
	if err != nil {
		return "", err
	}
	return r.ReadChars(n)
}

// ReadChars reads n code points.
func (r *Reader) ReadChars(n uint64) (string, error) {
	var sb strings.Builder
	for i := uint64(0); i < n; i++ {
		c, err := r.ReadUint()
		if err != nil {
			return "", err
		}
		if c > utf8.MaxRune {
			return "", fmt.Errorf("%w: code point %#x at bit %d", ErrMalformed, c, r.bits)
		}
		sb.WriteRune(rune(c))
	}
	return sb.String(), nil
}

// Align skips to the next byte boundary.
func (r *Reader) Align() {
	r.bits += uint64(r.br.Align())
}

// BitsRead returns the number of bits consumed so far.
func (r *Reader) BitsRead() uint64 {
	return r.bits
}

// Offset returns the index of the byte holding the next unread bit.
func (r *Reader) Offset() int64 {
	return int64(r.bits / 8)
}
