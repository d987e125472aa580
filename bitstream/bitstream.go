// Package bitstream packs and unpacks values at bit granularity, most
// significant bit first, and implements the EXI primitive datatypes
// (n-bit unsigned integers, booleans, unsigned integers and strings) on
// top of them.
//
// Writer and Reader are not safe for concurrent use. Their bit position
// only ever moves forward.
package bitstream

import (
	"errors"
	"math/bits"

	"golang.org/x/exp/constraints"
)

var (
	// ErrUnderflow is returned when a read needs more bits than the
	// input holds.
	ErrUnderflow = errors.New("bitstream: underflow")
	// ErrMalformed is returned when the bits read do not form a valid
	// primitive value (an unsigned integer that overflows 64 bits or a
	// code point outside the Unicode range).
	ErrMalformed = errors.New("bitstream: malformed value")
)

// MaxWidth is the widest n-bit value accepted by WriteBits and ReadBits.
const MaxWidth = 32

// Width returns the number of bits needed to distinguish n alternatives,
// ceil(log2(n)). It is 0 when there is at most one alternative.
func Width[T constraints.Integer](n T) uint8 {
	if n <= 1 {
		return 0
	}
	return uint8(bits.Len64(uint64(n - 1)))
}
