package compr

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dchest/siphash"
)

// ErrCorrupt is returned when a frame cannot be parsed, decompressed or
// fails its checksum.
var ErrCorrupt = errors.New("compr: corrupt block")

// MaxRawSize bounds the decompressed size a frame may declare.
const MaxRawSize = 1 << 30

const (
	sipK0 = 0x6578692d636f6d70
	sipK1 = 0x7265737365642d31

	checksumSize = 8
)

// Checksum returns the SipHash-2-4 of raw used to verify frames.
func Checksum(raw []byte) uint64 {
	return siphash.Hash(sipK0, sipK1, raw)
}

// AppendFrame compresses raw with c and appends the frame to dst:
//
//	uvarint raw length | uvarint payload length | checksum (8 bytes, big endian) | payload
//
// A uvarint has the same layout as an EXI Unsigned Integer.
func AppendFrame(dst []byte, c Compressor, raw []byte) ([]byte, error) {
	payload, err := c.Compress(raw, nil)
	if err != nil {
		return nil, err
	}
	dst = binary.AppendUvarint(dst, uint64(len(raw)))
	dst = binary.AppendUvarint(dst, uint64(len(payload)))
	dst = binary.BigEndian.AppendUint64(dst, Checksum(raw))
	return append(dst, payload...), nil
}

// ReadFrame decodes the frame at the start of src and returns the raw
// bytes and the remainder of src.
func ReadFrame(src []byte, d Decompressor) (raw, rest []byte, err error) {
	rawLen, n := binary.Uvarint(src)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: bad raw length", ErrCorrupt)
	}
	src = src[n:]
	payloadLen, n := binary.Uvarint(src)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: bad payload length", ErrCorrupt)
	}
	src = src[n:]
	if rawLen > MaxRawSize {
		return nil, nil, fmt.Errorf("%w: raw length %d exceeds %d", ErrCorrupt, rawLen, MaxRawSize)
	}
	if uint64(len(src)) < checksumSize || uint64(len(src)-checksumSize) < payloadLen {
		return nil, nil, fmt.Errorf("%w: frame of %d bytes truncated to %d", ErrCorrupt, payloadLen, len(src))
	}
	sum := binary.BigEndian.Uint64(src)
	src = src[checksumSize:]
	payload, rest := src[:payloadLen], src[payloadLen:]
	if limit := d.MaxDecodedLen(payload); rawLen > limit {
		return nil, nil, fmt.Errorf("%w: raw length %d from %d bytes of %s exceeds %d", ErrCorrupt, rawLen, payloadLen, d.Name(), limit)
	}

	raw = make([]byte, rawLen)
	if err := d.Decompress(payload, raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if Checksum(raw) != sum {
		return nil, nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return raw, rest, nil
}

// AppendChannels appends a uvarint channel count followed by one frame
// per channel, in order.
func AppendChannels(dst []byte, c Compressor, channels [][]byte) ([]byte, error) {
	dst = binary.AppendUvarint(dst, uint64(len(channels)))
	for _, ch := range channels {
		var err error
		if dst, err = AppendFrame(dst, c, ch); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// ReadChannels is the inverse of AppendChannels. Bytes left after the
// last frame are an error.
func ReadChannels(src []byte, d Decompressor) ([][]byte, error) {
	count, n := binary.Uvarint(src)
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad channel count", ErrCorrupt)
	}
	src = src[n:]
	// every frame needs at least two length bytes and the checksum
	if count > uint64(len(src)/(checksumSize+2)) {
		return nil, fmt.Errorf("%w: %d channels in %d bytes", ErrCorrupt, count, len(src))
	}
	channels := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		raw, rest, err := ReadFrame(src, d)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		channels = append(channels, raw)
		src = rest
	}
	if len(src) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(src))
	}
	return channels, nil
}
