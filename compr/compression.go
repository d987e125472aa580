// Package compr wraps the block compressors used by EXI compression
// mode behind a small interface, and frames compressed channels with
// their raw length and a checksum.
package compr

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Algo selects a block compression algorithm.
type Algo uint8

const (
	// Deflate is raw DEFLATE (RFC 1951), the EXI default.
	Deflate Algo = iota
	Zstd
	S2
	numAlgos
)

func (a Algo) String() string {
	switch a {
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	case S2:
		return "s2"
	default:
		return fmt.Sprintf("Algo(%d)", uint8(a))
	}
}

// Valid reports whether a names a known algorithm.
func (a Algo) Valid() bool {
	return a < numAlgos
}

func (a Algo) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("compr: unknown algorithm %d", uint8(a))
	}
	return []byte(a.String()), nil
}

func (a *Algo) UnmarshalText(text []byte) error {
	v, err := ParseAlgo(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAlgo returns the algorithm called name.
func ParseAlgo(name string) (Algo, error) {
	for a := Algo(0); a < numAlgos; a++ {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("compr: unknown algorithm %q", name)
}

// Compressor compresses whole blocks.
type Compressor interface {
	// Name is the name of the compression algorithm.
	Name() string
	// Compress appends the compressed contents of src to dst and
	// returns the result.
	Compress(src, dst []byte) ([]byte, error)
}

// Decompressor is the inverse of a Compressor.
type Decompressor interface {
	// Name is the name of the compression algorithm.
	Name() string
	// Decompress decompresses src into dst, which must be exactly the
	// size of the decompressed data. It is safe for concurrent use.
	Decompress(src, dst []byte) error
	// MaxDecodedLen returns an upper bound on the decompressed size of
	// src, read from the stream headers where the format has them.
	MaxDecodedLen(src []byte) uint64
}

// maxDeflateRatio is the best ratio DEFLATE can reach: a 258 byte match
// coded in two bits.
const maxDeflateRatio = 1032

// Compression returns the compressor for a.
func Compression(a Algo) (Compressor, error) {
	switch a {
	case Deflate:
		return deflateCompressor{}, nil
	case Zstd:
		enc, _, err := zstdCodecs()
		if err != nil {
			return nil, err
		}
		return zstdCompressor{enc}, nil
	case S2:
		return s2Compressor{}, nil
	default:
		return nil, fmt.Errorf("compr: unknown algorithm %s", a)
	}
}

// Decompression returns the decompressor for a.
func Decompression(a Algo) (Decompressor, error) {
	switch a {
	case Deflate:
		return deflateCompressor{}, nil
	case Zstd:
		_, dec, err := zstdCodecs()
		if err != nil {
			return nil, err
		}
		return (*zstdDecompressor)(dec), nil
	case S2:
		return s2Compressor{}, nil
	default:
		return nil, fmt.Errorf("compr: unknown algorithm %s", a)
	}
}

// deflate writers and readers are checked out of these pools for the
// duration of one block and returned afterwards; a pooled instance is
// never used by two sessions at once.
var (
	flateWriters = sync.Pool{
		New: func() any {
			w, err := flate.NewWriter(io.Discard, flate.DefaultCompression)
			if err != nil {
				panic(err)
			}
			return w
		},
	}
	flateReaders = sync.Pool{
		New: func() any { return flate.NewReader(bytes.NewReader(nil)) },
	}
)

type deflateCompressor struct{}

func (deflateCompressor) Name() string { return "deflate" }

func (deflateCompressor) Compress(src, dst []byte) ([]byte, error) {
	fw := flateWriters.Get().(*flate.Writer)
	defer func() {
		fw.Reset(io.Discard)
		flateWriters.Put(fw)
	}()
	buf := bytes.NewBuffer(dst)
	fw.Reset(buf)
	if _, err := fw.Write(src); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return buf.Bytes(), nil
}

func (deflateCompressor) Decompress(src, dst []byte) error {
	fr := flateReaders.Get().(io.ReadCloser)
	defer flateReaders.Put(fr)
	if err := fr.(flate.Resetter).Reset(bytes.NewReader(src), nil); err != nil {
		return fmt.Errorf("deflate: %w", err)
	}
	if _, err := io.ReadFull(fr, dst); err != nil {
		return fmt.Errorf("deflate: %w", err)
	}
	var one [1]byte
	n, err := fr.Read(one[:])
	if n != 0 {
		return fmt.Errorf("deflate: more than %d bytes decompressed", len(dst))
	}
	if err != io.EOF {
		return fmt.Errorf("deflate: missing end of stream: %v", err)
	}
	return nil
}

func (deflateCompressor) MaxDecodedLen(src []byte) uint64 {
	return uint64(len(src)) * maxDeflateRatio
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	})
	return zstdEnc, zstdDec, zstdErr
}

type zstdCompressor struct {
	enc *zstd.Encoder
}

func (z zstdCompressor) Name() string { return "zstd" }

func (z zstdCompressor) Compress(src, dst []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, dst), nil
}

type zstdDecompressor zstd.Decoder

func (z *zstdDecompressor) Name() string { return "zstd" }

func (z *zstdDecompressor) Decompress(src, dst []byte) error {
	ret, err := (*zstd.Decoder)(z).DecodeAll(src, dst[:0:len(dst)])
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	if len(ret) != len(dst) {
		return fmt.Errorf("zstd: expected %d bytes decompressed; got %d", len(dst), len(ret))
	}
	copy(dst, ret)
	return nil
}

// MaxDecodedLen reads the frame content size when the frame carries one.
// Without it, each block has a 3 byte header and holds at most 128 KiB.
func (z *zstdDecompressor) MaxDecodedLen(src []byte) uint64 {
	var h zstd.Header
	if err := h.Decode(src); err != nil {
		return 0
	}
	if h.HasFCS {
		return h.FrameContentSize
	}
	return (uint64(len(src))/3 + 1) << 17
}

type s2Compressor struct{}

func (s2Compressor) Name() string { return "s2" }

func (s2Compressor) Compress(src, dst []byte) ([]byte, error) {
	return append(dst, s2.Encode(nil, src)...), nil
}

func (s2Compressor) Decompress(src, dst []byte) error {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return fmt.Errorf("s2: %w", err)
	}
	if n != len(dst) {
		return fmt.Errorf("s2: expected %d bytes decompressed; got %d", len(dst), n)
	}
	ret, err := s2.Decode(dst, src)
	if err != nil {
		return fmt.Errorf("s2: %w", err)
	}
	copy(dst, ret)
	return nil
}

func (s2Compressor) MaxDecodedLen(src []byte) uint64 {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return 0
	}
	return uint64(n)
}
