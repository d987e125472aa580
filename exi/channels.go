package exi

import (
	"bytes"
	"fmt"

	"github.com/clems4ever/exi-encoder/bitstream"
	"github.com/clems4ever/exi-encoder/infoset"
)

// In compression mode the structure of the document and the values of
// each value scope (attribute or element QName) are written to separate
// bit streams. Value channels are numbered in order of first use, which
// the decoder reproduces by replaying the same events.

type channel struct {
	buf bytes.Buffer
	w   *bitstream.Writer
}

func newChannel() *channel {
	c := &channel{}
	c.w = bitstream.NewWriter(&c.buf)
	return c
}

func (c *channel) close() ([]byte, error) {
	if err := c.w.Close(); err != nil {
		return nil, err
	}
	return c.buf.Bytes(), nil
}

type valueChannels struct {
	order []infoset.QName
	chans map[infoset.QName]*channel
}

func newValueChannels() *valueChannels {
	return &valueChannels{chans: make(map[infoset.QName]*channel)}
}

func (v *valueChannels) writer(scope infoset.QName) *bitstream.Writer {
	c, ok := v.chans[scope]
	if !ok {
		c = newChannel()
		v.chans[scope] = c
		v.order = append(v.order, scope)
	}
	return c.w
}

// flush closes every channel and returns their bytes, structure first.
func (v *valueChannels) flush(structure *channel) ([][]byte, error) {
	out := make([][]byte, 0, len(v.order)+1)
	b, err := structure.close()
	if err != nil {
		return nil, err
	}
	out = append(out, b)
	for _, scope := range v.order {
		b, err := v.chans[scope].close()
		if err != nil {
			return nil, fmt.Errorf("values of %s: %w", scope, err)
		}
		out = append(out, b)
	}
	return out, nil
}

type valueFrames struct {
	frames  [][]byte
	next    int
	readers map[infoset.QName]*bitstream.Reader
}

func newValueFrames(frames [][]byte) *valueFrames {
	return &valueFrames{
		frames:  frames,
		readers: make(map[infoset.QName]*bitstream.Reader),
	}
}

// reader returns the stream of scope, claiming the next frame the first
// time scope is seen.
func (v *valueFrames) reader(scope infoset.QName) (*bitstream.Reader, error) {
	if r, ok := v.readers[scope]; ok {
		return r, nil
	}
	if v.next == len(v.frames) {
		return nil, fmt.Errorf("%w: no channel left for values of %s", ErrCorruptCompressedBlock, scope)
	}
	r := bitstream.NewReader(bytes.NewReader(v.frames[v.next]))
	v.next++
	v.readers[scope] = r
	return r, nil
}

// finish checks that the document used every frame.
func (v *valueFrames) finish() error {
	if n := len(v.frames) - v.next; n != 0 {
		return fmt.Errorf("%w: %d value channels never used", ErrCorruptCompressedBlock, n)
	}
	return nil
}
