package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clems4ever/exi-encoder/infoset"
)

func qn(local string) infoset.QName {
	return infoset.QName{Local: local}
}

func code(parts []uint32, widths []uint8) Code {
	var c Code
	c.Len = len(parts)
	copy(c.Parts[:], parts)
	copy(c.Widths[:], widths)
	return c
}

func TestDocContent_Codes(t *testing.T) {
	s := NewStack()
	tests := []struct {
		kind infoset.Kind
		want Code
	}{
		{infoset.KindStartElement, code([]uint32{0}, []uint8{2})},
		{infoset.KindEndDocument, code([]uint32{1}, []uint8{2})},
		{infoset.KindComment, code([]uint32{2, 0}, []uint8{2, 1})},
		{infoset.KindProcessingInstruction, code([]uint32{2, 1}, []uint8{2, 1})},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, _, err := s.Encode(tt.kind, qn("root"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, _, err := s.Encode(infoset.KindCharacters, infoset.QName{})
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
	_, _, err = s.Encode(infoset.KindEndElement, infoset.QName{})
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}

func TestStartTagContent_Codes(t *testing.T) {
	s := NewStack()
	_, err := s.Commit(Production{Kind: infoset.KindStartElement, Wildcard: true}, qn("a"))
	require.NoError(t, err)

	c, p, err := s.Encode(infoset.KindEndElement, infoset.QName{})
	require.NoError(t, err)
	assert.Equal(t, code([]uint32{0, 0}, []uint8{0, 3}), c)
	assert.Equal(t, "0.0", c.String())
	assert.Equal(t, 3, c.Bits())
	assert.Equal(t, "EE", p.String())

	c, p, err = s.Encode(infoset.KindAttribute, qn("x"))
	require.NoError(t, err)
	assert.Equal(t, code([]uint32{0, 1}, []uint8{0, 3}), c)
	assert.True(t, p.Wildcard)

	c, _, err = s.Encode(infoset.KindComment, infoset.QName{})
	require.NoError(t, err)
	assert.Equal(t, "0.5.0", c.String())
	assert.Equal(t, 4, c.Bits())

	// learning AT(x) gives it a first-level code and shifts the rest
	_, err = s.Commit(p, qn("x"))
	require.NoError(t, err)
	c, p, err = s.Encode(infoset.KindAttribute, qn("x"))
	require.NoError(t, err)
	assert.Equal(t, code([]uint32{0}, []uint8{1}), c)
	assert.False(t, p.Wildcard)
	assert.Equal(t, "AT(x)", p.String())

	c, _, err = s.Encode(infoset.KindAttribute, qn("y"))
	require.NoError(t, err)
	assert.Equal(t, code([]uint32{1, 1}, []uint8{1, 3}), c)
}

func TestElementContent_LearnsChildren(t *testing.T) {
	s := NewStack()
	commit := func(kind infoset.Kind, name string) {
		t.Helper()
		_, p, err := s.Encode(kind, qn(name))
		require.NoError(t, err)
		_, err = s.Commit(p, qn(name))
		require.NoError(t, err)
	}
	commit(infoset.KindStartElement, "r")
	commit(infoset.KindCharacters, "")
	assert.Equal(t, ElementContent, s.Top().State())

	c, _, err := s.Encode(infoset.KindStartElement, qn("b"))
	require.NoError(t, err)
	assert.Equal(t, code([]uint32{1, 0}, []uint8{1, 2}), c)

	commit(infoset.KindStartElement, "b")
	commit(infoset.KindEndElement, "b")

	// SE(b) learned in r's element content: code 0, EE moves to 1
	c, p, err := s.Encode(infoset.KindStartElement, qn("b"))
	require.NoError(t, err)
	assert.Equal(t, code([]uint32{0}, []uint8{2}), c)
	assert.Equal(t, "SE(b)", p.String())

	c, _, err = s.Encode(infoset.KindEndElement, infoset.QName{})
	require.NoError(t, err)
	assert.Equal(t, code([]uint32{1}, []uint8{2}), c)

	// attributes are not allowed once content started
	_, _, err = s.Encode(infoset.KindAttribute, qn("late"))
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
	_, _, err = s.Encode(infoset.KindNamespace, infoset.QName{})
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}

func TestLearn_Idempotent(t *testing.T) {
	c := &Context{state: ElementContent}
	c.Learn(Production{Kind: infoset.KindCharacters})
	c.Learn(Production{Kind: infoset.KindCharacters, Name: qn("ignored")})
	c.Learn(Production{Kind: infoset.KindStartElement, Name: qn("a")})
	c.Learn(Production{Kind: infoset.KindStartElement, Name: qn("a"), Wildcard: true})
	c.Learn(Production{Kind: infoset.KindEndElement})
	c.Learn(Production{Kind: infoset.KindComment})

	assert.Equal(t, []Production{
		{Kind: infoset.KindStartElement, Name: qn("a")},
		{Kind: infoset.KindCharacters},
	}, c.Learned(ElementContent))

	doc := &Context{state: DocContent}
	doc.Learn(Production{Kind: infoset.KindStartElement, Name: qn("a")})
	assert.Empty(t, doc.Learned(DocContent))
}

func TestStack_SiblingIsolation(t *testing.T) {
	s := NewStack()
	step := func(kind infoset.Kind, name string) *Context {
		t.Helper()
		_, p, err := s.Encode(kind, qn(name))
		require.NoError(t, err)
		closed, err := s.Commit(p, qn(name))
		require.NoError(t, err)
		return closed
	}
	step(infoset.KindStartElement, "r")
	step(infoset.KindStartElement, "item")
	step(infoset.KindAttribute, "id")
	step(infoset.KindCharacters, "")
	first := step(infoset.KindEndElement, "")
	require.NotNil(t, first)
	assert.NotEmpty(t, first.Learned(StartTagContent))

	step(infoset.KindStartElement, "item")
	second := s.Top()
	assert.Equal(t, qn("item"), second.Name)
	assert.Equal(t, StartTagContent, second.State())
	assert.Empty(t, second.Learned(StartTagContent))
	assert.Empty(t, second.Learned(ElementContent))
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, 2, s.MaxDepth())
}

func TestStack_EndDocument(t *testing.T) {
	s := NewStack()
	_, p, err := s.Encode(infoset.KindEndDocument, infoset.QName{})
	require.NoError(t, err)
	_, err = s.Commit(p, infoset.QName{})
	require.NoError(t, err)
	assert.True(t, s.Ended())

	_, _, err = s.Encode(infoset.KindComment, infoset.QName{})
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
	_, err = s.Decode(func(uint8) (uint32, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}

func TestStack_SecondRootRejected(t *testing.T) {
	s := NewStack()
	_, err := s.Commit(Production{Kind: infoset.KindStartElement, Wildcard: true}, qn("a"))
	require.NoError(t, err)
	_, err = s.Commit(Production{Kind: infoset.KindEndElement}, infoset.QName{})
	require.NoError(t, err)
	assert.Equal(t, DocEnd, s.Top().State())

	_, _, err = s.Encode(infoset.KindStartElement, qn("b"))
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}

func TestContext_DecodeMirrorsEncode(t *testing.T) {
	c := &Context{state: ElementContent}
	c.Learn(Production{Kind: infoset.KindStartElement, Name: qn("a")})
	c.Learn(Production{Kind: infoset.KindCharacters})

	kinds := []struct {
		kind infoset.Kind
		name infoset.QName
	}{
		{infoset.KindCharacters, infoset.QName{}},
		{infoset.KindStartElement, qn("a")},
		{infoset.KindStartElement, qn("z")},
		{infoset.KindEndElement, infoset.QName{}},
		{infoset.KindComment, infoset.QName{}},
		{infoset.KindProcessingInstruction, infoset.QName{}},
	}
	for _, k := range kinds {
		code, want, err := c.Encode(k.kind, k.name)
		require.NoError(t, err)
		i := 0
		got, err := c.Decode(func(w uint8) (uint32, error) {
			require.Equal(t, code.Widths[i], w)
			v := code.Parts[i]
			i++
			return v, nil
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, code.Len, i)
	}
}

func TestContext_DecodeInvalidCode(t *testing.T) {
	s := NewStack()
	// DocContent has three alternatives in two bits; 3 selects nothing
	_, err := s.Decode(func(uint8) (uint32, error) { return 3, nil })
	assert.ErrorIs(t, err, ErrInvalidCode)
}
