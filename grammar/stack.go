package grammar

import (
	"fmt"

	"github.com/clems4ever/exi-encoder/infoset"
)

// Stack holds the document context at the bottom and one context per
// open element above it.
type Stack struct {
	ctxs     []*Context
	ended    bool
	maxDepth int
}

func NewStack() *Stack {
	return &Stack{ctxs: []*Context{{state: DocContent}}}
}

// Top returns the innermost context.
func (s *Stack) Top() *Context {
	return s.ctxs[len(s.ctxs)-1]
}

// Depth returns the number of open elements.
func (s *Stack) Depth() int {
	return len(s.ctxs) - 1
}

// MaxDepth returns the deepest nesting seen so far.
func (s *Stack) MaxDepth() int {
	return s.maxDepth
}

// Ended reports whether EndDocument has been committed.
func (s *Stack) Ended() bool {
	return s.ended
}

// Encode resolves kind and name against the innermost context.
func (s *Stack) Encode(kind infoset.Kind, name infoset.QName) (Code, Production, error) {
	if s.ended {
		return Code{}, Production{}, fmt.Errorf("%w: %s after end of document", ErrUnexpectedEvent, kind)
	}
	return s.Top().Encode(kind, name)
}

// Decode reads the next event code against the innermost context.
func (s *Stack) Decode(read func(width uint8) (uint32, error)) (Production, error) {
	if s.ended {
		return Production{}, fmt.Errorf("%w: read after end of document", ErrUnexpectedEvent)
	}
	return s.Top().Decode(read)
}

// Commit applies an event coded with production p: the innermost grammar
// learns a named production in place of a wildcard or second-level one,
// then the state machine advances. SE pushes a fresh context and EE pops
// and returns the closed one.
func (s *Stack) Commit(p Production, name infoset.QName) (*Context, error) {
	top := s.Top()
	if !top.isLearned(p) {
		top.Learn(Production{Kind: p.Kind, Name: name})
	}
	switch p.Kind {
	case infoset.KindStartElement:
		top.advance(p.Kind)
		s.ctxs = append(s.ctxs, &Context{Name: name, state: StartTagContent})
		if d := s.Depth(); d > s.maxDepth {
			s.maxDepth = d
		}
	case infoset.KindEndElement:
		if s.Depth() == 0 {
			return nil, fmt.Errorf("%w: EE at document level", ErrUnexpectedEvent)
		}
		s.ctxs = s.ctxs[:len(s.ctxs)-1]
		return top, nil
	case infoset.KindEndDocument:
		if s.Depth() != 0 {
			return nil, fmt.Errorf("%w: ED with %d open elements", ErrUnexpectedEvent, s.Depth())
		}
		s.ended = true
	default:
		top.advance(p.Kind)
	}
	return nil, nil
}

func (c *Context) isLearned(p Production) bool {
	if p.Wildcard {
		return false
	}
	for _, q := range c.learned[c.state] {
		if q == p {
			return true
		}
	}
	return false
}
