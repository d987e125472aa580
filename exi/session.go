// Package exi encodes XML infoset events as an EXI stream using the
// built-in (schema-less) grammars, and decodes such streams back into
// the same events.
//
// An Encoder or a Decoder is one session: it owns a string table and a
// grammar stack that evolve with every event, so a session is sequential
// and cannot be restarted. The first error a session meets is returned
// from every later call.
package exi

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clems4ever/exi-encoder/grammar"
	"github.com/clems4ever/exi-encoder/infoset"
	"github.com/clems4ever/exi-encoder/stringtable"
)

type session struct {
	id       uuid.UUID
	log      logrus.FieldLogger
	opts     Options
	table    *stringtable.Table
	stack    *grammar.Stack
	counts   map[infoset.Kind]int
	channels int
	err      error
}

func newSession(opts Options, sopts []SessionOption) *session {
	s := &session{
		id:     uuid.New(),
		log:    logrus.StandardLogger(),
		opts:   opts,
		table:  stringtable.New(),
		stack:  grammar.NewStack(),
		counts: make(map[infoset.Kind]int),
	}
	for _, o := range sopts {
		o(s)
	}
	s.log = s.log.WithField("session", s.id.String())
	return s
}

// fail records the first error of the session and returns it.
func (s *session) fail(err, fallback error, offset int64) error {
	if s.err != nil {
		return s.err
	}
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{
			Kind:   classify(err, fallback),
			Offset: offset,
			Depth:  s.stack.Depth(),
			Err:    err,
		}
	}
	s.err = e
	s.log.WithError(e).Debug("exi: session failed")
	return e
}

// Options returns the options in effect. For a decoder these come from
// the options document when the stream carries one.
func (s *session) Options() Options {
	return s.opts
}

// Stats summarises a session.
type Stats struct {
	Events   map[string]int    `json:"events"`
	Table    stringtable.Stats `json:"table"`
	MaxDepth int               `json:"maxDepth"`
	Channels int               `json:"channels,omitempty"`
}

// Stats returns the events seen so far per kind, the string table sizes
// and the deepest nesting.
func (s *session) Stats() Stats {
	st := Stats{
		Events:   make(map[string]int, len(s.counts)),
		Table:    s.table.Stats(),
		MaxDepth: s.stack.MaxDepth(),
		Channels: s.channels,
	}
	for k, n := range s.counts {
		st.Events[k.String()] = n
	}
	return st
}

func (s *session) summary() logrus.Fields {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return logrus.Fields{
		"events":    total,
		"max_depth": s.stack.MaxDepth(),
		"channels":  s.channels,
	}
}
