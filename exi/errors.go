package exi

import (
	"errors"
	"fmt"

	"github.com/clems4ever/exi-encoder/compr"
	"github.com/clems4ever/exi-encoder/grammar"
)

var (
	// ErrStreamUnderflow reports input that is truncated or does not
	// decode: a bad header, an event code that selects nothing or a
	// string table index out of range.
	ErrStreamUnderflow = errors.New("exi: stream underflow")
	// ErrUnexpectedEventKind reports an event the current grammar state
	// does not allow.
	ErrUnexpectedEventKind = errors.New("exi: unexpected event kind")
	// ErrCorruptCompressedBlock reports a compressed channel that fails
	// to decompress or verify, or a channel count that does not match the
	// document.
	ErrCorruptCompressedBlock = errors.New("exi: corrupt compressed block")
	// ErrUnsupportedOption reports an option the codec does not
	// implement. It is returned before any byte is written or read.
	ErrUnsupportedOption = errors.New("exi: unsupported option")
)

// Error describes a failed session. Kind is one of the Err* sentinels, or
// nil when the underlying writer failed. Offset is the byte offset in the
// stream being coded (the structure channel in compression mode) and
// Depth the number of open elements at the time.
//
// errors.Is matches both Kind and the underlying cause.
type Error struct {
	Kind   error
	Offset int64
	Depth  int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Kind != nil && !errors.Is(e.Err, e.Kind) {
		msg = e.Kind.Error() + ": " + msg
	}
	return fmt.Sprintf("%s (byte %d, depth %d)", msg, e.Offset, e.Depth)
}

func (e *Error) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

var kinds = []error{ErrUnsupportedOption, ErrCorruptCompressedBlock, ErrUnexpectedEventKind, ErrStreamUnderflow}

// classify picks the error kind for err. Causes that carry no kind of
// their own get fallback.
func classify(err, fallback error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	switch {
	case errors.Is(err, compr.ErrCorrupt):
		return ErrCorruptCompressedBlock
	case errors.Is(err, grammar.ErrUnexpectedEvent):
		return ErrUnexpectedEventKind
	case errors.Is(err, grammar.ErrInvalidCode):
		return ErrStreamUnderflow
	}
	return fallback
}

// corrupt marks a decoding failure found by the codec itself.
func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStreamUnderflow}, args...)...)
}

func unexpected(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnexpectedEventKind}, args...)...)
}
