package exi

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clems4ever/exi-encoder/compr"
)

// Options is the configuration of one encode or decode session. It is
// fixed before the first byte is written or read.
type Options struct {
	// Compression groups the structure and the values into channels that
	// are compressed separately with Codec.
	Compression bool `mapstructure:"compression" json:"compression"`
	// IncludeSchemaID writes an options document after the header so that
	// a decoder does not need to be told the options out of band.
	IncludeSchemaID bool `mapstructure:"include-schema-id" json:"includeSchemaId"`
	// PreserveLexicalValues keeps values as the literal strings they were
	// given. Values are always untyped strings in built-in grammar mode,
	// so the flag only travels in the options document.
	PreserveLexicalValues bool `mapstructure:"preserve-lexical-values" json:"preserveLexicalValues"`
	// SchemaID names the schema the stream was encoded against. Only the
	// empty value (built-in grammars) is supported.
	SchemaID string `mapstructure:"schema-id" json:"schemaId,omitempty"`
	// Codec is the block compressor used in compression mode.
	Codec compr.Algo `mapstructure:"-" json:"codec"`
	// Cookie prefixes the stream with "$EXI".
	Cookie bool `mapstructure:"cookie" json:"cookie"`
	// Fragment selects EXI fragment mode, which is not supported.
	Fragment bool `mapstructure:"fragment" json:"fragment,omitempty"`
}

func (o Options) validate() error {
	switch {
	case o.SchemaID != "":
		return fmt.Errorf("%w: schema-informed grammars (schemaId %q)", ErrUnsupportedOption, o.SchemaID)
	case o.Fragment:
		return fmt.Errorf("%w: fragment mode", ErrUnsupportedOption)
	case !o.Codec.Valid():
		return fmt.Errorf("%w: compression codec %s", ErrUnsupportedOption, o.Codec)
	}
	return nil
}

func (o Options) fields() logrus.Fields {
	return logrus.Fields{
		"compression":             o.Compression,
		"include_schema_id":       o.IncludeSchemaID,
		"preserve_lexical_values": o.PreserveLexicalValues,
		"codec":                   o.Codec.String(),
		"cookie":                  o.Cookie,
	}
}

// SessionOption configures the parts of a session that do not affect the
// encoded bytes.
type SessionOption func(*session)

// WithLogger sets the logger a session reports to. The default is
// logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) SessionOption {
	return func(s *session) {
		s.log = l
	}
}
