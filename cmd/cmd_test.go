package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<a x="1"><b>hi</b></a>`

// execute runs the root command with args and returns what it printed.
// Flag values are reset afterwards since the commands are package level.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(bytes.NewBufferString(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	defer resetFlags()
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

func TestEncode_Stdin(t *testing.T) {
	out, err := execute(t, sample, "encode", "-")
	require.NoError(t, err)
	want := []byte{0x80, 0x10, 0x26, 0x12, 0x81, 0x3c, 0x01, 0x98, 0xda, 0x04, 0xc5, 0x01, 0x1a, 0x1a, 0x40}
	assert.Equal(t, want, []byte(out))
}

func TestEncodeDecode_Files(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "doc.xml")
	enc := filepath.Join(dir, "doc.exi")
	dec := filepath.Join(dir, "doc.out.xml")
	require.NoError(t, os.WriteFile(in, []byte(sample), 0644))

	_, err := execute(t, "", "encode", in, "-o", enc,
		"--compression", "--codec", "zstd", "--include-schema-id", "--cookie")
	require.NoError(t, err)
	data, err := os.ReadFile(enc)
	require.NoError(t, err)
	assert.Equal(t, "$EXI", string(data[:4]))

	// the options document makes the flags unnecessary
	_, err = execute(t, "", "decode", enc, "-o", dec)
	require.NoError(t, err)
	got, err := os.ReadFile(dec)
	require.NoError(t, err)
	assert.Equal(t, sample+"\n", string(got))
}

func TestDecode_Formats(t *testing.T) {
	encoded, err := execute(t, sample, "encode", "-")
	require.NoError(t, err)

	out, err := execute(t, encoded, "decode", "-", "--format", "pretty")
	require.NoError(t, err)
	assert.Equal(t, "<a x=\"1\">\n  <b>hi</b>\n</a>\n", out)

	out, err = execute(t, encoded, "decode", "-", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": {"-x": "1", "b": "hi"}}`, out)

	_, err = execute(t, encoded, "decode", "-", "--format", "csv")
	assert.Error(t, err)
}

func TestDecode_OutOfBandOptions(t *testing.T) {
	encoded, err := execute(t, sample, "encode", "-", "--compression")
	require.NoError(t, err)

	// without an options document the decoder must be told about compression
	out, err := execute(t, encoded, "decode", "-", "--compression")
	require.NoError(t, err)
	assert.Equal(t, sample+"\n", out)
}

func TestInspect(t *testing.T) {
	encoded, err := execute(t, sample, "encode", "-", "--include-schema-id", "--compression", "--codec", "s2")
	require.NoError(t, err)

	out, err := execute(t, encoded, "inspect", "-", "--format", "json")
	require.NoError(t, err)

	var r struct {
		Bytes   int `json:"bytes"`
		Options struct {
			Compression bool   `json:"compression"`
			Codec       string `json:"codec"`
		} `json:"options"`
		Stats struct {
			Events   map[string]int `json:"events"`
			MaxDepth int            `json:"maxDepth"`
			Channels int            `json:"channels"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Equal(t, len(encoded), r.Bytes)
	assert.True(t, r.Options.Compression)
	assert.Equal(t, "s2", r.Options.Codec)
	assert.Equal(t, map[string]int{"SE": 2, "AT": 1, "CH": 1, "EE": 2, "ED": 1}, r.Stats.Events)
	assert.Equal(t, 2, r.Stats.MaxDepth)
	// structure, x and b
	assert.Equal(t, 3, r.Stats.Channels)

	out, err = execute(t, encoded, "inspect", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "maxDepth: 2")
	assert.Contains(t, out, "codec: s2")
}

func TestEncode_Environment(t *testing.T) {
	t.Setenv("EXI_INCLUDE_SCHEMA_ID", "true")
	out, err := execute(t, sample, "encode", "-")
	require.NoError(t, err)
	assert.Equal(t, byte(0xa0), out[0])
}

func TestEncode_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "exi.yaml")
	require.NoError(t, os.WriteFile(config, []byte("cookie: true\n"), 0644))
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	t.Cleanup(func() {
		viper.SetConfigFile(empty)
		viper.ReadInConfig()
	})

	out, err := execute(t, sample, "encode", "-", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, "$EXI", out[:4])
}

func TestEncode_HTML(t *testing.T) {
	encoded, err := execute(t, "<p>one<br>two", "encode", "-", "--html")
	require.NoError(t, err)

	out, err := execute(t, encoded, "decode", "-")
	require.NoError(t, err)
	assert.Equal(t, "<html><head></head><body><p>one<br></br>two</p></body></html>\n", out)
}

func TestInvalidSettings(t *testing.T) {
	tests := map[string][]string{
		"codec":      {"encode", "-", "--codec", "lz4"},
		"log level":  {"encode", "-", "--log-level", "loud"},
		"log format": {"encode", "-", "--log-format", "xml"},
		"bad xml":    {"encode", "-"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, "<a><b></a>", args...)
			assert.Error(t, err)
		})
	}
}
