package exi

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clems4ever/exi-encoder/xmldoc"
)

var update = flag.Bool("update", false, "update golden files")

// TestGolden encodes every testdata/*.xml document, decodes it back and
// compares the rebuilt document with its _golden.xml file. The encoded
// bytes are checked against the document's .exi file.
func TestGolden(t *testing.T) {
	matches, err := filepath.Glob("testdata/*.xml")
	if err != nil {
		t.Fatal(err)
	}

	for _, inFile := range matches {
		if strings.HasSuffix(inFile, "_golden.xml") {
			continue
		}
		base := strings.TrimSuffix(inFile, ".xml")
		t.Run(filepath.Base(base), func(t *testing.T) {
			f, err := os.Open(inFile)
			require.NoError(t, err)
			defer f.Close()

			events, err := xmldoc.Parse(f, xmldoc.Options{})
			require.NoError(t, err)

			var encoded bytes.Buffer
			require.NoError(t, Encode(&encoded, events, Options{}))

			exiFile := base + ".exi"
			if *update {
				require.NoError(t, os.WriteFile(exiFile, encoded.Bytes(), 0644))
			}
			expectedEXI, err := os.ReadFile(exiFile)
			if os.IsNotExist(err) {
				t.Fatalf("encoded file %s missing, run with -update to generate", exiFile)
			}
			require.NoError(t, err)
			assert.Equal(t, expectedEXI, encoded.Bytes(), "content mismatch for %s. Run with -update to fix.", exiFile)

			for _, opts := range optionMatrix() {
				var buf bytes.Buffer
				require.NoError(t, Encode(&buf, events, opts))
				decoded, err := Decode(&buf, opts)
				require.NoError(t, err)
				require.Equal(t, events, decoded, optionName(opts))
			}

			decoded, err := Decode(&encoded, Options{})
			require.NoError(t, err)
			doc, err := xmldoc.Build(decoded)
			require.NoError(t, err)
			var out bytes.Buffer
			doc.PrettyPrint(&out)

			goldenFile := base + "_golden.xml"
			if *update {
				require.NoError(t, os.WriteFile(goldenFile, out.Bytes(), 0644))
			}
			expected, err := os.ReadFile(goldenFile)
			if os.IsNotExist(err) {
				t.Fatalf("golden file %s missing, run with -update to generate", goldenFile)
			}
			require.NoError(t, err)
			assert.Equal(t, string(expected), out.String(), "content mismatch for %s. Run with -update to fix.", goldenFile)
		})
	}
}
