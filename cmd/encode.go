package cmd

import (
	"bytes"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clems4ever/exi-encoder/exi"
	"github.com/clems4ever/exi-encoder/infoset"
	"github.com/clems4ever/exi-encoder/xmldoc"
)

var encodeFlags struct {
	output         string
	html           bool
	keepWhitespace bool
}

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode [xml_file]",
	Short: "Encode an XML document as EXI",
	Long: `Encode an XML (or, with --html, HTML) document as an EXI stream.
Use "-" to read the document from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringVarP(&encodeFlags.output, "output", "o", "", "Output file (default standard output)")
	encodeCmd.Flags().BoolVar(&encodeFlags.html, "html", false, "Parse the input as HTML")
	encodeCmd.Flags().BoolVar(&encodeFlags.keepWhitespace, "keep-whitespace", false, "Keep whitespace-only text")
}

func runEncode(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromConfig()
	if err != nil {
		return err
	}
	input, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	var out bytes.Buffer
	enc, err := exi.NewEncoder(&out, opts)
	if err != nil {
		return err
	}
	stream := xmldoc.Stream
	if encodeFlags.html {
		stream = xmldoc.StreamHTML
	}
	err = stream(bytes.NewReader(input), xmldoc.Options{KeepWhitespace: encodeFlags.keepWhitespace}, func(ev infoset.Event) error {
		return enc.Encode(ev)
	})
	if err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	fields := logrus.Fields{
		"input":       args[0],
		"input_bytes": len(input),
		"exi_bytes":   out.Len(),
	}
	if len(input) > 0 {
		fields["ratio"] = float64(out.Len()) / float64(len(input))
	}
	logrus.WithFields(fields).Info("encoded")

	return writeOutput(cmd, encodeFlags.output, out.Bytes())
}
