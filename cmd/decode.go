package cmd

import (
	"bytes"
	"fmt"

	"github.com/clbanning/mxj/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clems4ever/exi-encoder/exi"
	"github.com/clems4ever/exi-encoder/xmldoc"
)

var decodeFlags struct {
	output string
	format string
}

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode [exi_file]",
	Short: "Decode an EXI stream to XML",
	Long: `Decode an EXI stream and print the document as XML, indented XML or JSON.
The option flags describe the stream when it carries no options document.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().StringVarP(&decodeFlags.output, "output", "o", "", "Output file (default standard output)")
	decodeCmd.Flags().StringVar(&decodeFlags.format, "format", "xml", "Output format (xml, pretty, json)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromConfig()
	if err != nil {
		return err
	}
	input, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	events, err := exi.Decode(bytes.NewReader(input), opts)
	if err != nil {
		return err
	}
	doc, err := xmldoc.Build(events)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	switch decodeFlags.format {
	case "xml":
		out.WriteString(doc.String())
		out.WriteString("\n")
	case "pretty":
		doc.PrettyPrint(&out)
	case "json":
		m, err := mxj.NewMapXml([]byte(doc.String()))
		if err != nil {
			return fmt.Errorf("errors converting XML to JSON: %w", err)
		}
		data, err := m.JsonIndent("", "  ")
		if err != nil {
			return err
		}
		out.Write(data)
		out.WriteString("\n")
	default:
		return fmt.Errorf("unknown format %q", decodeFlags.format)
	}

	logrus.WithFields(logrus.Fields{
		"input":     args[0],
		"exi_bytes": len(input),
		"events":    len(events),
	}).Info("decoded")

	return writeOutput(cmd, decodeFlags.output, out.Bytes())
}
