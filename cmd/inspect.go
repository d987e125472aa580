package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/clems4ever/exi-encoder/exi"
)

var inspectFormat string

// report is what inspect prints about a stream.
type report struct {
	File    string      `json:"file"`
	Bytes   int         `json:"bytes"`
	Options exi.Options `json:"options"`
	Stats   exi.Stats   `json:"stats"`
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [exi_file]",
	Short: "Describe an EXI stream",
	Long: `Decode an EXI stream and report its options, the number of events of each
kind, the string table sizes and the deepest nesting.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFormat, "format", "yaml", "Output format (yaml, json)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromConfig()
	if err != nil {
		return err
	}
	input, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	d, err := exi.NewDecoder(bytes.NewReader(input), opts)
	if err != nil {
		return err
	}
	for {
		_, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	r := report{
		File:    args[0],
		Bytes:   len(input),
		Options: d.Options(),
		Stats:   d.Stats(),
	}

	var data []byte
	switch inspectFormat {
	case "yaml":
		data, err = yaml.Marshal(r)
	case "json":
		data, err = json.MarshalIndent(r, "", "  ")
	default:
		return fmt.Errorf("unknown format %q", inspectFormat)
	}
	if err != nil {
		return err
	}
	if inspectFormat == "json" {
		data = append(data, '\n')
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
