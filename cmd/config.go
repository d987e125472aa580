package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clems4ever/exi-encoder/exi"
)

// optionsFromConfig collects the stream options from flags, the config
// file and EXI_* environment variables.
func optionsFromConfig() (exi.Options, error) {
	var opts exi.Options
	if err := viper.Unmarshal(&opts); err != nil {
		return opts, fmt.Errorf("invalid options: %w", err)
	}
	if err := opts.Codec.UnmarshalText([]byte(viper.GetString("codec"))); err != nil {
		return opts, err
	}
	return opts, nil
}

// readInput reads the named file, or standard input for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

// writeOutput writes data to the named file, or to the command output
// when name is empty.
func writeOutput(cmd *cobra.Command, name string, data []byte) error {
	if name == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(name, data, 0644)
}
