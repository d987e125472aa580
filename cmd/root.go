package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "exi",
	Short: "An EXI encoder and decoder for schema-less XML",
	Long: `exi converts XML documents to the Efficient XML Interchange format and
back, using the built-in grammars so that no schema is needed. Streams can be
written in bit-packed mode or in compression mode, where the structure and
the values are compressed in separate channels.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := LoadConfig(); err != nil {
			return err
		}
		return SetupLogging(cmd)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Configuration file path (yaml, toml or json)")
	flags.String("log-level", "warn", "Logging level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")

	// Options of the stream; a decoder only uses them when the stream
	// has no options document.
	flags.Bool("compression", false, "Compress structure and values in separate channels")
	flags.Bool("include-schema-id", false, "Write an options document after the header")
	flags.Bool("preserve-lexical-values", false, "Record that values are kept as written")
	flags.String("codec", "deflate", "Compression codec (deflate, zstd, s2)")
	flags.Bool("cookie", false, `Prefix the stream with "$EXI"`)

	for _, name := range []string{
		"config", "log-level", "log-format",
		"compression", "include-schema-id", "preserve-lexical-values", "codec", "cookie",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// EXI_INCLUDE_SCHEMA_ID and so on
	viper.SetEnvPrefix("EXI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	return nil
}

// SetupLogging configures the logging system
func SetupLogging(cmd *cobra.Command) error {
	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())

	switch format := viper.GetString("log-format"); format {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}
