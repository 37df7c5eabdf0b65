// Package cli implements the soapwire command-line interface: encode and
// decode SOAP envelopes described by YAML message-spec files.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/soapwire/soapwire/pkg/logging"
)

// BuildInfo carries build-time version metadata set via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var buildInfo BuildInfo

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "soapwire",
	Short:         "Encode and decode SOAP envelopes from message specifications",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log output format (text, json)")
}

// newLogger builds the logger shared by all commands.
func newLogger() *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(logLevel),
		Format: logging.ParseFormat(logFormat),
	})
}

// Execute runs the CLI.
func Execute(info BuildInfo) error {
	buildInfo = info
	return rootCmd.Execute()
}
