package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/soapwire/soapwire/internal/specfile"
	"github.com/soapwire/soapwire/pkg/envelope"
)

var (
	encodeSpecPath string
	encodeDataPath string
	encodePretty   bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a JSON data map into a SOAP envelope",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := specfile.Load(encodeSpecPath)
		if err != nil {
			return err
		}
		spec.Direction = envelope.Sender
		spec.Log = newLogger()

		raw, err := readInput(encodeDataPath)
		if err != nil {
			return err
		}
		parsed, err := oj.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse data file: %w", err)
		}
		data, ok := parsed.(map[string]any)
		if !ok {
			return fmt.Errorf("data file must hold a JSON object, got %T", parsed)
		}

		codec, err := envelope.Compile(spec)
		if err != nil {
			return err
		}
		doc, err := codec.Encode(data)
		if err != nil {
			return err
		}
		if encodePretty {
			doc.Indent(2)
		}
		if _, err := doc.WriteTo(os.Stdout); err != nil {
			return err
		}
		fmt.Println()
		return nil
	},
}

func init() {
	encodeCmd.Flags().StringVar(&encodeSpecPath, "spec", "", "message-spec YAML file (required)")
	encodeCmd.Flags().StringVar(&encodeDataPath, "data", "-", "JSON data file, - for stdin")
	encodeCmd.Flags().BoolVar(&encodePretty, "pretty", false, "indent the envelope")
	_ = encodeCmd.MarkFlagRequired("spec")
	rootCmd.AddCommand(encodeCmd)
}

// readInput reads a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
