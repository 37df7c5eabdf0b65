package cli

import (
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/soapwire/soapwire/internal/specfile"
	"github.com/soapwire/soapwire/pkg/envelope"
	"github.com/soapwire/soapwire/pkg/fault"
	"github.com/soapwire/soapwire/pkg/rpcenc"
)

var (
	decodeSpecPath string
	decodeInPath   string
	decodeRaw      bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a SOAP envelope into a JSON data map",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := specfile.Load(decodeSpecPath)
		if err != nil {
			return err
		}
		spec.Direction = envelope.Receiver
		spec.Log = newLogger()

		raw, err := readInput(decodeInPath)
		if err != nil {
			return err
		}
		codec, err := envelope.Compile(spec)
		if err != nil {
			return err
		}
		result, err := codec.DecodeBytes(raw)
		if err != nil {
			return err
		}

		if f, ok := result["Fault"].(*fault.Fault); ok {
			fmt.Fprintf(os.Stderr, "fault: %s (role %s)\n", f, f.Role)
			delete(result, "Fault")
		}
		var out any = result
		if !decodeRaw {
			out = rpcenc.Simplify(result)
		}
		fmt.Println(oj.JSON(out, 2))
		return nil
	},
}

func init() {
	decodeCmd.Flags().StringVar(&decodeSpecPath, "spec", "", "message-spec YAML file (required)")
	decodeCmd.Flags().StringVar(&decodeInPath, "in", "-", "envelope XML file, - for stdin")
	decodeCmd.Flags().BoolVar(&decodeRaw, "raw", false, "skip tree simplification")
	_ = decodeCmd.MarkFlagRequired("spec")
	rootCmd.AddCommand(decodeCmd)
}
