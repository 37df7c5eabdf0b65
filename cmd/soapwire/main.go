// soapwire CLI - encode and decode SOAP envelopes from message specs
package main

import (
	"os"

	"github.com/soapwire/soapwire/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := cli.Execute(cli.BuildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}); err != nil {
		os.Exit(1)
	}
}
