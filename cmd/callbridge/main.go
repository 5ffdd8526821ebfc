// Command callbridge bridges telephony media streams to a realtime speech
// model.
//
// Usage:
//
//	callbridge [flags] <command> [subcommand] [args]
//
// Commands:
//
//	serve      - Accept media streams and bridge calls
//	profile    - Manage agent profiles (put, get, list, delete)
//	calls      - Inspect recorded calls (list, get)
//	sessions   - List live calls on a running server
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/callbridge/cmd/callbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
