// Package lbcmd implements the command-line surface: start, stop,
// status, and validate, wired onto spf13/cobra with spf13/pflag-bound
// flags.
package lbcmd

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the top-level "lbproxy" command with its four
// subcommands attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "lbproxy",
		Short: "A weighted round-robin / least-connections / IP-hash HTTP/1.1 reverse proxy load balancer",
	}

	root.AddCommand(newStartCommand())
	root.AddCommand(newStopCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newValidateCommand())

	return root
}
