// Command lbproxy is an HTTP/1.1 reverse proxy load balancer: weighted
// round-robin, least-connections, or IP-hash backend selection, a
// byte-level framing forwarder, and a health supervisor with
// hysteresis over backend availability.
package main

import (
	"fmt"
	"os"

	"github.com/loadbalancer-project/lbproxy/internal/lbcmd"
)

func main() {
	if err := lbcmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
