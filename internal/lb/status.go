package lb

import (
	"fmt"
	"strings"
)

// StatusSummary renders the plain-text status report: the listen
// address, the selection policy in use, and one line per backend of
// the form "host:port  AVAILABLE|UNAVAILABLE  conns=N  weight=W".
func (c *Controller) StatusSummary() string {
	var b strings.Builder

	state := "stopped"
	if c.Running() {
		state = "running"
	}
	fmt.Fprintf(&b, "status: %s\nlisten: %s:%d\npolicy: %s\n",
		state, c.cfg.Server.Host, c.cfg.Server.Port, c.policy.Name())

	for _, backend := range c.pool {
		availability := "UNAVAILABLE"
		if backend.Available() {
			availability = "AVAILABLE"
		}
		fmt.Fprintf(&b, "  %-22s %-11s conns=%-4d weight=%d\n",
			backend.Addr(), availability, backend.ActiveConnections(), backend.Weight())
	}

	return b.String()
}
