package lbcmd

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
)

func newStopCommand() *cobra.Command {
	var pidfile string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running instance started with `start --pidfile`",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(pidfile)
		},
	}
	cmd.Flags().StringVar(&pidfile, "pidfile", "lbproxy.pid", "pidfile written by `start`")
	return cmd
}

func runStop(pidfile string) error {
	pid, err := readPidfile(pidfile)
	if err != nil {
		return fmt.Errorf("not running (%w)", err)
	}

	if _, err := dialStatusSocket(socketPath(pidfile), "STOP"); err == nil {
		return nil
	}

	// Status socket unreachable; fall back to signaling the recorded pid
	// directly.
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signaling pid %d: %w", pid, err)
	}
	return nil
}
