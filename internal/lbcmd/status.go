package lbcmd

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var pidfile string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the running instance's backend status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(pidfile)
		},
	}
	cmd.Flags().StringVar(&pidfile, "pidfile", "lbproxy.pid", "pidfile written by `start`")
	return cmd
}

func runStatus(pidfile string) error {
	pid, err := readPidfile(pidfile)
	if err != nil {
		fmt.Println("not running")
		os.Exit(1)
		return nil
	}
	if err := syscall.Kill(pid, syscall.Signal(0)); err != nil {
		fmt.Println("not running")
		os.Exit(1)
		return nil
	}

	summary, err := dialStatusSocket(socketPath(pidfile), "STATUS")
	if err != nil {
		return errors.New("process is running but status socket is unreachable")
	}
	fmt.Print(summary)
	return nil
}
