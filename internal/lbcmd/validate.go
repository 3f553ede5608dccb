package lbcmd

import (
	"fmt"
	"os"

	"github.com/loadbalancer-project/lbproxy/internal/lbconfig"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration file without starting the proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "lbproxy.yaml", "path to the YAML configuration file")
	return cmd
}

func runValidate(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if _, err := lbconfig.Load(data); err != nil {
		fmt.Println(err)
		os.Exit(1)
		return nil
	}
	fmt.Println("OK")
	return nil
}
