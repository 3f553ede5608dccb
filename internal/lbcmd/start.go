package lbcmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/loadbalancer-project/lbproxy/internal/lb"
	"github.com/loadbalancer-project/lbproxy/internal/lbconfig"
	"github.com/loadbalancer-project/lbproxy/internal/lblog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newStartCommand() *cobra.Command {
	var configPath string
	var pidfile string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Load the configuration and run the proxy in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(configPath, pidfile)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "lbproxy.yaml", "path to the YAML configuration file")
	cmd.Flags().StringVar(&pidfile, "pidfile", "lbproxy.pid", "path to write the running process's pid")
	return cmd
}

func runStart(configPath, pidfile string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg, err := lbconfig.Load(data)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := lblog.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	ctrl, err := lb.NewController(cfg, logger)
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}
	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("starting controller: %w", err)
	}

	if err := writePidfile(pidfile); err != nil {
		ctrl.Stop()
		return fmt.Errorf("writing pidfile: %w", err)
	}
	defer removePidfile(pidfile)

	srv, err := newStatusServer(socketPath(pidfile), ctrl.StatusSummary, func() {
		ctrl.Stop()
		os.Exit(0)
	})
	if err != nil {
		ctrl.Stop()
		return err
	}
	go srv.Serve()
	defer srv.Close()

	metricsSrv := startMetricsServer(cfg.Metrics.Listen, ctrl)
	if metricsSrv != nil {
		defer metricsSrv.Shutdown(context.Background())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	ctrl.Stop()
	return nil
}

// startMetricsServer exposes the controller's Prometheus registry over
// /metrics on addr. It returns nil without binding anything when addr
// is empty, since the metrics listener is opt-in.
func startMetricsServer(addr string, ctrl *lb.Controller) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(ctrl.Metrics().Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go srv.ListenAndServe()
	return srv
}
