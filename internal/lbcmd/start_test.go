package lbcmd

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/loadbalancer-project/lbproxy/internal/lb"
	"github.com/loadbalancer-project/lbproxy/internal/lbconfig"
)

func TestStartMetricsServerServesRegistry(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := &lbconfig.Config{
		Server:    lbconfig.Server{Host: "127.0.0.1", Port: 0, ThreadPoolSize: 1},
		Algorithm: lbconfig.AlgorithmRoundRobin,
		Backends:  []lbconfig.Backend{{Host: "127.0.0.1", Port: 1, Weight: 1}},
	}
	ctrl, err := lb.NewController(cfg, nil)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := ctrl.Start(); err != nil {
		t.Fatalf("start controller: %v", err)
	}
	defer ctrl.Stop()

	srv := startMetricsServer(addr, ctrl)
	if srv == nil {
		t.Fatal("expected a metrics server for a non-empty listen address")
	}
	defer srv.Close()

	time.Sleep(20 * time.Millisecond)

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !strings.Contains(string(body), "lbproxy_backend_available") {
		t.Errorf("expected lbproxy_backend_available series in response, got: %s", body)
	}
}

func TestStartMetricsServerDisabledWhenAddrEmpty(t *testing.T) {
	cfg := &lbconfig.Config{
		Server:    lbconfig.Server{Host: "127.0.0.1", Port: 0, ThreadPoolSize: 1},
		Algorithm: lbconfig.AlgorithmRoundRobin,
		Backends:  []lbconfig.Backend{{Host: "127.0.0.1", Port: 1, Weight: 1}},
	}
	ctrl, err := lb.NewController(cfg, nil)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := ctrl.Start(); err != nil {
		t.Fatalf("start controller: %v", err)
	}
	defer ctrl.Stop()

	if srv := startMetricsServer("", ctrl); srv != nil {
		t.Error("expected nil server when listen address is empty")
	}
}
