package lb

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/loadbalancer-project/lbproxy/internal/lbconfig"
	"github.com/stretchr/testify/require"
)

// TestEndToEndRoundRobinAcrossTwoBackends exercises config loading,
// controller startup, and request dispatch together; require's
// fail-fast assertions keep the multi-step setup readable instead of a
// long chain of manual if-err blocks.
func TestEndToEndRoundRobinAcrossTwoBackends(t *testing.T) {
	var hits [2]int
	backends := make([]*httptest.Server, 2)
	for i := range backends {
		i := i
		backends[i] = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits[i]++
			w.Write([]byte("backend"))
		}))
	}
	defer backends[0].Close()
	defer backends[1].Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	_, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := &lbconfig.Config{
		Server:    lbconfig.Server{Host: "127.0.0.1", Port: port, ThreadPoolSize: 4},
		Algorithm: lbconfig.AlgorithmRoundRobin,
	}
	for _, srv := range backends {
		_, bp, err := net.SplitHostPort(srv.Listener.Addr().String())
		require.NoError(t, err)
		bport, err := strconv.Atoi(bp)
		require.NoError(t, err)
		cfg.Backends = append(cfg.Backends, lbconfig.Backend{Host: "127.0.0.1", Port: bport, Weight: 1})
	}

	ctrl, err := NewController(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start())
	defer ctrl.Stop()

	time.Sleep(20 * time.Millisecond)

	client := &http.Client{Timeout: time.Second}
	for i := 0; i < 4; i++ {
		resp, err := client.Get("http://" + addr + "/")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	require.Equal(t, 2, hits[0])
	require.Equal(t, 2, hits[1])
}
