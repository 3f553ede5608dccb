package lbcmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatusServerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lbproxy.pid.sock")

	stopped := make(chan struct{})
	srv, err := newStatusServer(path, func() string { return "status: running\n" }, func() { close(stopped) })
	if err != nil {
		t.Fatalf("newStatusServer: %v", err)
	}
	go srv.Serve()
	defer srv.Close()

	resp, err := dialStatusSocket(path, "STATUS")
	if err != nil {
		t.Fatalf("dial STATUS: %v", err)
	}
	if resp != "status: running\n" {
		t.Errorf("unexpected status response: %q", resp)
	}

	if _, err := dialStatusSocket(path, "STOP"); err != nil {
		t.Fatalf("dial STOP: %v", err)
	}
	<-stopped
}

func TestPidfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lbproxy.pid")

	if err := writePidfile(path); err != nil {
		t.Fatalf("writePidfile: %v", err)
	}
	pid, err := readPidfile(path)
	if err != nil {
		t.Fatalf("readPidfile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), pid)
	}

	removePidfile(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected pidfile removed")
	}
}
