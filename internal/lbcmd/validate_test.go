package lbcmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunValidateAcceptsGoodConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lbproxy.yaml")
	os.WriteFile(path, []byte("backends:\n  - host: a\n    port: 1\n"), 0o644)

	if err := runValidate(path); err != nil {
		t.Fatalf("expected valid config to pass, got: %v", err)
	}
}

func TestRunValidateRejectsMissingFile(t *testing.T) {
	if err := runValidate(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
