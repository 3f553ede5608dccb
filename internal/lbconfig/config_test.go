package lbconfig

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]byte(`
backends:
  - host: 127.0.0.1
    port: 9001
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Algorithm != AlgorithmRoundRobin {
		t.Errorf("expected default algorithm round-robin, got %s", cfg.Algorithm)
	}
	if cfg.Backends[0].Weight != 1 {
		t.Errorf("expected default weight 1, got %d", cfg.Backends[0].Weight)
	}
	if cfg.HealthCheck.IntervalDuration != 10*time.Second {
		t.Errorf("expected default health interval 10s, got %s", cfg.HealthCheck.IntervalDuration)
	}
}

func TestLoadBareIntegerDurations(t *testing.T) {
	cfg, err := Load([]byte(`
backends:
  - {host: a, port: 1}
health_check:
  interval: "5"
  timeout: "1"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HealthCheck.IntervalDuration != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.HealthCheck.IntervalDuration)
	}
	if cfg.HealthCheck.TimeoutDuration != 1*time.Second {
		t.Errorf("expected 1s, got %s", cfg.HealthCheck.TimeoutDuration)
	}
}

func TestValidateRejectsBadAlgorithm(t *testing.T) {
	_, err := Load([]byte(`
algorithm: sticky-sessions
backends:
  - {host: a, port: 1}
`))
	if err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestValidateRejectsNoBackends(t *testing.T) {
	_, err := Load([]byte(`algorithm: round-robin`))
	if err == nil {
		t.Fatal("expected error for empty backend list")
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	_, err := Load([]byte(`
backends:
  - {host: a, port: 70000}
`))
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
