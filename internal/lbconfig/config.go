// Package lbconfig decodes and validates the YAML configuration record
// consumed by the load balancer core at startup.
package lbconfig

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Algorithm names accepted by the selection-policy layer.
const (
	AlgorithmRoundRobin = "round-robin"
	AlgorithmLeastConns = "least-connections"
	AlgorithmIPHash     = "ip-hash"
)

// Server holds the listener configuration.
type Server struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ThreadPoolSize int    `yaml:"thread_pool_size"`
	ProxyProtocol  bool   `yaml:"proxy_protocol"`
}

// Backend describes one configured origin.
type Backend struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Weight int    `yaml:"weight"`
}

// HealthCheck holds the supervisor's probing parameters.
type HealthCheck struct {
	Enabled            bool   `yaml:"enabled"`
	Interval           string `yaml:"interval"`
	Timeout            string `yaml:"timeout"`
	Path               string `yaml:"path"`
	UnhealthyThreshold int    `yaml:"unhealthy_threshold"`
	HealthyThreshold   int    `yaml:"healthy_threshold"`

	// parsed forms, filled in by Validate
	IntervalDuration time.Duration `yaml:"-"`
	TimeoutDuration  time.Duration `yaml:"-"`
}

// Metrics holds the optional metrics-listener configuration.
type Metrics struct {
	Listen string `yaml:"listen"`
}

// Logging holds the zap logger configuration.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the root configuration record.
type Config struct {
	Server      Server      `yaml:"server"`
	Algorithm   string      `yaml:"algorithm"`
	Backends    []Backend   `yaml:"backends"`
	HealthCheck HealthCheck `yaml:"health_check"`
	Logging     Logging     `yaml:"logging"`
	Metrics     Metrics     `yaml:"metrics"`
}

// Load parses YAML bytes into a Config, applies defaults, and validates it.
func Load(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config pre-filled with the documented defaults; callers
// then unmarshal YAML on top of it so omitted fields keep their default.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:           "0.0.0.0",
			Port:           8080,
			ThreadPoolSize: 100,
		},
		Algorithm: AlgorithmRoundRobin,
		HealthCheck: HealthCheck{
			Enabled:            true,
			Interval:           "10s",
			Timeout:            "2s",
			Path:               "/health",
			UnhealthyThreshold: 3,
			HealthyThreshold:   2,
		},
		Logging: Logging{
			Level: "INFO",
		},
	}
}

// Validate checks field ranges and fills in the parsed duration fields.
// Load calls it, which is how the `validate` CLI subcommand runs it.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1..65535", c.Server.Port)
	}
	if c.Server.ThreadPoolSize <= 0 {
		return fmt.Errorf("server.thread_pool_size must be positive")
	}

	switch c.Algorithm {
	case AlgorithmRoundRobin, AlgorithmLeastConns, AlgorithmIPHash:
	default:
		return fmt.Errorf("algorithm %q is not one of %s, %s, %s",
			c.Algorithm, AlgorithmRoundRobin, AlgorithmLeastConns, AlgorithmIPHash)
	}

	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}
	for i := range c.Backends {
		b := &c.Backends[i]
		if b.Host == "" {
			return fmt.Errorf("backends[%d].host must not be empty", i)
		}
		if b.Port < 1 || b.Port > 65535 {
			return fmt.Errorf("backends[%d].port %d out of range 1..65535", i, b.Port)
		}
		if b.Weight == 0 {
			b.Weight = 1
		}
		if b.Weight < 1 {
			return fmt.Errorf("backends[%d].weight must be >= 1", i)
		}
	}

	if c.HealthCheck.Enabled {
		if c.HealthCheck.Path == "" {
			c.HealthCheck.Path = "/health"
		}
		if c.HealthCheck.UnhealthyThreshold < 1 {
			return fmt.Errorf("health_check.unhealthy_threshold must be >= 1")
		}
		if c.HealthCheck.HealthyThreshold < 1 {
			return fmt.Errorf("health_check.healthy_threshold must be >= 1")
		}
		interval, err := parseSecondsOrDuration(c.HealthCheck.Interval, 10*time.Second)
		if err != nil {
			return fmt.Errorf("health_check.interval: %w", err)
		}
		timeout, err := parseSecondsOrDuration(c.HealthCheck.Timeout, 2*time.Second)
		if err != nil {
			return fmt.Errorf("health_check.timeout: %w", err)
		}
		c.HealthCheck.IntervalDuration = interval
		c.HealthCheck.TimeoutDuration = timeout
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level %q must be one of DEBUG, INFO, WARN, ERROR", c.Logging.Level)
	}

	return nil
}

// parseSecondsOrDuration accepts either a bare integer (seconds) or a
// Go duration string such as "2s" / "500ms". Empty strings use def.
func parseSecondsOrDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	isDigits := true
	for _, r := range s {
		if r < '0' || r > '9' {
			isDigits = false
			break
		}
	}
	if isDigits {
		s += "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
