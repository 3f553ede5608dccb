package lb

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/loadbalancer-project/lbproxy/internal/lbconfig"
	"go.uber.org/zap"
)

// Controller owns one load balancer instance end to end: the backend
// pool, the selection policy, the optional health supervisor, and the
// acceptor. Start and Stop are idempotent and safe to call from any
// goroutine; a second Start while already running is a no-op, and Stop
// before Start is also a no-op.
type Controller struct {
	cfg     *lbconfig.Config
	log     *zap.Logger
	metrics *Metrics

	pool       Pool
	policy     Policy
	handler    *Handler
	acceptor   *Acceptor
	supervisor *Supervisor

	mu      sync.Mutex
	started atomic.Bool
}

// NewController builds a Controller from a validated configuration. It
// does not start anything; call Start for that.
func NewController(cfg *lbconfig.Config, log *zap.Logger) (*Controller, error) {
	if log == nil {
		log = zap.NewNop()
	}

	pool := make(Pool, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		pool = append(pool, NewBackend(b.Host, b.Port, b.Weight))
	}

	policy, err := buildPolicy(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	return &Controller{
		cfg:    cfg,
		log:    log,
		pool:   pool,
		policy: policy,
	}, nil
}

// buildPolicy maps a configured algorithm name to a Policy
// implementation.
func buildPolicy(alg string) (Policy, error) {
	switch alg {
	case lbconfig.AlgorithmRoundRobin, "":
		return NewRoundRobinPolicy(), nil
	case lbconfig.AlgorithmLeastConns:
		return NewLeastConnectionsPolicy(), nil
	case lbconfig.AlgorithmIPHash:
		return NewIPHashPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", alg)
	}
}

// Start brings every subsystem up in dependency order: backend records
// already exist from NewController, so what remains is the metrics
// registry, the health supervisor (if enabled), and finally the
// acceptor, which is the only subsystem that can make the process
// visible on the network. If any step fails, Start tears down whatever
// it already brought up before returning the error.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started.Load() {
		return nil
	}

	c.metrics = NewMetrics()
	for _, b := range c.pool {
		c.metrics.SetAvailable(b.Addr(), b.Available())
	}

	if c.cfg.HealthCheck.Enabled {
		c.supervisor = NewSupervisor(c.pool, HealthCheckConfig{
			Interval:           c.cfg.HealthCheck.IntervalDuration,
			Timeout:            c.cfg.HealthCheck.TimeoutDuration,
			Path:               c.cfg.HealthCheck.Path,
			UnhealthyThreshold: c.cfg.HealthCheck.UnhealthyThreshold,
			HealthyThreshold:   c.cfg.HealthCheck.HealthyThreshold,
		}, c.metrics, c.log)
		c.supervisor.Start()
	}

	c.handler = NewHandler(c.pool, c.policy, c.metrics, c.log)
	addr := fmt.Sprintf("%s:%d", c.cfg.Server.Host, c.cfg.Server.Port)
	c.acceptor = NewAcceptor(addr, c.cfg.Server.ThreadPoolSize, c.cfg.Server.ProxyProtocol, c.handler, c.log)
	if err := c.acceptor.Start(); err != nil {
		c.stopLocked()
		return fmt.Errorf("start acceptor: %w", err)
	}

	c.started.Store(true)
	c.log.Info("controller started", zap.String("addr", addr), zap.Int("backends", len(c.pool)))
	return nil
}

// Stop tears every subsystem down in the reverse of start order:
// acceptor first (so no new connection can begin once we start
// shutting down), then the health supervisor, leaving the in-memory
// backend records to be garbage collected with the Controller itself.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started.Load() {
		return
	}
	c.stopLocked()
	c.started.Store(false)
	c.log.Info("controller stopped")
}

// stopLocked performs the actual teardown; callers must hold c.mu.
func (c *Controller) stopLocked() {
	if c.acceptor != nil {
		c.acceptor.Stop()
	}
	if c.supervisor != nil {
		c.supervisor.Stop()
	}
}

// Running reports whether the controller is currently started.
func (c *Controller) Running() bool {
	return c.started.Load()
}

// Metrics exposes the controller's metrics registry, or nil if the
// controller has never been started.
func (c *Controller) Metrics() *Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Pool exposes the backend pool for status reporting.
func (c *Controller) Pool() Pool {
	return c.pool
}
