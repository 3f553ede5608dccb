package lb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthCheckConfig configures one supervisor run.
type HealthCheckConfig struct {
	Interval           time.Duration
	Timeout            time.Duration
	Path               string
	UnhealthyThreshold int
	HealthyThreshold   int
}

// Supervisor periodically probes every backend in a pool over HTTP and
// flips each one's availability bit using consecutive-failure/success
// hysteresis, so routing only ever selects backends that have proven
// themselves over a run of probes, and brief blips don't cause flapping.
type Supervisor struct {
	pool    Pool
	cfg     HealthCheckConfig
	client  *http.Client
	metrics *Metrics
	log     *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewSupervisor builds a Supervisor over pool using cfg.
func NewSupervisor(pool Pool, cfg HealthCheckConfig, metrics *Metrics, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		pool: pool,
		cfg:  cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: metrics,
		log:     log,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the periodic probe loop in a background goroutine.
func (s *Supervisor) Start() {
	go s.run()
}

// Stop cancels the timer and waits up to 5s for the in-flight tick to
// finish before returning.
func (s *Supervisor) Stop() {
	close(s.stop)
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
	}
	s.client.CloseIdleConnections()
}

func (s *Supervisor) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.probeAll()
		case <-s.stop:
			return
		}
	}
}

// probeAll serially probes every backend in the pool, one after another;
// a slow probe (bounded by the probe timeout) delays the probes that
// follow it in the same tick.
func (s *Supervisor) probeAll() {
	for _, b := range s.pool {
		result := s.probe(b)
		s.apply(b, result)
	}
}

// probeResult is the transient outcome of a single probe.
type probeResult struct {
	healthy bool
	elapsed time.Duration
	message string
}

// probe performs one HTTP GET against a backend's health endpoint. Any
// status other than exactly 200, a connection failure, a timeout, or an
// I/O error all count as a failure.
func (s *Supervisor) probe(b *Backend) probeResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", b.Addr(), s.cfg.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return probeResult{healthy: false, elapsed: time.Since(start), message: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return probeResult{healthy: false, elapsed: time.Since(start), message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return probeResult{
			healthy: false,
			elapsed: time.Since(start),
			message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}
	return probeResult{healthy: true, elapsed: time.Since(start)}
}

// apply updates a backend's counters and, when a hysteresis threshold is
// crossed, flips its availability bit. Counters reset on every state
// transition so a streak can never straddle two different outcomes.
func (s *Supervisor) apply(b *Backend, result probeResult) {
	addr := b.Addr()
	if result.healthy {
		s.metrics.ObserveProbe(addr, "success")
		successes := b.RecordSuccess()
		if !b.Available() && successes >= int64(s.cfg.HealthyThreshold) {
			b.SetAvailable(true)
			b.ResetSuccessStreak()
			s.metrics.SetAvailable(addr, true)
			s.log.Info("backend recovered", zap.String("backend", addr), zap.Duration("probe_latency", result.elapsed))
		}
		return
	}

	s.metrics.ObserveProbe(addr, "failure")
	failures := b.RecordFailure()
	if b.Available() && failures >= int64(s.cfg.UnhealthyThreshold) {
		b.SetAvailable(false)
		b.ResetFailureStreak()
		s.metrics.SetAvailable(addr, false)
		s.log.Warn("backend failed over",
			zap.String("backend", addr),
			zap.String("reason", result.message),
			zap.Duration("probe_latency", result.elapsed))
	}
}
