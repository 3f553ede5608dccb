package lb

import (
	"math"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Policy decides which backend serves one request. Implementations must be
// safe for concurrent invocation; any internal cursor state (e.g.
// round-robin's counter) is policy-owned, not per-request.
type Policy interface {
	// Select returns a backend from the available set, or nil if the set
	// is empty.
	Select(available Pool, clientIP string) *Backend

	// Name identifies the policy for status output and logging.
	Name() string
}

// RoundRobinPolicy implements weighted round-robin over the available set.
// A single monotonically increasing counter is advanced atomically on
// every call; wrapping is harmless because only the counter modulo the
// total weight matters.
type RoundRobinPolicy struct {
	counter atomic.Uint32
}

// NewRoundRobinPolicy builds a RoundRobinPolicy.
func NewRoundRobinPolicy() *RoundRobinPolicy {
	return &RoundRobinPolicy{}
}

// Select walks the available set accumulating weights, returning the first
// backend whose running sum exceeds the advanced counter modulo the total
// weight. Ties (equal weight) fall out naturally in sequence order.
func (p *RoundRobinPolicy) Select(available Pool, _ string) *Backend {
	if len(available) == 0 {
		return nil
	}
	total := 0
	for _, b := range available {
		total += b.Weight()
	}
	if total <= 0 {
		return available[0]
	}
	c := p.counter.Add(1)
	k := int(c % uint32(total))
	sum := 0
	for _, b := range available {
		sum += b.Weight()
		if sum > k {
			return b
		}
	}
	return available[len(available)-1]
}

// Name identifies this policy as "round-robin".
func (p *RoundRobinPolicy) Name() string { return "round-robin" }

// LeastConnectionsPolicy returns the available backend with the fewest
// active connections, ties broken by sequence order. The comparison is not
// a consistent snapshot across backends (each read is atomic but the scan
// is not), which only loosens optimality and never breaks correctness.
type LeastConnectionsPolicy struct{}

// NewLeastConnectionsPolicy builds a LeastConnectionsPolicy.
func NewLeastConnectionsPolicy() *LeastConnectionsPolicy {
	return &LeastConnectionsPolicy{}
}

// Select scans the available set once, keeping the first backend seen
// with the smallest active-connection count.
func (p *LeastConnectionsPolicy) Select(available Pool, _ string) *Backend {
	if len(available) == 0 {
		return nil
	}
	best := available[0]
	bestConns := int64(math.MaxInt64)
	for _, b := range available {
		c := b.ActiveConnections()
		if c < bestConns {
			bestConns = c
			best = b
		}
	}
	return best
}

// Name identifies this policy as "least-connections".
func (p *LeastConnectionsPolicy) Name() string { return "least-connections" }

// IPHashPolicy routes a given client IP to the same backend for as long as
// the available set is unchanged, using a stable 31-bit hash of the IP.
type IPHashPolicy struct{}

// NewIPHashPolicy builds an IPHashPolicy.
func NewIPHashPolicy() *IPHashPolicy {
	return &IPHashPolicy{}
}

// Select hashes clientIP and indexes into the available set modulo its
// length. Set membership changes (backends flipping availability) may
// reroute a given client, by design.
func (p *IPHashPolicy) Select(available Pool, clientIP string) *Backend {
	if len(available) == 0 {
		return nil
	}
	h := hashClientIP(clientIP)
	return available[int(h)%len(available)]
}

// Name identifies this policy as "ip-hash".
func (p *IPHashPolicy) Name() string { return "ip-hash" }

// hashClientIP returns a non-negative 31-bit hash of s.
func hashClientIP(s string) uint32 {
	return uint32(xxhash.Sum64String(s) & 0x7fffffff)
}
