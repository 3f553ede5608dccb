package lb

import (
	"bufio"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// backendConnectTimeout bounds dialing the chosen backend.
	backendConnectTimeout = 3 * time.Second
	// backendReadTimeout bounds every read from the backend connection.
	backendReadTimeout = 30 * time.Second
)

const serviceUnavailableBody = "Service Unavailable"

// Handler orchestrates one client connection end-to-end: snapshot
// available backends, select one, dial it, relay the request, relay the
// response, and tear down both sockets. One Handler instance is shared by
// every worker; it holds no per-connection state of its own.
type Handler struct {
	pool    Pool
	policy  Policy
	dialer  net.Dialer
	metrics *Metrics
	log     *zap.Logger
}

// NewHandler builds a Handler over the given backend pool and selection
// policy.
func NewHandler(pool Pool, policy Policy, metrics *Metrics, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		pool:    pool,
		policy:  policy,
		dialer:  net.Dialer{Timeout: backendConnectTimeout},
		metrics: metrics,
		log:     log,
	}
}

// Serve handles one accepted client connection. It always closes client
// before returning.
func (h *Handler) Serve(client net.Conn) {
	defer client.Close()

	connID := uuid.New()
	clientIP := remoteIP(client)
	available := h.pool.Available()
	if len(available) == 0 {
		h.metrics.ObserveOutcome("", "no_backend")
		writeServiceUnavailable(client)
		return
	}

	backend := h.policy.Select(available, clientIP)
	if backend == nil {
		h.metrics.ObserveOutcome("", "no_backend")
		writeServiceUnavailable(client)
		return
	}

	backend.IncrConnections()
	h.metrics.SetActiveConnections(backend.Addr(), backend.ActiveConnections())
	defer func() {
		backend.DecrConnections()
		h.metrics.SetActiveConnections(backend.Addr(), backend.ActiveConnections())
	}()

	start := time.Now()
	upstream, err := h.dialer.Dial("tcp", backend.Addr())
	if err != nil {
		h.log.Debug("backend dial failed",
			zap.String("conn_id", connID.String()), zap.String("backend", backend.Addr()), zap.Error(err))
		h.metrics.ObserveOutcome(backend.Addr(), "backend_error")
		return
	}
	defer upstream.Close()
	_ = upstream.SetReadDeadline(time.Now().Add(backendReadTimeout))

	if err := h.forward(client, upstream); err != nil {
		h.log.Debug("forwarding error",
			zap.String("conn_id", connID.String()), zap.String("backend", backend.Addr()), zap.Error(err))
		h.metrics.ObserveOutcome(backend.Addr(), "backend_error")
		h.metrics.ObserveLatency(backend.Addr(), time.Since(start))
		return
	}

	h.metrics.ObserveOutcome(backend.Addr(), "ok")
	h.metrics.ObserveLatency(backend.Addr(), time.Since(start))
}

// forward relays exactly one request (client -> backend) followed by
// exactly one response (backend -> client). There is no pipelining: the
// two phases never interleave, which is correct for HTTP/1.1 without
// pipelining support.
func (h *Handler) forward(client, backend net.Conn) error {
	clientReader := bufio.NewReader(client)
	backendWriter := bufio.NewWriter(backend)
	if _, err := relayMessage(backendWriter, clientReader, requestMessage); err != nil {
		return err
	}

	backendReader := bufio.NewReader(backend)
	clientWriter := bufio.NewWriter(client)
	if _, err := relayMessage(clientWriter, backendReader, responseMessage); err != nil {
		return err
	}
	return nil
}

// writeServiceUnavailable writes the proxy's own minimal 503 response when
// no backend is selectable. The body is exactly the reason phrase.
func writeServiceUnavailable(client net.Conn) {
	body := serviceUnavailableBody
	resp := "HTTP/1.1 503 Service Unavailable\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n\r\n" + body
	_, _ = client.Write([]byte(resp))
}

// remoteIP extracts the bare IP from a net.Conn's remote address, falling
// back to the raw string if it cannot be split.
func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
