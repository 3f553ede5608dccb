package lb

import (
	"net"
	"sync"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
	"go.uber.org/zap"
)

const (
	// listenBacklog is the capacity of the queue of accepted connections
	// waiting for a free worker. It is not passed to the listening
	// socket, whose backlog is the OS default.
	listenBacklog = 50
	// defaultWorkers is the default size of the bounded worker pool.
	defaultWorkers = 100
	// drainTimeout bounds how long Stop waits for in-flight connections
	// to finish before it gives up and returns anyway.
	drainTimeout = 10 * time.Second
)

// Acceptor owns the listening socket and a bounded pool of worker
// goroutines that pull accepted connections off a queue and hand them to
// a Handler. It never spawns one goroutine per connection: the worker
// count is fixed at construction time, which bounds memory and file
// descriptor use under load.
type Acceptor struct {
	addr          string
	workers       int
	proxyProtocol bool
	handler       *Handler
	log           *zap.Logger

	listener net.Listener
	conns    chan net.Conn
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
	closing chan struct{}
}

// NewAcceptor builds an Acceptor that will listen on addr and dispatch
// accepted connections to handler across workers goroutines. A
// non-positive workers falls back to defaultWorkers. When proxyProtocol
// is true, every accepted connection is first unwrapped for a PROXY
// protocol v1/v2 header so the real client address (as seen by an
// upstream load balancer or CDN) replaces the TCP peer address before
// the connection ever reaches the handler.
func NewAcceptor(addr string, workers int, proxyProtocol bool, handler *Handler, log *zap.Logger) *Acceptor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Acceptor{
		addr:          addr,
		workers:       workers,
		proxyProtocol: proxyProtocol,
		handler:       handler,
		log:           log,
	}
}

// Start binds the listener, launches the worker pool, and begins
// accepting connections. It returns once the listener is bound;
// accepting and dispatch happen in background goroutines.
func (a *Acceptor) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	if a.proxyProtocol {
		ln = &proxyproto.Listener{Listener: ln}
	}
	a.listener = ln
	a.conns = make(chan net.Conn, listenBacklog)
	a.closing = make(chan struct{})
	a.running = true

	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	go a.acceptLoop()

	a.log.Info("acceptor started", zap.String("addr", a.addr), zap.Int("workers", a.workers))
	return nil
}

// acceptLoop pulls connections off the listener and feeds them to
// workers via the bounded conns channel; when that channel is full,
// Accept naturally backs off because newly accepted connections block
// on the channel send, which is the bounded-pool backpressure mechanism.
func (a *Acceptor) acceptLoop() {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			select {
			case <-a.closing:
				return
			default:
				a.log.Debug("accept error", zap.Error(err))
				continue
			}
		}
		select {
		case a.conns <- conn:
		case <-a.closing:
			conn.Close()
			return
		}
	}
}

// worker repeatedly pulls a connection off the queue and serves it until
// told to stop.
func (a *Acceptor) worker() {
	defer a.wg.Done()
	for {
		select {
		case conn, ok := <-a.conns:
			if !ok {
				return
			}
			a.handler.Serve(conn)
		case <-a.closing:
			return
		}
	}
}

// Stop closes the listener, stops accepting new connections, and waits
// up to drainTimeout for in-flight connections to finish before
// returning regardless.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.closing)
	a.listener.Close()
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		a.log.Warn("acceptor stop timed out waiting for workers to drain", zap.Duration("timeout", drainTimeout))
	}
}
