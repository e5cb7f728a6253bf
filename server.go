package simple_dispatch

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	atom "go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	ErrServerClosed    = errors.New("simple_dispatch: server closed")
	ErrServerAddrError = errors.New("simple_dispatch: address error")
	ErrBodyTooLarge    = errors.New("simple_dispatch: request body too large")
)

const defaultServerName = "simple_dispatch"

// A Server binds one handler and one application context to a listener
// and dispatches every request to the handler. Per request it builds a
// fresh Request and Response; the handler and context are shared, or
// copied for each request when they implement Cloner.
//
// Tuning fields must be set before Serve is called.
type Server[T any] struct {
	// Name is sent in the Server response header.
	Name string

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out
	// writes of the response.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the
	// next request on a keep-alive connection. If zero, ReadTimeout
	// is used.
	IdleTimeout time.Duration

	// MaxBodySize bounds buffered request bodies. Zero means
	// DefaultMaxBodySize.
	MaxBodySize int

	// Concurrency caps in-flight connections per worker. Zero leaves
	// the transport default.
	Concurrency int

	// Logger receives dispatch and transport diagnostics. If nil,
	// zap.L() is used.
	Logger *zap.Logger

	// Metrics, if set, records request and connection metrics.
	Metrics *Metrics

	handler  Handler[T]
	context  T
	sanitize bool
	threads  int

	inShutdown atom.Bool
	openConns  atom.Int64

	mu         sync.Mutex
	listeners  map[*net.Listener]struct{}
	activeConn map[net.Conn]struct{}
	doneChan   chan struct{}

	directOnce sync.Once
	direct     *worker[T]
}

// New returns a Server dispatching to handler with ctx as the shared
// application context. It serves with a single worker until Threads is
// called.
func New[T any](handler Handler[T], ctx T) *Server[T] {
	return &Server[T]{
		handler: handler,
		context: ctx,
		threads: 1,
	}
}

// Sanitize makes form values HTML-escaped when decoded.
func (srv *Server[T]) Sanitize() *Server[T] {
	srv.sanitize = true
	return srv
}

// Threads sets the number of workers. Values below 1 mean 1.
func (srv *Server[T]) Threads(n int) *Server[T] {
	if n < 1 {
		n = 1
	}
	srv.threads = n
	return srv
}

// ListenAndServe listens on the TCP address addr and then calls Serve.
// It blocks until the server is closed.
//
// If addr is blank, the returned error is ErrServerAddrError.
func (srv *Server[T]) ListenAndServe(addr string) error {
	if srv.shuttingDown() {
		return ErrServerClosed
	}
	if len(addr) == 0 {
		return ErrServerAddrError
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if tl, ok := ln.(*net.TCPListener); ok {
		ln = tcpKeepAliveListener{tl}
	}
	return srv.Serve(ln)
}

// Serve accepts connections on l with every worker until l is closed
// or a worker fails. After Close it returns ErrServerClosed.
func (srv *Server[T]) Serve(l net.Listener) error {
	l = &onceCloseListener{Listener: l}
	defer l.Close()

	if !srv.trackListener(&l, true) {
		return ErrServerClosed
	}
	defer srv.trackListener(&l, false)

	workers := make([]*worker[T], srv.threads)
	for i := range workers {
		workers[i] = srv.newWorker(i)
	}

	errs := make(chan error, len(workers))
	for _, w := range workers {
		w := w
		go func() { errs <- w.serve(l) }()
	}

	var first error
	for range workers {
		err := <-errs
		if err != nil && first == nil {
			first = err
			srv.logger().Error("worker stopped", zap.Error(err))
			// the remaining workers return once the listener is gone
			l.Close()
		}
	}

	select {
	case <-srv.getDoneChan():
		return ErrServerClosed
	default:
	}
	return first
}

// ServeHTTP dispatches a net/http request through the same path as the
// built-in transport, so the server can be mounted in any net/http stack.
func (srv *Server[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.directOnce.Do(func() {
		srv.direct = srv.newWorker(-1)
	})
	srv.direct.dispatch(netHTTPInbound{r}, netHTTPOutbound{w})
}

// Close immediately closes all listeners and tracked connections.
// In-flight handlers are not waited for.
func (srv *Server[T]) Close() error {
	srv.inShutdown.Store(true)
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.closeDoneChanLocked()
	err := srv.closeListenersLocked()
	for c := range srv.activeConn {
		c.Close()
		delete(srv.activeConn, c)
	}
	return err
}

// OpenConns returns the number of connections currently tracked.
func (srv *Server[T]) OpenConns() int {
	return int(srv.openConns.Load())
}

func (srv *Server[T]) shuttingDown() bool {
	return srv.inShutdown.Load()
}

func (srv *Server[T]) trackListener(ln *net.Listener, add bool) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.listeners == nil {
		srv.listeners = make(map[*net.Listener]struct{})
	}
	if add {
		if srv.shuttingDown() {
			return false
		}
		srv.listeners[ln] = struct{}{}
	} else {
		delete(srv.listeners, ln)
	}
	return true
}

func (srv *Server[T]) closeListenersLocked() error {
	var err error
	for ln := range srv.listeners {
		if cerr := (*ln).Close(); cerr != nil && err == nil {
			err = cerr
		}
		delete(srv.listeners, ln)
	}
	return err
}

func (srv *Server[T]) getDoneChan() <-chan struct{} {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.getDoneChanLocked()
}

func (srv *Server[T]) getDoneChanLocked() chan struct{} {
	if srv.doneChan == nil {
		srv.doneChan = make(chan struct{})
	}
	return srv.doneChan
}

func (srv *Server[T]) closeDoneChanLocked() {
	ch := srv.getDoneChanLocked()
	select {
	case <-ch:
		// Already closed. Don't close again.
	default:
		close(ch)
	}
}

func (srv *Server[T]) logger() *zap.Logger {
	if srv.Logger != nil {
		return srv.Logger
	}
	return zap.L()
}

func (srv *Server[T]) name() string {
	if srv.Name != "" {
		return srv.Name
	}
	return defaultServerName
}

func (srv *Server[T]) maxBodySize() int {
	if srv.MaxBodySize > 0 {
		return srv.MaxBodySize
	}
	return DefaultMaxBodySize
}

func (srv *Server[T]) idleTimeout() time.Duration {
	if srv.IdleTimeout != 0 {
		return srv.IdleTimeout
	}
	return srv.ReadTimeout
}
