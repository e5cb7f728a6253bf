package simple_dispatch

import (
	"net"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// connState is installed as every worker's transport connection hook.
// It keeps the set of live connections so Close can reach them.
func (srv *Server[T]) connState(c net.Conn, state fasthttp.ConnState) {
	switch state {
	case fasthttp.StateNew:
		srv.trackConn(c, true)
	case fasthttp.StateHijacked, fasthttp.StateClosed:
		srv.trackConn(c, false)
	}
}

func (srv *Server[T]) trackConn(c net.Conn, add bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.activeConn == nil {
		srv.activeConn = make(map[net.Conn]struct{})
	}
	if add {
		srv.activeConn[c] = struct{}{}
	} else {
		delete(srv.activeConn, c)
	}
	srv.openConns.Store(int64(len(srv.activeConn)))
	srv.Metrics.setOpenConns(len(srv.activeConn))
}

// onceCloseListener wraps a net.Listener, protecting it from
// multiple Close calls.
type onceCloseListener struct {
	net.Listener
	once     sync.Once
	closeErr error
}

func (oc *onceCloseListener) Close() error {
	oc.once.Do(oc.close)
	return oc.closeErr
}

func (oc *onceCloseListener) close() { oc.closeErr = oc.Listener.Close() }

// tcpKeepAliveListener sets TCP keep-alive timeouts on accepted
// connections so dead TCP connections eventually go away.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
