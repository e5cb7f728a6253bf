package simple_dispatch

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Handler is implemented by application routers. Handle is called once
// per request; all effects go through res. ctx is the application
// context the server was built with and must be treated as read-only.
type Handler[T any] interface {
	Handle(req *Request, res *Response, ctx T)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc[T any] func(req *Request, res *Response, ctx T)

// Handle calls f(req, res, ctx).
func (f HandlerFunc[T]) Handle(req *Request, res *Response, ctx T) {
	f(req, res, ctx)
}

// Cloner is implemented by handlers and contexts that want a private
// copy per request instead of one shared value. Clone is called once
// for every dispatched request, concurrently from many goroutines, so it
// must only read the receiver.
type Cloner[V any] interface {
	Clone() V
}

// HelloWorld replies to every request with "hello, world!".
func HelloWorld[T any](_ *Request, res *Response, _ T) {
	_ = res.Body([]byte("hello, world!"))
}

// HelloWorldHandler returns a handler that replies to each request
// with a "hello, world!" body.
func HelloWorldHandler[T any]() Handler[T] { return HandlerFunc[T](HelloWorld[T]) }

// serverHandler runs one request through a worker's handler copy.
type serverHandler[T any] struct {
	handler Handler[T]
	ctx     T
	log     *zap.Logger
	metrics *Metrics
}

// serve invokes the handler and isolates a panic to this request: the
// response becomes a bare 500 and the worker carries on. A status no
// transport can send is turned into a 500 the same way.
func (sh serverHandler[T]) serve(req *Request, res *Response) {
	start := time.Now()
	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			sh.log.Error("panic serving request",
				zap.String("remote", req.RemoteAddr()),
				zap.String("method", req.Method()),
				zap.String("path", req.Path()),
				zap.String("panic", fmt.Sprint(err)),
				zap.ByteString("stack", buf))
			sh.metrics.panicked()
			res.reset()
			res.Status(http.StatusInternalServerError)
		}
		if code := res.StatusCode(); !validStatus(code) {
			sh.log.Warn("invalid response status",
				zap.String("method", req.Method()),
				zap.String("path", req.Path()),
				zap.Int("status", code))
			res.reset()
			res.Status(http.StatusInternalServerError)
		}
		sh.metrics.observe(req.Method(), res.StatusCode(), time.Since(start))
	}()

	h, ctx := sh.handler, sh.ctx
	if c, ok := any(h).(Cloner[Handler[T]]); ok {
		h = c.Clone()
	}
	if c, ok := any(ctx).(Cloner[T]); ok {
		ctx = c.Clone()
	}
	h.Handle(req, res, ctx)
}

// validStatus reports whether code has the three digits a status line
// carries.
func validStatus(code int) bool { return code >= 100 && code <= 999 }
