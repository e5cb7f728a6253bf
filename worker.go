package simple_dispatch

import (
	"net"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// A worker runs one transport server accepting from the shared
// listener and dispatches every request it reads to the handler.
type worker[T any] struct {
	id  int
	srv *Server[T]
	sh  serverHandler[T]
}

func (srv *Server[T]) newWorker(id int) *worker[T] {
	if srv.handler == nil {
		panic("simple_dispatch: invalid handler")
	}
	log := srv.logger()
	if id >= 0 {
		log = log.With(zap.Int("worker", id))
	}
	return &worker[T]{
		id:  id,
		srv: srv,
		sh: serverHandler[T]{
			handler: srv.handler,
			ctx:     srv.context,
			log:     log,
			metrics: srv.Metrics,
		},
	}
}

// dispatch runs one request from the transport through the handler and back.
func (w *worker[T]) dispatch(in Inbound, out Outbound) {
	req := newRequest(in, w.srv.sanitize, int64(w.srv.maxBodySize()), w.sh.log, w.sh.metrics)
	defer req.release()

	res := NewResponse()
	w.sh.serve(req, res)
	if err := res.WriteTo(out); err != nil {
		w.sh.log.Debug("response not written", zap.String("path", req.Path()), zap.Error(err))
	}
}

func (w *worker[T]) serve(ln net.Listener) error {
	s := &fasthttp.Server{
		Handler:            w.serveFastHTTP,
		Name:               w.srv.name(),
		ReadTimeout:        w.srv.ReadTimeout,
		WriteTimeout:       w.srv.WriteTimeout,
		IdleTimeout:        w.srv.idleTimeout(),
		MaxRequestBodySize: w.srv.maxBodySize(),
		Concurrency:        w.srv.Concurrency,
		ConnState:          w.srv.connState,
		Logger:             zap.NewStdLog(w.sh.log),
	}
	return s.Serve(ln)
}

func (w *worker[T]) serveFastHTTP(ctx *fasthttp.RequestCtx) {
	w.dispatch(fastHTTPInbound{ctx}, fastHTTPOutbound{&ctx.Response})
}
