package simple_dispatch

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelloWorldHandler(t *testing.T) {
	res := NewResponse()
	HelloWorldHandler[struct{}]().Handle(NewRequest(&fakeInbound{}, false), res, struct{}{})

	body, ok := res.BodyBytes()
	require.True(t, ok)
	assert.Equal(t, "hello, world!", string(body))
	assert.Equal(t, http.StatusOK, res.StatusCode())
}

func TestServeNoopHandlerDefaults(t *testing.T) {
	sh := serverHandler[int]{
		handler: HandlerFunc[int](func(*Request, *Response, int) {}),
		log:     zap.NewNop(),
	}
	res := NewResponse()
	sh.serve(NewRequest(&fakeInbound{method: "GET"}, false), res)

	assert.Equal(t, http.StatusOK, res.StatusCode())
	_, ok := res.BodyBytes()
	assert.False(t, ok)
}

func TestServePassesContext(t *testing.T) {
	type appCtx struct{ greeting string }
	sh := serverHandler[appCtx]{
		handler: HandlerFunc[appCtx](func(_ *Request, res *Response, ctx appCtx) {
			_ = res.Body([]byte(ctx.greeting))
		}),
		ctx: appCtx{greeting: "hi"},
		log: zap.NewNop(),
	}
	res := NewResponse()
	sh.serve(NewRequest(&fakeInbound{}, false), res)

	body, _ := res.BodyBytes()
	assert.Equal(t, "hi", string(body))
}

func TestServeRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	m := NewMetrics(prometheus.NewRegistry())
	sh := serverHandler[string]{
		handler: HandlerFunc[string](func(_ *Request, res *Response, _ string) {
			res.AddHeader("X-Half", "done")
			_ = res.Body([]byte("partial"))
			panic("boom")
		}),
		log:     zap.New(core),
		metrics: m,
	}
	res := NewResponse()
	req := NewRequest(&fakeInbound{method: "GET", path: "/explode"}, false)

	assert.NotPanics(t, func() { sh.serve(req, res) })

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
	assert.Empty(t, res.Headers())
	_, ok := res.BodyBytes()
	assert.False(t, ok)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "panic serving request", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["panic"])
	assert.Equal(t, "/explode", entry.ContextMap()["path"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.panics))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "500")))
}

func TestServeReplacesInvalidStatus(t *testing.T) {
	for _, code := range []int{0, 99, 1000, -1} {
		core, logs := observer.New(zap.WarnLevel)
		sh := serverHandler[int]{
			handler: HandlerFunc[int](func(_ *Request, res *Response, _ int) {
				res.AddHeader("X-Kept", "no")
				res.Status(code)
				_ = res.Body([]byte("half"))
			}),
			log: zap.New(core),
		}
		res := NewResponse()
		sh.serve(NewRequest(&fakeInbound{method: "GET", path: "/status"}, false), res)

		assert.Equal(t, http.StatusInternalServerError, res.StatusCode(), "code %d", code)
		assert.Empty(t, res.Headers())
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "invalid response status", logs.All()[0].Message)
		assert.Equal(t, int64(code), logs.All()[0].ContextMap()["status"])
	}
}
