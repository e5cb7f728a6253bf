package simple_dispatch

import (
	"bytes"
	"io"

	"github.com/valyala/fasthttp"
)

// fastHTTPInbound exposes a fasthttp request as an Inbound. fasthttp
// has already buffered the body by the time the handler runs.
type fastHTTPInbound struct {
	ctx *fasthttp.RequestCtx
}

func (in fastHTTPInbound) Method() string { return string(in.ctx.Method()) }

func (in fastHTTPInbound) RequestURI() string { return string(in.ctx.RequestURI()) }

func (in fastHTTPInbound) Path() string { return string(in.ctx.Path()) }

func (in fastHTTPInbound) QueryString() string { return string(in.ctx.URI().QueryString()) }

func (in fastHTTPInbound) Proto() string {
	if in.ctx.Request.Header.IsHTTP11() {
		return "HTTP/1.1"
	}
	return "HTTP/1.0"
}

func (in fastHTTPInbound) RemoteAddr() string { return in.ctx.RemoteAddr().String() }

func (in fastHTTPInbound) VisitHeaders(f func(name, value string)) {
	in.ctx.Request.Header.VisitAll(func(k, v []byte) {
		f(string(k), string(v))
	})
}

func (in fastHTTPInbound) BodySource() io.Reader {
	b := in.ctx.PostBody()
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}

type fastHTTPOutbound struct {
	resp *fasthttp.Response
}

func (out fastHTTPOutbound) SetStatus(code int) { out.resp.SetStatusCode(code) }

func (out fastHTTPOutbound) AddHeader(name, value string) { out.resp.Header.Add(name, value) }

func (out fastHTTPOutbound) SetBody(body []byte) error {
	out.resp.SetBody(body)
	return nil
}
