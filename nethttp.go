package simple_dispatch

import (
	"io"
	"net/http"
)

type netHTTPInbound struct {
	r *http.Request
}

func (in netHTTPInbound) Method() string { return in.r.Method }

func (in netHTTPInbound) RequestURI() string {
	if in.r.RequestURI != "" {
		return in.r.RequestURI
	}
	return in.r.URL.RequestURI()
}

func (in netHTTPInbound) Path() string { return in.r.URL.Path }

func (in netHTTPInbound) QueryString() string { return in.r.URL.RawQuery }

func (in netHTTPInbound) Proto() string { return in.r.Proto }

func (in netHTTPInbound) RemoteAddr() string { return in.r.RemoteAddr }

// VisitHeaders reports Host first: net/http moves it out of the header map.
func (in netHTTPInbound) VisitHeaders(f func(name, value string)) {
	if in.r.Host != "" {
		f("Host", in.r.Host)
	}
	for k, vs := range in.r.Header {
		for _, v := range vs {
			f(k, v)
		}
	}
}

func (in netHTTPInbound) BodySource() io.Reader {
	if in.r.Body == nil || in.r.Body == http.NoBody {
		return nil
	}
	return in.r.Body
}

// netHTTPOutbound relies on WriteTo's call order: headers, then status,
// then body.
type netHTTPOutbound struct {
	w http.ResponseWriter
}

func (out netHTTPOutbound) SetStatus(code int) { out.w.WriteHeader(code) }

func (out netHTTPOutbound) AddHeader(name, value string) { out.w.Header().Add(name, value) }

// SetBody reports http.ErrBodyNotAllowed for 1xx, 204 and 304 responses
// and any write error from the connection.
func (out netHTTPOutbound) SetBody(body []byte) error {
	_, err := out.w.Write(body)
	return err
}
