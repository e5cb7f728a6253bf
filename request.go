package simple_dispatch

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

// DefaultMaxBodySize bounds how much of a request body is buffered when
// no other limit is configured.
const DefaultMaxBodySize = 4 << 20

// Inbound is the parsed request a transport hands to the dispatch layer.
// Byte-level parsing stays with the transport.
type Inbound interface {
	Method() string
	RequestURI() string
	Path() string
	QueryString() string
	Proto() string
	RemoteAddr() string
	VisitHeaders(f func(name, value string))

	// BodySource returns the request body, or nil when the request
	// carried none. It is called at most once per request.
	BodySource() io.Reader
}

// A Request is the read side of one in-flight request. It is confined
// to a single handler invocation.
//
// Decoding is memoized without locking: do not call FormValue (or Body)
// concurrently on the same Request.
type Request struct {
	method     string
	uri        string
	path       string
	query      string
	proto      string
	remoteAddr string
	headers    Headers

	src      io.Reader
	body     []byte
	bodyRead bool
	bodyErr  error
	maxBody  int64

	sanitize  bool
	form      map[string]string
	formState FormState

	userData *bytebufferpool.ByteBuffer

	log     *zap.Logger
	metrics *Metrics
}

// NewRequest wraps in. With sanitize set, decoded form values are
// HTML-escaped.
func NewRequest(in Inbound, sanitize bool) *Request {
	return newRequest(in, sanitize, DefaultMaxBodySize, nil, nil)
}

func newRequest(in Inbound, sanitize bool, maxBody int64, log *zap.Logger, m *Metrics) *Request {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	r := &Request{
		method:     in.Method(),
		uri:        in.RequestURI(),
		path:       in.Path(),
		query:      in.QueryString(),
		proto:      in.Proto(),
		remoteAddr: in.RemoteAddr(),
		src:        in.BodySource(),
		maxBody:    maxBody,
		sanitize:   sanitize,
		log:        log,
		metrics:    m,
	}
	in.VisitHeaders(func(name, value string) {
		r.headers.Add(name, value)
	})
	return r
}

func (r *Request) Method() string { return r.method }

// URI returns the request target as sent, path and query included.
func (r *Request) URI() string { return r.uri }

func (r *Request) Path() string { return r.path }

// Query returns the raw query string without the leading '?'.
func (r *Request) Query() string { return r.query }

// Version returns the protocol version, e.g. "HTTP/1.1".
func (r *Request) Version() string { return r.proto }

func (r *Request) RemoteAddr() string { return r.remoteAddr }

// Headers returns the request header list. The slice belongs to the
// request and must not be modified.
func (r *Request) Headers() Headers { return r.headers }

// Header returns the first value of the named header, or "".
func (r *Request) Header(name string) string {
	v, _ := r.headers.Get(name)
	return v
}

func (r *Request) Host() string { return r.Header("Host") }

func (r *Request) ContentType() string { return r.Header("Content-Type") }

func (r *Request) TransferEncoding() string { return r.Header("Transfer-Encoding") }

// ContentLength returns the declared body length, if the request
// declared a valid one.
func (r *Request) ContentLength() (int64, bool) {
	v, ok := r.headers.Get("Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// HasBody reports whether the request carried a non-empty, readable body.
func (r *Request) HasBody() bool {
	_, ok := r.Body()
	return ok
}

// Body returns the raw body bytes. ok is false when the request had no
// body, an empty one, or one that could not be read (see BodyErr).
// The body source is drained once, on first use; later calls return the
// same bytes.
func (r *Request) Body() (body []byte, ok bool) {
	r.loadBody()
	return r.body, r.body != nil
}

// BodyErr returns the error met while buffering the body, if any.
func (r *Request) BodyErr() error {
	r.loadBody()
	return r.bodyErr
}

func (r *Request) loadBody() {
	if r.bodyRead {
		return
	}
	r.bodyRead = true
	src := r.src
	r.src = nil
	if src == nil {
		return
	}
	b, err := io.ReadAll(io.LimitReader(src, r.maxBody+1))
	switch {
	case err != nil:
		r.bodyErr = fmt.Errorf("read body: %w", err)
	case int64(len(b)) > r.maxBody:
		r.bodyErr = ErrBodyTooLarge
	case len(b) > 0:
		r.body = b
	}
	if r.bodyErr != nil {
		r.logger().Debug("request body dropped",
			zap.String("path", r.path),
			zap.Error(r.bodyErr))
	}
}

// FormValue returns the value of key from the URL-encoded body. The body
// is decoded on the first call and the result is kept for the rest of
// the request. A missing body, a missing key, or a malformed body all
// yield ok == false; none of them is an error.
func (r *Request) FormValue(key string) (value string, ok bool) {
	r.decodeForm()
	value, ok = r.form[key]
	return
}

// Form returns a copy of the decoded form.
func (r *Request) Form() map[string]string {
	r.decodeForm()
	out := make(map[string]string, len(r.form))
	for k, v := range r.form {
		out[k] = v
	}
	return out
}

// FormState tells apart the cases FormValue folds into "absent".
func (r *Request) FormState() FormState { return r.formState }

func (r *Request) decodeForm() {
	if r.formState != FormUndecoded {
		return
	}
	body, ok := r.Body()
	if !ok {
		r.form, r.formState = map[string]string{}, FormAbsent
		return
	}
	form, err := decodeForm(body, r.sanitize)
	if err != nil {
		r.logger().Debug("error parsing form", zap.String("path", r.path), zap.Error(err))
		r.metrics.formFailed()
		r.form, r.formState = map[string]string{}, FormMalformed
		return
	}
	r.form, r.formState = form, FormDecoded
}

// Cookies parses every Cookie header, in header order.
func (r *Request) Cookies() []*http.Cookie {
	lines := r.headers.Values("Cookie")
	if len(lines) == 0 {
		return nil
	}
	hr := http.Request{Header: http.Header{"Cookie": lines}}
	return hr.Cookies()
}

// UserData returns the per-request scratch buffer. Routers typically
// write matched path parameters into it before the handler runs. The
// buffer is recycled once the response has been written, so it must not
// be retained past the handler.
func (r *Request) UserData() *bytebufferpool.ByteBuffer {
	if r.userData == nil {
		r.userData = bytebufferpool.Get()
	}
	return r.userData
}

func (r *Request) release() {
	if r.userData != nil {
		bytebufferpool.Put(r.userData)
		r.userData = nil
	}
}

func (r *Request) logger() *zap.Logger {
	if r.log != nil {
		return r.log
	}
	return zap.L()
}
