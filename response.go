package simple_dispatch

import (
	"errors"
	"net/http"
	"os"
)

var (
	ErrResponseConsumed = errors.New("simple_dispatch: response already written")
	ErrInvalidCookie    = errors.New("simple_dispatch: invalid cookie")
)

// Outbound is the transport-side response a Response is serialized into.
// WriteTo calls AddHeader for every field, then SetStatus, then SetBody
// if a body was set.
type Outbound interface {
	SetStatus(code int)
	AddHeader(name, value string)
	SetBody(body []byte) error
}

// A Response accumulates status, headers and body for one request.
// The zero value is not usable; use NewResponse.
type Response struct {
	status   int
	header   Headers
	body     []byte
	consumed bool
}

// NewResponse returns an empty 200 response.
func NewResponse() *Response {
	return &Response{status: http.StatusOK}
}

// Status sets the status code, replacing any earlier one.
func (r *Response) Status(code int) {
	if r.consumed {
		return
	}
	r.status = code
}

func (r *Response) StatusCode() int { return r.status }

// AddHeader appends a header field. Earlier fields of the same name are
// kept.
func (r *Response) AddHeader(name, value string) {
	if r.consumed {
		return
	}
	r.header.Add(name, value)
}

// SetHeader replaces every field named name.
func (r *Response) SetHeader(name, value string) {
	if r.consumed {
		return
	}
	r.header.Set(name, value)
}

// Headers returns the header fields set so far.
func (r *Response) Headers() Headers { return r.header.clone() }

// Body sets the full body, replacing any earlier one. The bytes are
// copied.
func (r *Response) Body(b []byte) error {
	if r.consumed {
		return ErrResponseConsumed
	}
	r.body = append(make([]byte, 0, len(b)), b...)
	return nil
}

// BodyBytes returns the body set so far; ok is false if none was set.
func (r *Response) BodyBytes() (body []byte, ok bool) {
	return r.body, r.body != nil
}

// SendFile reads the named file into memory and makes it the body. The
// read blocks the calling worker. File errors are returned as-is.
func (r *Response) SendFile(name string) error {
	if r.consumed {
		return ErrResponseConsumed
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	r.body = b
	return nil
}

// Redirect sets status, a Location header and body in one go. Any
// Location fields added earlier are replaced.
func (r *Response) Redirect(status int, location string, body []byte) error {
	if r.consumed {
		return ErrResponseConsumed
	}
	r.Status(status)
	r.SetHeader("Location", location)
	return r.Body(body)
}

// SetCookie adds a Set-Cookie field for c.
func (r *Response) SetCookie(c *http.Cookie) error {
	if r.consumed {
		return ErrResponseConsumed
	}
	v := c.String()
	if v == "" {
		return ErrInvalidCookie
	}
	r.header.Add("Set-Cookie", v)
	return nil
}

// WriteTo serializes the response into out. The response is consumed:
// afterwards every mutator is ignored or returns ErrResponseConsumed.
// An error from the transport while writing the body is returned; the
// response stays consumed.
func (r *Response) WriteTo(out Outbound) error {
	if r.consumed {
		return ErrResponseConsumed
	}
	r.consumed = true
	for _, f := range r.header {
		out.AddHeader(f.Name, f.Value)
	}
	out.SetStatus(r.status)
	if r.body != nil {
		return out.SetBody(r.body)
	}
	return nil
}

// reset turns r back into a fresh 200 response. Used when a handler
// panicked half way through building it.
func (r *Response) reset() {
	r.status = http.StatusOK
	r.header = nil
	r.body = nil
	r.consumed = false
}
