package demo

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dispatch "simple_dispatch"
)

func newTestServer(t *testing.T, sanitize bool) (*dispatch.Server[Context], Context) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("static content"), 0o644))
	ctx := Context{Name: "demo", StaticDir: dir, Started: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}

	srv := dispatch.New[Context](Routes(), ctx)
	if sanitize {
		srv.Sanitize()
	}
	srv.Logger = zap.NewNop()
	return srv, ctx
}

func get(srv http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Add(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	return rec
}

func TestRoutes(t *testing.T) {
	srv, _ := newTestServer(t, false)

	tests := []struct {
		name   string
		target string
		code   int
		body   string
	}{
		{"root", "/", http.StatusOK, "hello, world!"},
		{"path param", "/hello/gopher", http.StatusOK, "hello, gopher!"},
		{"about", "/about", http.StatusOK, "demo, up since 2026-01-02T03:04:05Z"},
		{"static file", "/static/readme.txt", http.StatusOK, "static content"},
		{"static missing", "/static/nope.txt", http.StatusNotFound, ""},
		{"unknown", "/nowhere", http.StatusNotFound, "not found"},
		{"param must not be empty", "/hello/", http.StatusNotFound, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(srv, tt.target)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestRedirect(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := get(srv, "/old")

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "moved", rec.Body.String())
}

func TestCookies(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := get(srv, "/cookies", "Cookie", "id=42; theme=dark")

	assert.Equal(t, "id=42\ntheme=dark\n", rec.Body.String())
	assert.Equal(t, "visited=1; Path=/", rec.Header().Get("Set-Cookie"))
}

func TestEchoForm(t *testing.T) {
	tests := []struct {
		name     string
		sanitize bool
		body     string
		want     string
		state    string
	}{
		{"plain", false, "b=2&a=<i>1</i>", "a=<i>1</i>\nb=2\n", "decoded"},
		{"sanitized", true, "b=2&a=<i>1</i>", "a=&lt;i&gt;1&lt;/i&gt;\nb=2\n", "decoded"},
		{"malformed", false, "%", "", "malformed"},
		{"empty", false, "", "", "absent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.sanitize)
			r := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, r)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
			assert.Equal(t, tt.state, rec.Header().Get("X-Form-State"))
		})
	}
}

func TestMethodMismatchIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t, false)
	r := httptest.NewRequest(http.MethodPost, "/about", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterWithoutNotFound(t *testing.T) {
	r := NewRouter()
	res := dispatch.NewResponse()
	req := dispatch.NewRequest(inbound(http.MethodGet, "/x"), false)
	r.Handle(req, res, Context{})
	assert.Equal(t, http.StatusNotFound, res.StatusCode())
}

func TestParamAbsent(t *testing.T) {
	req := dispatch.NewRequest(inbound(http.MethodGet, "/"), false)
	assert.Empty(t, Param(req, "name"))
}

func TestMatch(t *testing.T) {
	segs := parse("/users/{id}/posts/{post}")

	values, ok := match("/users/7/posts/hello", segs)
	require.True(t, ok)
	assert.Equal(t, "7", values.Get("id"))
	assert.Equal(t, "hello", values.Get("post"))

	_, ok = match("/users/7/posts", segs)
	assert.False(t, ok)
	_, ok = match("/users/7/comments/1", segs)
	assert.False(t, ok)
}

type fakeInbound struct{ method, path string }

func inbound(method, path string) *fakeInbound { return &fakeInbound{method: method, path: path} }

func (f *fakeInbound) Method() string                      { return f.method }
func (f *fakeInbound) RequestURI() string                  { return f.path }
func (f *fakeInbound) Path() string                        { return f.path }
func (f *fakeInbound) QueryString() string                 { return "" }
func (f *fakeInbound) Proto() string                       { return "HTTP/1.1" }
func (f *fakeInbound) RemoteAddr() string                  { return "" }
func (f *fakeInbound) VisitHeaders(func(name, value string)) {}
func (f *fakeInbound) BodySource() io.Reader               { return nil }
