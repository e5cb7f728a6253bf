package demo

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dispatch "simple_dispatch"
)

// Context is the read-only application state handed to every handler.
type Context struct {
	Name      string
	StaticDir string
	Started   time.Time
}

// Routes returns the demo application's router.
func Routes() *Router {
	r := NewRouter()
	r.GET("/", dispatch.HelloWorld[Context])
	r.GET("/hello/{name}", hello)
	r.GET("/about", about)
	r.POST("/form", echoForm)
	r.GET("/static/{file}", static)
	r.GET("/old", moved)
	r.GET("/cookies", cookies)
	r.NotFound(notFound)
	return r
}

func hello(req *dispatch.Request, res *dispatch.Response, _ Context) {
	_ = res.Body([]byte("hello, " + Param(req, "name") + "!"))
}

func about(_ *dispatch.Request, res *dispatch.Response, ctx Context) {
	res.AddHeader("Content-Type", "text/plain; charset=utf-8")
	_ = res.Body([]byte(fmt.Sprintf("%s, up since %s", ctx.Name, ctx.Started.UTC().Format(time.RFC3339))))
}

// echoForm writes the decoded form back, one key=value per line, keys sorted.
func echoForm(req *dispatch.Request, res *dispatch.Response, _ Context) {
	form := req.Form()
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, form[k])
	}
	res.AddHeader("X-Form-State", req.FormState().String())
	_ = res.Body([]byte(b.String()))
}

func static(req *dispatch.Request, res *dispatch.Response, ctx Context) {
	name := filepath.Join(ctx.StaticDir, filepath.Base(Param(req, "file")))
	err := res.SendFile(name)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		res.Status(http.StatusNotFound)
	default:
		res.Status(http.StatusInternalServerError)
	}
}

func moved(_ *dispatch.Request, res *dispatch.Response, _ Context) {
	_ = res.Redirect(http.StatusMovedPermanently, "/", []byte("moved"))
}

func cookies(req *dispatch.Request, res *dispatch.Response, _ Context) {
	var b strings.Builder
	for _, c := range req.Cookies() {
		fmt.Fprintf(&b, "%s=%s\n", c.Name, c.Value)
	}
	_ = res.SetCookie(&http.Cookie{Name: "visited", Value: "1", Path: "/"})
	_ = res.Body([]byte(b.String()))
}

func notFound(_ *dispatch.Request, res *dispatch.Response, _ Context) {
	res.Status(http.StatusNotFound)
	_ = res.Body([]byte("not found"))
}
