// Package demo is the example application served by cmd/simple-dispatch:
// a small path-table router and the handlers behind it.
package demo

import (
	"net/http"
	"net/url"
	"strings"

	dispatch "simple_dispatch"
)

// Router matches method and path against registered patterns. A
// pattern segment written as {name} matches any single segment; the
// matched values are written to the request's UserData as a URL-encoded
// query before the route handler runs.
//
// A Router is not modified once serving starts, so one value is shared
// by every worker.
type Router struct {
	routes   map[string][]route
	notFound dispatch.HandlerFunc[Context]
}

type route struct {
	segments []segment
	handler  dispatch.HandlerFunc[Context]
}

type segment struct {
	name    string
	isParam bool
}

func NewRouter() *Router {
	return &Router{routes: make(map[string][]route)}
}

func (r *Router) GET(path string, h dispatch.HandlerFunc[Context]) { r.add("GET", path, h) }

func (r *Router) POST(path string, h dispatch.HandlerFunc[Context]) { r.add("POST", path, h) }

// NotFound registers the handler for unmatched requests.
func (r *Router) NotFound(h dispatch.HandlerFunc[Context]) { r.notFound = h }

// Handle implements dispatch.Handler.
func (r *Router) Handle(req *dispatch.Request, res *dispatch.Response, ctx Context) {
	for _, rt := range r.routes[req.Method()] {
		values, ok := match(req.Path(), rt.segments)
		if !ok {
			continue
		}
		if len(values) > 0 {
			req.UserData().SetString(values.Encode())
		}
		rt.handler(req, res, ctx)
		return
	}
	if r.notFound != nil {
		r.notFound(req, res, ctx)
		return
	}
	res.Status(http.StatusNotFound)
}

// Param returns the path parameter name matched for req.
func Param(req *dispatch.Request, name string) string {
	values, err := url.ParseQuery(req.UserData().String())
	if err != nil {
		return ""
	}
	return values.Get(name)
}

func (r *Router) add(method, path string, h dispatch.HandlerFunc[Context]) {
	r.routes[method] = append(r.routes[method], route{segments: parse(path), handler: h})
}

func parse(path string) []segment {
	parts := split(path)
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			segs = append(segs, segment{name: p[1 : len(p)-1], isParam: true})
			continue
		}
		segs = append(segs, segment{name: p})
	}
	return segs
}

func match(path string, segs []segment) (url.Values, bool) {
	parts := split(path)
	if len(parts) != len(segs) {
		return nil, false
	}
	var values url.Values
	for i, s := range segs {
		if s.isParam {
			if parts[i] == "" {
				return nil, false
			}
			if values == nil {
				values = url.Values{}
			}
			values.Set(s.name, parts[i])
			continue
		}
		if parts[i] != s.name {
			return nil, false
		}
	}
	return values, true
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
