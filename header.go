package simple_dispatch

import (
	"strings"
)

// HeaderField is one name/value pair of a request or response header.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Duplicate names are preserved;
// lookups ignore case.
type Headers []HeaderField

// Get returns the value of the first field named name.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Last returns the value of the most recently added field named name.
func (h Headers) Last(name string) (string, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if strings.EqualFold(h[i].Name, name) {
			return h[i].Value, true
		}
	}
	return "", false
}

// Values returns every value stored under name, in list order.
func (h Headers) Values(name string) []string {
	var vs []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			vs = append(vs, f.Value)
		}
	}
	return vs
}

// Add appends a field.
func (h *Headers) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// Set replaces every field named name with a single field.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every field named name.
func (h *Headers) Del(name string) {
	kept := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	*h = kept
}

func (h Headers) clone() Headers {
	if h == nil {
		return nil
	}
	return append(Headers(nil), h...)
}
