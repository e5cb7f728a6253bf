package simple_dispatch

import (
	"html"
	"net/url"
)

// FormState reports what the memoized form decode of a request produced.
type FormState int

const (
	// FormUndecoded means FormValue has not been called yet.
	FormUndecoded FormState = iota

	// FormAbsent means the request carried no body, or the body could
	// not be read in full.
	FormAbsent

	// FormMalformed means the body was not valid
	// application/x-www-form-urlencoded data.
	FormMalformed

	// FormDecoded means the body decoded cleanly. The map may still be
	// empty, e.g. for a body of "&".
	FormDecoded
)

func (s FormState) String() string {
	switch s {
	case FormUndecoded:
		return "undecoded"
	case FormAbsent:
		return "absent"
	case FormMalformed:
		return "malformed"
	case FormDecoded:
		return "decoded"
	}
	return "unknown"
}

// decodeForm parses body as key=value&key=value pairs. When a key
// repeats, the last value wins. With sanitize set, values are
// HTML-escaped after percent-decoding; keys are left alone.
func decodeForm(body []byte, sanitize bool) (map[string]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	form := make(map[string]string, len(values))
	for k, vs := range values {
		v := vs[len(vs)-1]
		if sanitize {
			v = html.EscapeString(v)
		}
		form[k] = v
	}
	return form, nil
}
