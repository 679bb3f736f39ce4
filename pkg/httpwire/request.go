package httpwire

import (
	"io"
	"strconv"
	"strings"
)

// Header is one name/value pair. Requests and responses carry headers as an
// ordered slice so duplicates survive and forwarding order is preserved.
type Header struct {
	Name  string
	Value string
}

// Request is one parsed HTTP request. It is immutable once built and owned
// by a single connection handler for the lifetime of the exchange.
type Request struct {
	Method  string
	Path    string
	Query   string // empty when the target carried no '?'
	Proto   string // e.g. "HTTP/1.1"
	Headers []Header

	// Body is the request body, already framed by Content-Length.
	Body io.Reader

	RemoteAddr string
}

// Header returns the first value for name, matching case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// HeaderValues returns every value recorded for name, in arrival order.
func (r *Request) HeaderValues(name string) []string {
	var out []string
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			out = append(out, h.Value)
		}
	}
	return out
}

// ContentLength returns the declared body length, or 0 when absent.
func (r *Request) ContentLength() (int64, error) {
	v, ok := r.Header("Content-Length")
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, ErrMalformedRequest
	}
	return n, nil
}

// ProtoVersion splits Proto into its major/minor pair. A request that made
// it through the parser always has a well-formed version token.
func (r *Request) ProtoVersion() (major, minor int) {
	v, ok := strings.CutPrefix(r.Proto, "HTTP/")
	if !ok {
		return 0, 0
	}
	maj, min, ok := strings.Cut(v, ".")
	if !ok {
		return 0, 0
	}
	major, _ = strconv.Atoi(maj)
	minor, _ = strconv.Atoi(min)
	return major, minor
}
