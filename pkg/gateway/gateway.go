// Package gateway defines the contract between the transport server and a
// hosted application: an environment map in, status and headers out through
// a start-response callback, and a lazy body chunk sequence as the return
// value. The adapter performs no I/O; serialization and socket writes stay
// with the connection handler.
package gateway

import (
	"errors"
	"fmt"
	"strings"

	"gatewayd/pkg/httpwire"
)

// Environment keys populated by BuildEnviron. Request headers appear under
// HTTP_<NAME> keys (uppercased, dashes to underscores), except Content-Type
// and Content-Length which get their own entries. Repeated headers are
// joined with ",".
const (
	EnvRequestMethod  = "REQUEST_METHOD"
	EnvPathInfo       = "PATH_INFO"
	EnvQueryString    = "QUERY_STRING"
	EnvServerProtocol = "SERVER_PROTOCOL"
	EnvRemoteAddr     = "REMOTE_ADDR"
	EnvContentType    = "CONTENT_TYPE"
	EnvContentLength  = "CONTENT_LENGTH"
	EnvInput          = "gateway.input"
	EnvURLScheme      = "gateway.url_scheme"
	EnvVersion        = "gateway.version"
)

// Version is the contract revision exposed under EnvVersion.
var Version = [2]int{1, 0}

var (
	// ErrResponseStarted is returned by the start-response callback when it
	// is invoked a second time for the same request. The first response
	// stands; the repeat call is rejected rather than overwriting it.
	ErrResponseStarted = errors.New("response already started")

	// ErrApplication wraps any failure of the hosted application: an error
	// return, a panic, or returning without starting a response.
	ErrApplication = errors.New("application failure")
)

// StartResponse is the callback handed to an application. The application
// must call it exactly once before (or while) producing its body.
type StartResponse func(status string, headers []httpwire.Header) error

// Application is any hosted callable bound by the gateway contract. It must
// not retain env or the body reader beyond the call.
type Application func(env map[string]any, start StartResponse) (httpwire.BodyChunks, error)

// Response is the (status, headers, body) triple handed back to the
// connection handler for serialization.
type Response struct {
	Status  string
	Headers []httpwire.Header
	Body    httpwire.BodyChunks
}

// BuildEnviron assembles the per-request environment map from a parsed
// request. The map is built fresh for every request; nothing is shared
// across requests or connections.
func BuildEnviron(req *httpwire.Request) map[string]any {
	env := map[string]any{
		EnvRequestMethod:  req.Method,
		EnvPathInfo:       req.Path,
		EnvQueryString:    req.Query,
		EnvServerProtocol: req.Proto,
		EnvRemoteAddr:     req.RemoteAddr,
		EnvInput:          req.Body,
		EnvURLScheme:      "http",
		EnvVersion:        Version,
	}
	for _, h := range req.Headers {
		var key string
		switch {
		case strings.EqualFold(h.Name, "Content-Type"):
			key = EnvContentType
		case strings.EqualFold(h.Name, "Content-Length"):
			key = EnvContentLength
		default:
			key = "HTTP_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(h.Name), "-", "_"))
		}
		if prev, ok := env[key].(string); ok && key != EnvContentType && key != EnvContentLength {
			env[key] = prev + "," + h.Value
			continue
		}
		env[key] = h.Value
	}
	return env
}

// Invoke runs one application call for one request. The response state is a
// single-writer cell scoped to this invocation, written through the
// start-response callback and read exactly once by the caller.
//
// A panic in the application is recovered and reported as ErrApplication;
// it never takes down the worker. An application that returns without
// starting a response is equally an ErrApplication.
func Invoke(app Application, req *httpwire.Request) (resp *Response, err error) {
	env := BuildEnviron(req)

	var (
		started bool
		status  string
		headers []httpwire.Header
	)
	start := func(s string, hs []httpwire.Header) error {
		if started {
			return ErrResponseStarted
		}
		started = true
		status = s
		headers = hs
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("%w: panic: %v", ErrApplication, r)
		}
	}()

	body, err := app(env, start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrApplication, err)
	}
	if !started {
		return nil, fmt.Errorf("%w: returned without starting a response", ErrApplication)
	}
	return &Response{Status: status, Headers: headers, Body: body}, nil
}
