// Package apps provides the built-in gateway applications the main binary
// can host. They double as working examples of the gateway contract.
package apps

import (
	"fmt"
	"io"
	"sort"

	"gatewayd/pkg/gateway"
	"gatewayd/pkg/httpwire"
)

var registry = map[string]gateway.Application{
	"hello": Hello,
	"echo":  Echo,
}

// Lookup returns the named built-in application.
func Lookup(name string) (gateway.Application, error) {
	app, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown application %q (have: %v)", name, Names())
	}
	return app, nil
}

// Names lists the built-in application names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Hello answers every request with a fixed plain-text greeting.
func Hello(env map[string]any, start gateway.StartResponse) (httpwire.BodyChunks, error) {
	if err := start("200 OK", []httpwire.Header{
		{Name: "Content-Type", Value: "text/plain"},
	}); err != nil {
		return nil, err
	}
	return httpwire.Chunks([]byte("Hello, World!")), nil
}

// Echo reflects the request line and body back to the caller.
func Echo(env map[string]any, start gateway.StartResponse) (httpwire.BodyChunks, error) {
	var body []byte
	if in, ok := env[gateway.EnvInput].(io.Reader); ok && in != nil {
		b, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = b
	}

	head := fmt.Sprintf("%s %s", env[gateway.EnvRequestMethod], env[gateway.EnvPathInfo])
	if q, _ := env[gateway.EnvQueryString].(string); q != "" {
		head += "?" + q
	}
	head += "\n"

	if err := start("200 OK", []httpwire.Header{
		{Name: "Content-Type", Value: "text/plain"},
		{Name: "Content-Length", Value: fmt.Sprint(len(head) + len(body))},
	}); err != nil {
		return nil, err
	}
	return httpwire.Chunks([]byte(head), body), nil
}
