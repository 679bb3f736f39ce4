package server

import (
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gatewayd/pkg/gateway"
	"gatewayd/pkg/httpwire"
	"gatewayd/pkg/telemetry"
)

func newTestHandler(app gateway.Application) *Handler {
	return &Handler{
		App:             app,
		MaxRequestBytes: 1 << 16,
		Metrics:         telemetry.New(prometheus.NewRegistry()),
	}
}

func helloApp(env map[string]any, start gateway.StartResponse) (httpwire.BodyChunks, error) {
	if err := start("200 OK", []httpwire.Header{{Name: "Content-Type", Value: "text/plain"}}); err != nil {
		return nil, err
	}
	return httpwire.Chunks([]byte("Hello, World!")), nil
}

// exchange runs one request through the handler over an in-memory pipe and
// returns everything written back before the handler closed its side.
func exchange(t *testing.T, h *Handler, raw string) string {
	t.Helper()
	client, srv := net.Pipe()
	done := make(chan struct{})
	go func() {
		h.Serve(srv)
		close(done)
	}()
	if _, err := client.Write([]byte(raw)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	out, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	client.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler did not finish")
	}
	return string(out)
}

func TestServeHelloWorld(t *testing.T) {
	h := newTestHandler(helloApp)
	got := exchange(t, h, "GET /hello HTTP/1.1\r\nHost: x\r\n\r\n")
	want := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nHello, World!"
	if got != want {
		t.Fatalf("wire response = %q, want %q", got, want)
	}
}

func TestServeMalformedRequestLine(t *testing.T) {
	var invoked atomic.Bool
	h := newTestHandler(func(env map[string]any, start gateway.StartResponse) (httpwire.BodyChunks, error) {
		invoked.Store(true)
		return helloApp(env, start)
	})
	got := exchange(t, h, "GET\r\n\r\n")
	if !strings.HasPrefix(got, "HTTP/1.1 400 Bad Request\r\n") {
		t.Fatalf("response = %q, want 400", got)
	}
	if invoked.Load() {
		t.Fatalf("application was invoked for a malformed request")
	}
}

func TestServeApplicationErrorYields500(t *testing.T) {
	h := newTestHandler(func(env map[string]any, start gateway.StartResponse) (httpwire.BodyChunks, error) {
		return nil, io.ErrUnexpectedEOF
	})
	got := exchange(t, h, "GET / HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(got, "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Fatalf("response = %q, want 500", got)
	}
}

func TestServeApplicationPanicYields500(t *testing.T) {
	h := newTestHandler(func(env map[string]any, start gateway.StartResponse) (httpwire.BodyChunks, error) {
		panic("kaboom")
	})
	got := exchange(t, h, "GET / HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(got, "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Fatalf("response = %q, want 500", got)
	}
}

func TestServeOversizedRequest(t *testing.T) {
	h := newTestHandler(helloApp)
	h.MaxRequestBytes = 64
	raw := "POST / HTTP/1.1\r\nContent-Length: 4096\r\n\r\n"
	got := exchange(t, h, raw)
	if !strings.HasPrefix(got, "HTTP/1.1 413 Payload Too Large\r\n") {
		t.Fatalf("response = %q, want 413", got)
	}
}

func TestServeAlwaysClosesConnection(t *testing.T) {
	h := newTestHandler(func(env map[string]any, start gateway.StartResponse) (httpwire.BodyChunks, error) {
		panic("kaboom")
	})
	client, srv := net.Pipe()
	go h.Serve(srv)
	if _, err := client.Write([]byte("GET / HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	// the read must terminate with EOF, never hang on an abandoned conn
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadAll(client); err != nil {
		t.Fatalf("connection left hanging: %v", err)
	}
}

func TestServeBodyPanicClosesConnection(t *testing.T) {
	h := newTestHandler(func(env map[string]any, start gateway.StartResponse) (httpwire.BodyChunks, error) {
		if err := start("200 OK", nil); err != nil {
			return nil, err
		}
		return panicBody{}, nil
	})
	got := exchange(t, h, "GET / HTTP/1.1\r\n\r\n")
	// the status line went out before the body failed; the response is
	// committed, so the handler just closes
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("response = %q", got)
	}
}

type panicBody struct{}

func (panicBody) Next() ([]byte, error) { panic("body kaboom") }
