package apps

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"gatewayd/pkg/gateway"
	"gatewayd/pkg/httpwire"
)

func collect(t *testing.T, body httpwire.BodyChunks) []byte {
	t.Helper()
	var buf bytes.Buffer
	for {
		chunk, err := body.Next()
		if err == io.EOF {
			return buf.Bytes()
		}
		if err != nil {
			t.Fatalf("body chunk: %v", err)
		}
		buf.Write(chunk)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"hello", "echo"} {
		if _, err := Lookup(name); err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
	}
	if _, err := Lookup("nope"); err == nil {
		t.Fatalf("Lookup(nope): expected error")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "echo" || names[1] != "hello" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestHello(t *testing.T) {
	var status string
	var headers []httpwire.Header
	start := func(s string, h []httpwire.Header) error {
		status, headers = s, h
		return nil
	}

	body, err := Hello(map[string]any{}, start)
	if err != nil {
		t.Fatalf("Hello: %v", err)
	}
	if status != "200 OK" {
		t.Fatalf("status = %q", status)
	}
	if len(headers) != 1 || headers[0].Name != "Content-Type" || headers[0].Value != "text/plain" {
		t.Fatalf("headers = %v", headers)
	}
	if got := collect(t, body); string(got) != "Hello, World!" {
		t.Fatalf("body = %q", got)
	}
}

func TestEcho(t *testing.T) {
	env := map[string]any{
		gateway.EnvRequestMethod: "POST",
		gateway.EnvPathInfo:      "/submit",
		gateway.EnvQueryString:   "x=1",
		gateway.EnvInput:         strings.NewReader("payload"),
	}
	var status string
	var headers []httpwire.Header
	start := func(s string, h []httpwire.Header) error {
		status, headers = s, h
		return nil
	}

	body, err := Echo(env, start)
	if err != nil {
		t.Fatalf("Echo: %v", err)
	}
	if status != "200 OK" {
		t.Fatalf("status = %q", status)
	}
	got := string(collect(t, body))
	want := "POST /submit?x=1\npayload"
	if got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
	var cl string
	for _, h := range headers {
		if h.Name == "Content-Length" {
			cl = h.Value
		}
	}
	if cl != "24" {
		t.Fatalf("Content-Length = %q, want %q", cl, "24")
	}
}

func TestEchoNoBody(t *testing.T) {
	env := map[string]any{
		gateway.EnvRequestMethod: "GET",
		gateway.EnvPathInfo:      "/",
		gateway.EnvQueryString:   "",
	}
	body, err := Echo(env, func(string, []httpwire.Header) error { return nil })
	if err != nil {
		t.Fatalf("Echo: %v", err)
	}
	if got := string(collect(t, body)); got != "GET /\n" {
		t.Fatalf("body = %q", got)
	}
}
