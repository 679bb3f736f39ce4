package httpwire

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestWriteResponseExactBytes(t *testing.T) {
	var buf bytes.Buffer
	headers := []Header{{Name: "Content-Type", Value: "text/plain"}}
	err := WriteResponse(&buf, "200 OK", headers, Chunks([]byte("Hello, World!")))
	if err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	want := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nHello, World!"
	if buf.String() != want {
		t.Fatalf("wire bytes = %q, want %q", buf.String(), want)
	}
}

func TestWriteResponseHeaderOrderAndDuplicates(t *testing.T) {
	var buf bytes.Buffer
	headers := []Header{
		{Name: "Set-Cookie", Value: "a=1"},
		{Name: "X-First", Value: "1"},
		{Name: "Set-Cookie", Value: "b=2"},
	}
	if err := WriteResponse(&buf, "204 No Content", headers, nil); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	want := "HTTP/1.1 204 No Content\r\nSet-Cookie: a=1\r\nX-First: 1\r\nSet-Cookie: b=2\r\n\r\n"
	if buf.String() != want {
		t.Fatalf("wire bytes = %q", buf.String())
	}
}

func TestWriteResponseNoInventedContentLength(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, "200 OK", nil, Chunks([]byte("body"))); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	if strings.Contains(strings.ToLower(buf.String()), "content-length") {
		t.Fatalf("serializer invented a Content-Length: %q", buf.String())
	}
}

// TestResponseRoundTrip serializes a response and re-parses it with the
// standard library's response reader: status and headers must come back
// order-preserved and the body must be the chunk concatenation.
func TestResponseRoundTrip(t *testing.T) {
	headers := []Header{
		{Name: "Content-Type", Value: "text/html"},
		{Name: "Content-Length", Value: "10"},
		{Name: "X-Trace", Value: "abc"},
	}
	chunks := [][]byte{[]byte("<p>"), []byte("hid"), []byte("</p>"), {}}

	var buf bytes.Buffer
	if err := WriteResponse(&buf, "200 OK", headers, Chunks(chunks...)); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(&buf), nil)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	defer resp.Body.Close()
	if resp.Status != "200 OK" {
		t.Fatalf("status = %q", resp.Status)
	}
	for _, h := range headers {
		if got := resp.Header.Get(h.Name); got != h.Value {
			t.Fatalf("header %s = %q, want %q", h.Name, got, h.Value)
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "<p>hid</p>" {
		t.Fatalf("body = %q", body)
	}
}

func TestChunksIterateOnce(t *testing.T) {
	c := Chunks([]byte("a"), []byte("b"))
	first, err := c.Next()
	if err != nil || string(first) != "a" {
		t.Fatalf("first = %q, %v", first, err)
	}
	second, err := c.Next()
	if err != nil || string(second) != "b" {
		t.Fatalf("second = %q, %v", second, err)
	}
	if _, err := c.Next(); err != io.EOF {
		t.Fatalf("exhausted sequence err = %v, want io.EOF", err)
	}
	if _, err := c.Next(); err != io.EOF {
		t.Fatalf("sequence restarted after EOF")
	}
}
