package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"gatewayd/pkg/httpwire"
)

func sampleRequest() *httpwire.Request {
	return &httpwire.Request{
		Method: "POST",
		Path:   "/submit",
		Query:  "user=a",
		Proto:  "HTTP/1.1",
		Headers: []httpwire.Header{
			{Name: "Host", Value: "example.com"},
			{Name: "Content-Type", Value: "application/json"},
			{Name: "Content-Length", Value: "2"},
			{Name: "X-Tag", Value: "one"},
			{Name: "X-Tag", Value: "two"},
		},
		Body:       bytes.NewReader([]byte("{}")),
		RemoteAddr: "10.0.0.1:4242",
	}
}

func TestBuildEnviron(t *testing.T) {
	env := BuildEnviron(sampleRequest())

	want := map[string]string{
		EnvRequestMethod:  "POST",
		EnvPathInfo:       "/submit",
		EnvQueryString:    "user=a",
		EnvServerProtocol: "HTTP/1.1",
		EnvRemoteAddr:     "10.0.0.1:4242",
		EnvContentType:    "application/json",
		EnvContentLength:  "2",
		EnvURLScheme:      "http",
		"HTTP_HOST":       "example.com",
		"HTTP_X_TAG":      "one,two",
	}
	for k, v := range want {
		if got, _ := env[k].(string); got != v {
			t.Fatalf("env[%s] = %q, want %q", k, got, v)
		}
	}
	if _, ok := env[EnvInput].(io.Reader); !ok {
		t.Fatalf("env[%s] is not a reader", EnvInput)
	}
	if v, ok := env[EnvVersion].([2]int); !ok || v != Version {
		t.Fatalf("env[%s] = %v", EnvVersion, env[EnvVersion])
	}
}

func TestInvoke(t *testing.T) {
	app := func(env map[string]any, start StartResponse) (httpwire.BodyChunks, error) {
		if err := start("201 Created", []httpwire.Header{{Name: "X-A", Value: "1"}}); err != nil {
			return nil, err
		}
		return httpwire.Chunks([]byte("done")), nil
	}
	resp, err := Invoke(app, sampleRequest())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.Status != "201 Created" {
		t.Fatalf("status = %q", resp.Status)
	}
	if len(resp.Headers) != 1 || resp.Headers[0].Name != "X-A" {
		t.Fatalf("headers = %v", resp.Headers)
	}
	chunk, err := resp.Body.Next()
	if err != nil || string(chunk) != "done" {
		t.Fatalf("body chunk = %q, %v", chunk, err)
	}
}

func TestStartResponseSecondCallRejected(t *testing.T) {
	// the policy is explicit rejection: the first response stands and the
	// repeat call fails the same way on every run
	for i := 0; i < 3; i++ {
		var secondErr error
		app := func(env map[string]any, start StartResponse) (httpwire.BodyChunks, error) {
			if err := start("200 OK", nil); err != nil {
				return nil, err
			}
			secondErr = start("500 Internal Server Error", nil)
			return httpwire.Chunks(), nil
		}
		resp, err := Invoke(app, sampleRequest())
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if !errors.Is(secondErr, ErrResponseStarted) {
			t.Fatalf("second start err = %v, want ErrResponseStarted", secondErr)
		}
		if resp.Status != "200 OK" {
			t.Fatalf("first response was overwritten: %q", resp.Status)
		}
	}
}

func TestInvokeApplicationError(t *testing.T) {
	app := func(env map[string]any, start StartResponse) (httpwire.BodyChunks, error) {
		return nil, fmt.Errorf("boom")
	}
	_, err := Invoke(app, sampleRequest())
	if !errors.Is(err, ErrApplication) {
		t.Fatalf("err = %v, want ErrApplication", err)
	}
}

func TestInvokeApplicationPanic(t *testing.T) {
	app := func(env map[string]any, start StartResponse) (httpwire.BodyChunks, error) {
		panic("kaboom")
	}
	resp, err := Invoke(app, sampleRequest())
	if !errors.Is(err, ErrApplication) {
		t.Fatalf("err = %v, want ErrApplication", err)
	}
	if resp != nil {
		t.Fatalf("resp = %v, want nil after panic", resp)
	}
}

func TestInvokeNoStartIsError(t *testing.T) {
	app := func(env map[string]any, start StartResponse) (httpwire.BodyChunks, error) {
		return httpwire.Chunks([]byte("orphan body")), nil
	}
	_, err := Invoke(app, sampleRequest())
	if !errors.Is(err, ErrApplication) {
		t.Fatalf("err = %v, want ErrApplication", err)
	}
}
