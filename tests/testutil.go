package tests

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"gatewayd/pkg/gateway"
	"gatewayd/pkg/server"
	"gatewayd/pkg/supervisor"
)

// startGateway boots a supervisor hosting app on an ephemeral loopback port
// and returns its address plus a stop function that performs the full
// graceful shutdown and waits for it to finish.
func startGateway(t *testing.T, workers int, app gateway.Application) (string, func()) {
	t.Helper()

	h := &server.Handler{App: app, MaxRequestBytes: 1 << 20}
	s := supervisor.New(supervisor.Options{
		Host:        "127.0.0.1",
		Port:        0,
		Backlog:     16,
		Workers:     workers,
		GracePeriod: 5 * time.Second,
	}, h, nil)
	if err := s.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := s.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !s.Ready() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("supervisor never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// stop is safe to call from a spawned goroutine, so it reports through
	// Errorf rather than Fatalf.
	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("supervisor run: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Errorf("supervisor did not shut down")
		}
	}
	return addr, stop
}

// exchange sends raw over a fresh connection and returns everything the
// server wrote before closing. It reports failures through Errorf so it can
// run from spawned goroutines.
func exchange(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Errorf("dial %s: %v", addr, err)
		return ""
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Errorf("write request: %v", err)
		return ""
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Errorf("read response: %v", err)
		return ""
	}
	return string(out)
}
