package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gatewayd/pkg/logger"
	"gatewayd/pkg/telemetry"
)

// Dispatch modes for connections accepted within one worker.
const (
	DispatchSerial     = "serial"     // one connection at a time, blocking
	DispatchConcurrent = "concurrent" // goroutine per connection
)

// ErrListenerClosed marks the expected accept failure when the supervisor
// closes the listening endpoint during shutdown. It is normal termination,
// not a fault.
var ErrListenerClosed = net.ErrClosed

// Acceptor runs one worker's accept loop against a listening endpoint. It
// never closes the listener; the endpoint is owned by the supervisor and
// closed exactly once during shutdown.
type Acceptor struct {
	Listener net.Listener
	Handler  *Handler
	Dispatch string

	// Limiter optionally throttles the accept rate; shared across workers.
	Limiter *rate.Limiter

	// Drain tracks in-flight connection handlers so the supervisor can wait
	// for them during graceful shutdown.
	Drain *sync.WaitGroup

	Metrics *telemetry.Metrics
}

// Run blocks in the accept loop until the listening endpoint is closed or
// ctx is canceled. A closed listener returns nil. Transient accept errors
// are logged and retried after a short pause.
func (a *Acceptor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if a.Limiter != nil {
			if err := a.Limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		conn, err := a.Listener.Accept()
		if err != nil {
			if errors.Is(err, ErrListenerClosed) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			logger.Warn("accept_failed", "error", err)
			// avoid a hot loop on persistent errors such as fd exhaustion
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if a.Metrics != nil {
			a.Metrics.ConnectionsAccepted.Inc()
		}

		if a.Drain != nil {
			a.Drain.Add(1)
		}
		if a.Dispatch == DispatchSerial {
			a.serve(conn)
			continue
		}
		go a.serve(conn)
	}
}

func (a *Acceptor) serve(conn net.Conn) {
	if a.Drain != nil {
		defer a.Drain.Done()
	}
	a.Handler.Serve(conn)
}
