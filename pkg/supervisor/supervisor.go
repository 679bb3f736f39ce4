// Package supervisor owns the shared listening endpoint and the pool of
// workers accepting from it. Workers are independent accept loops; the
// kernel decides which worker receives each incoming connection, either by
// arbitrating accepts on one shared socket or by load-balancing across
// per-worker SO_REUSEPORT sockets.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"gatewayd/pkg/logger"
	"gatewayd/pkg/server"
	"gatewayd/pkg/telemetry"
)

// Endpoint-sharing strategies.
const (
	StrategyShared    = "shared"    // one socket, all workers accept from it
	StrategyReusePort = "reuseport" // per-worker sockets bound with SO_REUSEPORT
)

// Options configures the supervisor and its workers.
type Options struct {
	Host    string
	Port    int
	Backlog int
	Workers int

	Strategy string // StrategyShared or StrategyReusePort
	Dispatch string // server.DispatchSerial or server.DispatchConcurrent

	// AcceptRPS enables a global accept-rate limit when > 0.
	AcceptRPS   float64
	AcceptBurst int

	// RestartWorkers respawns a worker whose accept loop died unexpectedly.
	RestartWorkers bool

	// GracePeriod bounds the wait for in-flight connections on shutdown.
	GracePeriod time.Duration
}

// Supervisor runs N workers against one listening endpoint and coordinates
// graceful shutdown: stop accepting, drain in-flight connections, join the
// workers, return.
type Supervisor struct {
	opts    Options
	handler *server.Handler
	metrics *telemetry.Metrics
	limiter *rate.Limiter

	listeners []net.Listener
	drain     sync.WaitGroup
	ready     atomic.Bool
}

// New builds a supervisor; the endpoint is not bound until Listen or Run.
func New(opts Options, h *server.Handler, m *telemetry.Metrics) *Supervisor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyShared
	}
	if opts.Dispatch == "" {
		opts.Dispatch = server.DispatchConcurrent
	}
	s := &Supervisor{opts: opts, handler: h, metrics: m}
	if opts.AcceptRPS > 0 {
		burst := opts.AcceptBurst
		if burst <= 0 {
			burst = 10
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.AcceptRPS), burst)
	}
	return s
}

// Listen binds the listening endpoint(s) for the configured strategy. It is
// idempotent; Run calls it when the caller has not.
func (s *Supervisor) Listen() error {
	if s.listeners != nil {
		return nil
	}
	switch s.opts.Strategy {
	case StrategyShared:
		ln, err := server.Listen(s.opts.Host, s.opts.Port, s.opts.Backlog, false)
		if err != nil {
			return fmt.Errorf("bind %s:%d: %w", s.opts.Host, s.opts.Port, err)
		}
		s.listeners = []net.Listener{ln}
	case StrategyReusePort:
		port := s.opts.Port
		for i := 0; i < s.opts.Workers; i++ {
			ln, err := server.Listen(s.opts.Host, port, s.opts.Backlog, true)
			if err != nil {
				s.closeListeners()
				return fmt.Errorf("bind worker %d on %s:%d: %w", i, s.opts.Host, port, err)
			}
			if port == 0 {
				// with an ephemeral port, every worker must bind the one the
				// kernel picked for the first socket
				port = ln.Addr().(*net.TCPAddr).Port
			}
			s.listeners = append(s.listeners, ln)
		}
	default:
		return fmt.Errorf("unknown strategy %q", s.opts.Strategy)
	}
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Supervisor) Addr() net.Addr {
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}

// Ready reports whether workers are running and accepting.
func (s *Supervisor) Ready() bool { return s.ready.Load() }

// Run starts the workers and blocks until ctx is canceled, then performs
// the shutdown sequence. Only the supervisor ever closes the endpoint; a
// closed listener is how workers learn that accepting is over.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	var workers sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		ln := s.listeners[0]
		if s.opts.Strategy == StrategyReusePort {
			ln = s.listeners[i]
		}
		workers.Add(1)
		go s.worker(ctx, i, ln, &workers)
	}
	s.ready.Store(true)
	logger.Info("workers_started", "workers", s.opts.Workers, "strategy", s.opts.Strategy, "addr", s.Addr().String())

	<-ctx.Done()
	s.ready.Store(false)
	logger.Info("shutdown_started", "msg", "closing listeners, draining connections")
	s.closeListeners()
	workers.Wait()

	// let in-flight connections complete, bounded by the grace period
	done := make(chan struct{})
	go func() {
		s.drain.Wait()
		close(done)
	}()
	grace := s.opts.GracePeriod
	if grace <= 0 {
		grace = 30 * time.Second
	}
	select {
	case <-done:
	case <-time.After(grace):
		logger.Warn("grace_period_exceeded", "grace", grace.String())
	}
	logger.Info("shutdown_complete")
	return nil
}

// worker runs one accept loop, optionally respawning it after a crash. One
// worker's failure never terminates its siblings.
func (s *Supervisor) worker(ctx context.Context, id int, ln net.Listener, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		err := s.runAcceptor(ctx, ln)
		if err == nil {
			if s.metrics != nil {
				s.metrics.WorkerExits.WithLabelValues("shutdown").Inc()
			}
			return
		}
		if s.metrics != nil {
			s.metrics.WorkerExits.WithLabelValues("crash").Inc()
		}
		logger.Error("worker_crashed", "worker", id, "error", err)
		if !s.opts.RestartWorkers || ctx.Err() != nil {
			return
		}
		if s.metrics != nil {
			s.metrics.WorkerRestarts.Inc()
		}
		logger.Info("worker_restarted", "worker", id)
	}
}

func (s *Supervisor) runAcceptor(ctx context.Context, ln net.Listener) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("accept loop panic: %v", r)
		}
	}()
	a := &server.Acceptor{
		Listener: ln,
		Handler:  s.handler,
		Dispatch: s.opts.Dispatch,
		Limiter:  s.limiter,
		Drain:    &s.drain,
		Metrics:  s.metrics,
	}
	return a.Run(ctx)
}

func (s *Supervisor) closeListeners() {
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
}
