package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"gatewayd/pkg/apps"
	"gatewayd/pkg/banner"
	"gatewayd/pkg/config"
	"gatewayd/pkg/gateway"
	"gatewayd/pkg/logger"
	"gatewayd/pkg/server"
	"gatewayd/pkg/supervisor"
	"gatewayd/pkg/telemetry"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	application gateway.Application
	metrics     *telemetry.Metrics
	registry    *prometheus.Registry
	sup         *supervisor.Supervisor
	admin       *http.Server
}

// New validates the effective config and assembles the components. It does
// not bind the endpoint or start workers; call Run for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	application, err := apps.Lookup(eff.App)
	if err != nil {
		return nil, err
	}

	if dir := eff.Config.Logging.AccessDir; dir != "" {
		if err := logger.AttachAccessFileSink(dir); err != nil {
			return nil, fmt.Errorf("attach access log: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	cfg := eff.Config
	handler := &server.Handler{
		App:             application,
		MaxRequestBytes: cfg.Server.MaxRequestBytes.Int64(),
		ReadTimeout:     cfg.Server.ReadTimeout.Duration(),
		Metrics:         metrics,
	}
	sup := supervisor.New(supervisor.Options{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Backlog:        cfg.Server.Backlog,
		Workers:        cfg.Server.Workers,
		Strategy:       cfg.Server.Strategy,
		Dispatch:       cfg.Server.Dispatch,
		AcceptRPS:      cfg.Limits.AcceptRPS,
		AcceptBurst:    cfg.Limits.AcceptBurst,
		RestartWorkers: cfg.Supervisor.RestartWorkers,
		GracePeriod:    cfg.Supervisor.GracePeriod.Duration(),
	}, handler, metrics)

	return &App{
		eff:         eff,
		version:     version,
		commit:      commit,
		buildDate:   buildDate,
		application: application,
		metrics:     metrics,
		registry:    registry,
		sup:         sup,
	}, nil
}

// Run binds the endpoint, starts the admin server and the workers, and
// blocks until ctx is canceled (then drains gracefully) or a fatal error
// occurs.
func (a *App) Run(ctx context.Context) error {
	if err := a.sup.Listen(); err != nil {
		return err
	}

	a.printBanner()

	adminErr := a.startAdmin(ctx)

	supErr := make(chan error, 1)
	go func() { supErr <- a.sup.Run(ctx) }()

	select {
	case err := <-supErr:
		a.stopAdmin()
		return err
	case err := <-adminErr:
		return fmt.Errorf("admin server: %w", err)
	}
}

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.eff, verStr)
}
