package app

import (
	"fmt"
	"net"

	"gatewayd/pkg/config"
	"gatewayd/pkg/server"
	"gatewayd/pkg/supervisor"
)

// validateConfig checks the effective config early so startup fails fast
// with a clear message instead of a half-started server.
func validateConfig(eff config.EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	if cfg.Server.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", cfg.Server.Workers)
	}
	if cfg.Server.Backlog < 1 {
		return fmt.Errorf("backlog must be >= 1, got %d", cfg.Server.Backlog)
	}
	switch cfg.Server.Strategy {
	case supervisor.StrategyShared, supervisor.StrategyReusePort:
	default:
		return fmt.Errorf("unknown strategy %q (want %q or %q)", cfg.Server.Strategy, supervisor.StrategyShared, supervisor.StrategyReusePort)
	}
	switch cfg.Server.Dispatch {
	case server.DispatchSerial, server.DispatchConcurrent:
	default:
		return fmt.Errorf("unknown dispatch %q (want %q or %q)", cfg.Server.Dispatch, server.DispatchSerial, server.DispatchConcurrent)
	}
	if cfg.Server.MaxRequestBytes < 0 {
		return fmt.Errorf("max_request_bytes must be >= 0")
	}
	if cfg.Admin.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Admin.Address); err != nil {
			return fmt.Errorf("invalid admin address %q: %w", cfg.Admin.Address, err)
		}
	}
	return nil
}
