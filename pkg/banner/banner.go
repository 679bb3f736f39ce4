package banner

import (
	"fmt"

	"gatewayd/pkg/config"
)

const banner = `
 ██████╗  █████╗ ████████╗███████╗██╗    ██╗ █████╗ ██╗   ██╗██████╗
██╔════╝ ██╔══██╗╚══██╔══╝██╔════╝██║    ██║██╔══██╗╚██╗ ██╔╝██╔══██╗
██║  ███╗███████║   ██║   █████╗  ██║ █╗ ██║███████║ ╚████╔╝ ██║  ██║
██║   ██║██╔══██║   ██║   ██╔══╝  ██║███╗██║██╔══██║  ╚██╔╝  ██║  ██║
╚██████╔╝██║  ██║   ██║   ███████╗╚███╔███╔╝██║  ██║   ██║   ██████╔╝
 ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝   ╚═╝   ╚═════╝
`

// Print prints the startup banner using the effective config.
func Print(eff config.EffectiveConfigResult, version string) {
	cfg := eff.Config

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", eff.Addr)
	fmt.Printf("App:       %s\n", eff.App)
	fmt.Printf("Workers:   %d (%s, dispatch=%s)\n", cfg.Server.Workers, cfg.Server.Strategy, cfg.Server.Dispatch)
	fmt.Printf("Backlog:   %d\n", cfg.Server.Backlog)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	fmt.Printf("Config:    %s\n", eff.Source)
	if cfg.Admin.Enabled {
		fmt.Printf("Admin:     http://%s (healthz, readyz, metrics)\n", cfg.Admin.Address)
	}
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl 'http://localhost:%d/hello'\n", cfg.Server.Port)
	fmt.Printf("printf 'GET /hello HTTP/1.1\\r\\nHost: x\\r\\n\\r\\n' | nc localhost %d\n", cfg.Server.Port)
	fmt.Println("\n== Production? =================================================")
	fmt.Println("Raise workers to the core count (--workers)")
	fmt.Println("Front with a TLS-terminating proxy; this server speaks plain HTTP")
}
