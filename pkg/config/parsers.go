package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr    string
	Workers int
	App     string
	Config  string
	Set     map[string]bool
}

// EffectiveConfigResult is the merged configuration the server runs with,
// plus where it came from ("flags", "env", "config", or a comma-joined
// combination; "defaults" when nothing was provided).
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	App    string
	Source string
}

// ParseConfigFlags defines and parses command-line flags.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "listen address")
	workersPtr := flag.Int("workers", 0, "worker count (0 = config/default)")
	appPtr := flag.String("app", "hello", "application to host")
	cfgPtr := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, Workers: *workersPtr, App: *appPtr, Config: *cfgPtr, Set: setFlags}
}

// ApplyEnvOverrides applies GATEWAYD_* environment variables onto cfg and
// reports whether any were used.
func ApplyEnvOverrides(cfg *Config) bool {
	envUsed := false

	if v := os.Getenv("GATEWAYD_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Host = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Host = v
		}
	} else {
		if host := os.Getenv("GATEWAYD_HOST"); host != "" {
			envUsed = true
			cfg.Server.Host = host
		}
		if port := os.Getenv("GATEWAYD_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("GATEWAYD_BACKLOG"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Server.Backlog = n
		}
	}
	if v := os.Getenv("GATEWAYD_WORKERS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Server.Workers = n
		}
	}
	if v := os.Getenv("GATEWAYD_STRATEGY"); v != "" {
		envUsed = true
		cfg.Server.Strategy = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("GATEWAYD_DISPATCH"); v != "" {
		envUsed = true
		cfg.Server.Dispatch = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("GATEWAYD_ACCEPT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Limits.AcceptRPS = f
		}
	}
	if v := os.Getenv("GATEWAYD_ACCEPT_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Limits.AcceptBurst = n
		}
	}
	if v := os.Getenv("GATEWAYD_ADMIN_ADDR"); v != "" {
		envUsed = true
		cfg.Admin.Enabled = true
		cfg.Admin.Address = v
	}
	if v := os.Getenv("GATEWAYD_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("GATEWAYD_ACCESS_LOG_DIR"); v != "" {
		envUsed = true
		cfg.Logging.AccessDir = v
	}
	return envUsed
}

// LoadEffectiveConfig merges the config file, environment overrides and
// command-line flags, with flags winning over env, and env over file.
func LoadEffectiveConfig(flags Flags) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	var srcs []string

	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	switch {
	case err == nil:
		srcs = append(srcs, "config")
	case flags.Set["config"]:
		// an explicitly requested config file must exist
		return res, err
	default:
		cfg = &Config{}
	}

	if ApplyEnvOverrides(cfg) {
		srcs = append(srcs, "env")
	}

	if flags.Set["addr"] {
		if h, p, err := net.SplitHostPort(flags.Addr); err == nil {
			cfg.Server.Host = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Host = flags.Addr
		}
	}
	if flags.Set["workers"] && flags.Workers > 0 {
		cfg.Server.Workers = flags.Workers
	}
	if flags.Set["addr"] || flags.Set["workers"] || flags.Set["app"] {
		srcs = append(srcs, "flags")
	}

	cfg.ApplyDefaults()

	res.Config = cfg
	res.Addr = cfg.Addr()
	res.App = flags.App
	res.Source = strings.Join(srcs, ", ")
	if res.Source == "" {
		res.Source = "defaults"
	}
	return res, nil
}
