package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Limits     LimitsConfig     `yaml:"limits"`
	Admin      AdminConfig      `yaml:"admin"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the listening endpoint and per-connection settings.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Backlog int    `yaml:"backlog"`
	Workers int    `yaml:"workers"`

	// Strategy selects how workers share the endpoint: "shared" (one
	// listening socket accepted from by every worker) or "reuseport"
	// (per-worker sockets bound with SO_REUSEPORT).
	Strategy string `yaml:"strategy"`

	// Dispatch selects intra-worker concurrency: "serial" (one connection
	// at a time per worker) or "concurrent" (goroutine per connection).
	Dispatch string `yaml:"dispatch"`

	MaxRequestBytes SizeBytes `yaml:"max_request_bytes"`

	// ReadTimeout bounds the read of one request; zero disables it, which
	// is the default for the minimal core.
	ReadTimeout Duration `yaml:"read_timeout"`
}

// SupervisorConfig holds worker lifecycle policy.
type SupervisorConfig struct {
	RestartWorkers bool     `yaml:"restart_workers"`
	GracePeriod    Duration `yaml:"grace_period"`
}

// LimitsConfig holds optional accept-side throttling.
type LimitsConfig struct {
	AcceptRPS   float64 `yaml:"accept_rps"`
	AcceptBurst int     `yaml:"accept_burst"`
}

// AdminConfig holds the operational HTTP endpoint (health, metrics).
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	AccessDir string `yaml:"access_dir"`
}

// Addr returns host:port for the listening endpoint.
func (c *Config) Addr() string {
	host := c.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", host, p)
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Backlog == 0 {
		c.Server.Backlog = 128
	}
	if c.Server.Workers == 0 {
		c.Server.Workers = 1
	}
	if c.Server.Strategy == "" {
		c.Server.Strategy = "shared"
	}
	if c.Server.Dispatch == "" {
		c.Server.Dispatch = "concurrent"
	}
	if c.Server.MaxRequestBytes == 0 {
		c.Server.MaxRequestBytes = 1 << 20
	}
	if c.Supervisor.GracePeriod == 0 {
		c.Supervisor.GracePeriod = Duration(30 * time.Second)
	}
	if c.Admin.Address == "" {
		c.Admin.Address = "127.0.0.1:9090"
	}
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "64KB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
