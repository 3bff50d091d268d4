package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
)

// Config represents the top-level application config.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Ledger    LedgerConfig    `koanf:"ledger"`
	Listeners ListenersConfig `koanf:"listeners"`
	Forwarder ForwarderConfig `koanf:"forwarder"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"` // memory | postgres
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type LedgerConfig struct {
	// SeedDemoData runs InitLedger on every contract at startup.
	SeedDemoData bool `koanf:"seed_demo_data"`
}

type ListenersConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	// Ports maps device type to its UDP port.
	Ports map[string]int `koanf:"ports"`
}

type ForwarderConfig struct {
	Endpoint       string `koanf:"endpoint"`
	QueueSize      int    `koanf:"queue_size"`
	Workers        int    `koanf:"workers"`
	MaxAttempts    int    `koanf:"max_attempts"`
	RetryBackoff   string `koanf:"retry_backoff"`   // parsed and validated on startup
	RequestTimeout string `koanf:"request_timeout"` // parsed and validated on startup
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for database.type postgres")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	default:
		return fmt.Errorf("unsupported database.type %q (must be memory or postgres)", c.Database.Type)
	}

	if c.Listeners.Enabled {
		if strings.TrimSpace(c.Listeners.Host) == "" {
			return fmt.Errorf("listeners.host is required")
		}
		seen := make(map[int]string)
		for _, t := range v1.AllDeviceTypes() {
			port, ok := c.Listeners.Ports[string(t)]
			if !ok {
				return fmt.Errorf("listeners.ports.%s is required", t)
			}
			if port <= 0 || port > 65535 {
				return fmt.Errorf("invalid listeners.ports.%s %d (must be 1-65535)", t, port)
			}
			if other, dup := seen[port]; dup {
				return fmt.Errorf("listeners.ports.%s conflicts with listeners.ports.%s on port %d", t, other, port)
			}
			seen[port] = string(t)
		}
	}

	if u, err := url.Parse(c.Forwarder.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid forwarder.endpoint %q", c.Forwarder.Endpoint)
	}
	if c.Forwarder.QueueSize <= 0 {
		return fmt.Errorf("forwarder.queue_size must be > 0")
	}
	if c.Forwarder.Workers <= 0 {
		return fmt.Errorf("forwarder.workers must be > 0")
	}
	if c.Forwarder.MaxAttempts <= 0 {
		return fmt.Errorf("forwarder.max_attempts must be > 0")
	}
	if _, err := c.Forwarder.RetryBackoffDuration(); err != nil {
		return err
	}
	if _, err := c.Forwarder.RequestTimeoutDuration(); err != nil {
		return err
	}

	return nil
}

// RetryBackoffDuration parses the configured initial retry backoff.
func (c ForwarderConfig) RetryBackoffDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.RetryBackoff)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid forwarder.retry_backoff %q", c.RetryBackoff)
	}
	return d, nil
}

// RequestTimeoutDuration parses the configured per-request timeout.
func (c ForwarderConfig) RequestTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid forwarder.request_timeout %q", c.RequestTimeout)
	}
	return d, nil
}

// Load parses config from file + env and validates it. An empty configPath
// loads defaults plus environment overrides only.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":               8080,
		"server.host":               "0.0.0.0",
		"server.max_body_size_mb":   1,
		"server.mode":               "release",
		"database.type":             "memory",
		"database.dsn":              "",
		"database.max_open_conns":   25,
		"database.max_idle_conns":   25,
		"database.auto_migrate":     true,
		"ledger.seed_demo_data":     false,
		"listeners.enabled":         true,
		"listeners.host":            "0.0.0.0",
		"listeners.ports.card_reader": 8844,
		"listeners.ports.cctv":        8842,
		"listeners.ports.light":       8843,
		"listeners.ports.printer":     8845,
		"listeners.ports.co2_sensor":  8849,
		"forwarder.endpoint":        "http://localhost:8080/sensor-events",
		"forwarder.queue_size":      1024,
		"forwarder.workers":         4,
		"forwarder.max_attempts":    5,
		"forwarder.retry_backoff":   "200ms",
		"forwarder.request_timeout": "5s",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("IOTLEDGER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "IOTLEDGER_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
