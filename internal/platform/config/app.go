package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// ErrConfigNotFound is returned by LoadFile when the file does not exist.
// The accompanying config holds the defaults.
var ErrConfigNotFound = errors.New("config file not found")

// AppConfig is the service configuration file.
type AppConfig struct {
	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	HLS struct {
		Path          string        `yaml:"path"`
		ScanInterval  time.Duration `yaml:"scan_interval"`
		RecencyWindow time.Duration `yaml:"recency_window"`
	} `yaml:"hls"`

	Web struct {
		Path string `yaml:"path"`
	} `yaml:"web"`

	Auth struct {
		Enabled    bool     `yaml:"enabled"`
		StreamKeys []string `yaml:"stream_keys"`
	} `yaml:"auth"`

	// RTMP describes the upstream ingest server. It is informational only.
	RTMP struct {
		Port        int    `yaml:"port"`
		Application string `yaml:"application"`
	} `yaml:"rtmp"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	RateLimit struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.HLS.Path = "/var/www/hls"
	cfg.HLS.ScanInterval = 5 * time.Second
	cfg.HLS.RecencyWindow = 30 * time.Second
	cfg.Web.Path = "./web"
	cfg.Auth.Enabled = true
	cfg.Auth.StreamKeys = []string{"stream"}
	cfg.RTMP.Port = 1935
	cfg.RTMP.Application = "live"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 5
	cfg.RateLimit.Burst = 10
	return cfg
}

// LoadFile reads a YAML config from path on top of Default. A missing file
// returns the defaults together with ErrConfigNotFound; a malformed file
// returns nil and the parse error.
func LoadFile(path string) (*AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func (c *AppConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables, leaving the current
// value in place for anything unset.
func (c *AppConfig) ApplyEnv() {
	c.Server.Host = GetEnv("HOST", c.Server.Host)
	c.Server.Port = GetEnvInt("PORT", c.Server.Port)
	c.HLS.Path = GetEnv("HLS_PATH", c.HLS.Path)
	c.HLS.ScanInterval = GetEnvDuration("SCAN_INTERVAL", c.HLS.ScanInterval)
	c.HLS.RecencyWindow = GetEnvDuration("RECENCY_WINDOW", c.HLS.RecencyWindow)
	c.Web.Path = GetEnv("WEB_PATH", c.Web.Path)
	c.Auth.Enabled = GetEnvBool("AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.StreamKeys = GetEnvList("STREAM_KEYS", c.Auth.StreamKeys)
	c.Logging.Level = GetEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = GetEnv("LOG_FORMAT", c.Logging.Format)
	c.RateLimit.Enabled = GetEnvBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
}

// Addr returns host:port for the HTTP listener.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks that configuration values are within acceptable ranges.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	if c.HLS.Path == "" {
		return fmt.Errorf("hls.path must not be empty")
	}
	if c.HLS.ScanInterval <= 0 {
		return fmt.Errorf("hls.scan_interval must be > 0")
	}
	if c.HLS.RecencyWindow <= c.HLS.ScanInterval {
		return fmt.Errorf("hls.recency_window (%s) must exceed hls.scan_interval (%s)", c.HLS.RecencyWindow, c.HLS.ScanInterval)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be > 0 when enabled")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate_limit.burst must be > 0 when enabled")
		}
	}
	return nil
}
