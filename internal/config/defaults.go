package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default values.
const (
	DefaultGatewayURL      = "ws://127.0.0.1:18789/ws"
	DefaultBind            = "127.0.0.1:8090"
	DefaultDialTimeout     = 10 * time.Second
	DefaultCallTimeout     = 30 * time.Second
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultHistoryLimit    = 50
	DefaultWritesPerMinute = 60
	DefaultTelemetryURL    = "localhost:4318"
	DefaultServiceName     = "sclaw-console"
	DefaultRestartDelay    = 2 * time.Second
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: "1"}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Gateway.URL == "" {
		c.Gateway.URL = DefaultGatewayURL
	}
	if c.Gateway.DialTimeout == 0 {
		c.Gateway.DialTimeout = DefaultDialTimeout
	}
	if c.Gateway.CallTimeout == 0 {
		c.Gateway.CallTimeout = DefaultCallTimeout
	}
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = DefaultBind
	}
	if c.HTTP.WritesPerMinute == 0 {
		c.HTTP.WritesPerMinute = DefaultWritesPerMinute
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = DefaultReadTimeout
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = DefaultWriteTimeout
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.History.Limit == 0 {
		c.History.Limit = DefaultHistoryLimit
	}
	c.History.Path = expandHome(c.History.Path)
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = DefaultTelemetryURL
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
	if c.Apply.RestartDelay == 0 {
		c.Apply.RestartDelay = DefaultRestartDelay
	}
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
