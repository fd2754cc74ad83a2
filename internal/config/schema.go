// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for sclaw-console.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Gateway   GatewayConfig   `yaml:"gateway"`
	HTTP      HTTPConfig      `yaml:"http"`
	History   HistoryConfig   `yaml:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Apply     ApplyConfig     `yaml:"apply"`
}

// GatewayConfig locates the gateway websocket endpoint.
type GatewayConfig struct {
	// URL is the websocket endpoint (ws:// or wss://).
	URL   string `yaml:"url"`
	Token string `yaml:"token"`

	DialTimeout time.Duration `yaml:"dial_timeout"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// HTTPConfig controls the console HTTP API.
type HTTPConfig struct {
	Bind        string     `yaml:"bind"`
	Auth        AuthConfig `yaml:"auth"`
	CORSOrigins []string   `yaml:"cors_origins,omitempty"`

	// WritesPerMinute bounds mutating requests per client address.
	WritesPerMinute int `yaml:"writes_per_minute"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures API authentication. Bearer and basic auth may both
// be set; either one grants access.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token,omitempty"`
	BasicUser   string `yaml:"basic_user,omitempty"`
	BasicPass   string `yaml:"basic_pass,omitempty"`
}

// IsConfigured reports whether any authentication method is set.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || a.BasicUser != ""
}

// HistoryConfig controls the snapshot history database.
type HistoryConfig struct {
	// Path is the SQLite file. Empty disables persistent history.
	Path string `yaml:"path"`
	// Limit is the number of snapshots kept. Zero keeps everything.
	Limit int `yaml:"limit"`
	// PruneSchedule is the cron expression of the prune task.
	PruneSchedule string `yaml:"prune_schedule,omitempty"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sample_rate"`
	ServiceName string  `yaml:"service_name"`
}

// ApplyConfig holds config.apply defaults.
type ApplyConfig struct {
	RestartDelay time.Duration `yaml:"restart_delay"`
}
