package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Validate checks the structural validity of a Config and reports every
// problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateGateway(cfg.Gateway)...)
	errs = append(errs, validateHTTP(cfg.HTTP)...)

	if cfg.History.Limit < 0 {
		errs = append(errs, fmt.Errorf("config: history.limit must be non-negative, got %d", cfg.History.Limit))
	}

	if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.sample_rate must be within [0, 1], got %v", cfg.Telemetry.SampleRate))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("config: telemetry.endpoint is required when telemetry is enabled"))
	}

	if cfg.Apply.RestartDelay < 0 {
		errs = append(errs, errors.New("config: apply.restart_delay must be non-negative"))
	}

	return errors.Join(errs...)
}

func validateGateway(g GatewayConfig) []error {
	var errs []error
	if g.URL == "" {
		errs = append(errs, errors.New("config: gateway.url is required"))
	} else if u, err := url.Parse(g.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		errs = append(errs, fmt.Errorf("config: gateway.url must be a ws:// or wss:// URL, got %q", g.URL))
	}
	if g.DialTimeout < 0 {
		errs = append(errs, errors.New("config: gateway.dial_timeout must be non-negative"))
	}
	if g.CallTimeout < 0 {
		errs = append(errs, errors.New("config: gateway.call_timeout must be non-negative"))
	}
	return errs
}

func validateHTTP(h HTTPConfig) []error {
	var errs []error
	if _, _, err := net.SplitHostPort(h.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: http.bind: %w", err))
	}
	if (h.Auth.BasicUser == "") != (h.Auth.BasicPass == "") {
		errs = append(errs, errors.New("config: http.auth.basic_user and basic_pass must be set together"))
	}
	for i, origin := range h.CORSOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: http.cors_origins[%d]: invalid origin %q", i, origin))
		}
	}
	if h.WritesPerMinute < 0 {
		errs = append(errs, errors.New("config: http.writes_per_minute must be non-negative"))
	}
	if h.ReadTimeout < 0 || h.WriteTimeout < 0 || h.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("config: http timeouts must be non-negative"))
	}
	return errs
}
