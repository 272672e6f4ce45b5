package config

import (
	"fmt"
	"net/url"
)

// Validate rejects configurations that cannot run.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address is required")
	}

	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.base_url %q is not a valid URL", cfg.Upstream.BaseURL)
	}

	if cfg.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if cfg.Upstream.MaxRetries < 0 {
		return fmt.Errorf("upstream.max_retries must not be negative")
	}

	if cfg.Catalog.Freshness <= 0 {
		return fmt.Errorf("catalog.freshness must be positive")
	}

	if cfg.Sessions.HeartbeatInterval <= 0 {
		return fmt.Errorf("sessions.heartbeat_interval must be positive")
	}
	if cfg.Sessions.IdleTimeout <= cfg.Sessions.HeartbeatInterval {
		return fmt.Errorf("sessions.idle_timeout (%v) must exceed heartbeat_interval (%v)",
			cfg.Sessions.IdleTimeout, cfg.Sessions.HeartbeatInterval)
	}
	if cfg.Sessions.RemovalGrace < 0 {
		return fmt.Errorf("sessions.removal_grace must not be negative")
	}

	if cfg.Limits.ConnectionsPerWindow <= 0 {
		return fmt.Errorf("limits.connections_per_window must be positive")
	}
	if cfg.Limits.Window <= 0 {
		return fmt.Errorf("limits.window must be positive")
	}

	return nil
}
