package config

import "time"

// ApplyDefaults fills every unset field with its production default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 120 * time.Second
	}
	if cfg.Upstream.MaxRetries == 0 {
		cfg.Upstream.MaxRetries = 2
	}

	if cfg.Catalog.Freshness == 0 {
		cfg.Catalog.Freshness = 5 * time.Minute
	}

	if cfg.Sessions.HeartbeatInterval == 0 {
		cfg.Sessions.HeartbeatInterval = 30 * time.Second
	}
	if cfg.Sessions.IdleTimeout == 0 {
		cfg.Sessions.IdleTimeout = 90 * time.Second
	}
	if cfg.Sessions.RemovalGrace == 0 {
		cfg.Sessions.RemovalGrace = 30 * time.Second
	}

	if cfg.Limits.ConnectionsPerWindow == 0 {
		cfg.Limits.ConnectionsPerWindow = 60
	}
	if cfg.Limits.Window == 0 {
		cfg.Limits.Window = time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "relay"
	}
}
