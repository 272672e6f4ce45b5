// Package config defines the relay's YAML configuration: file loading,
// defaults, environment overrides, validation, and hot reload of the
// pricing table.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Upstream configures the inference provider client.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Catalog configures the model registry cache.
	Catalog CatalogConfig `yaml:"catalog"`

	// Sessions configures the duplex session manager.
	Sessions SessionsConfig `yaml:"sessions"`

	// Limits configures per-origin admission.
	Limits LimitsConfig `yaml:"limits"`

	// Pricing configures the cost estimation table.
	Pricing PricingConfig `yaml:"pricing"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus surface.
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddress is the host:port to bind.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading the request headers and body.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. Zero disables it;
	// streaming responses outlive any fixed write budget.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive idle connections.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig configures the inference provider client.
type UpstreamConfig struct {
	// BaseURL is the provider API root.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates to the provider. Overridable via
	// RELAY_UPSTREAM_API_KEY.
	APIKey string `yaml:"api_key"`

	// Timeout bounds non-streaming upstream calls.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries caps retries for retryable upstream failures.
	MaxRetries int `yaml:"max_retries"`
}

// CatalogConfig configures the model registry cache.
type CatalogConfig struct {
	// Freshness is how long a catalog snapshot answers reads before a
	// refresh.
	Freshness time.Duration `yaml:"freshness"`
}

// SessionsConfig configures the duplex session manager.
type SessionsConfig struct {
	// HeartbeatInterval is the sweep period.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// IdleTimeout deactivates sessions idle for this long. Must exceed
	// HeartbeatInterval.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// RemovalGrace keeps a deactivated session's record queryable.
	RemovalGrace time.Duration `yaml:"removal_grace"`
}

// LimitsConfig configures per-origin admission.
type LimitsConfig struct {
	// ConnectionsPerWindow caps admissions per origin per window.
	ConnectionsPerWindow int64 `yaml:"connections_per_window"`

	// Window is the sliding admission window.
	Window time.Duration `yaml:"window"`
}

// PricingConfig configures cost estimation.
type PricingConfig struct {
	// TablePath points at a YAML rate table. Empty uses built-in
	// defaults only. The file is watched and hot-reloaded.
	TablePath string `yaml:"table_path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file:line in records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus surface.
type MetricsConfig struct {
	// Enabled exposes /metrics.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}
