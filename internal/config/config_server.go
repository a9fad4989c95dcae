package config

import "time"

// ServerConfig configures the HTTP API. Every route except /health and
// /stats requires one of APIKeys when the list is non-empty.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`

	MaxRequestSize int64 `mapstructure:"maxRequestSize"`

	// idle sessions are dropped after SessionTTL unless an analysis is running
	SessionTTL             time.Duration `mapstructure:"sessionTTL"`
	SessionCleanupInterval time.Duration `mapstructure:"sessionCleanupInterval"`
	MaxSessions            int           `mapstructure:"maxSessions"`
}

// TLSConfig enables HTTPS with a static key pair. MinVersion is "1.2" or "1.3".
type TLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CertFile   string `mapstructure:"certFile"`
	KeyFile    string `mapstructure:"keyFile"`
	MinVersion string `mapstructure:"minVersion"`
}

// RateLimitConfig keeps one token bucket per caller. Callers are keyed by API
// key when ByAPIKey is set and a key is present, otherwise by client IP.
// Buckets idle for longer than Window are forgotten.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"`
}
