package config

import (
	"crypto/tls"
	"fmt"
)

// ValidateTLSConfig validates the server TLS configuration
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS
	if !t.Enabled {
		return nil
	}
	if t.CertFile == "" || t.KeyFile == "" {
		return fmt.Errorf("certFile and keyFile are required when TLS is enabled")
	}
	if _, err := ParseTLSVersion(t.MinVersion); err != nil {
		return err
	}
	return nil
}

// ParseTLSVersion maps "1.2"/"1.3" to the crypto/tls constant. Empty means 1.2.
func ParseTLSVersion(v string) (uint16, error) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("invalid TLS minVersion '%s': must be 1.2 or 1.3", v)
	}
}
