package server

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"resumecvpro/internal/config"
)

// configureTLS attaches a TLS config to httpServer when TLS is enabled.
// The certificate pair is loaded up front so a bad path fails at startup.
func (s *Server) configureTLS(httpServer *http.Server) error {
	if !s.TLSConfig.Enabled {
		fmt.Fprintf(s.out, "Starting server on http://%s\n", httpServer.Addr)
		fmt.Fprintln(s.out, "TLS: Disabled (HTTP only)")
		return nil
	}

	tlsConfig, err := buildTLSConfig(s.TLSConfig)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	httpServer.TLSConfig = tlsConfig

	fmt.Fprintf(s.out, "Starting server with HTTPS on https://%s\n", httpServer.Addr)
	fmt.Fprintf(s.out, "TLS: Enabled (minimum version %s)\n", tls.VersionName(tlsConfig.MinVersion))
	return nil
}

func buildTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	minVersion, err := config.ParseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate pair: %w", err)
	}
	return &tls.Config{
		MinVersion:   minVersion,
		Certificates: []tls.Certificate{cert},
	}, nil
}
