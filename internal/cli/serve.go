package cli

import (
	"context"
	"fmt"
	"time"

	"resumecvpro/internal/observability"
	"resumecvpro/internal/server"
	"resumecvpro/internal/storage"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server exposing optimization sessions over JSON.

Each session owns one upload → job info → analyzing → result flow:
- POST /sessions, GET|DELETE /sessions/{id}
- PUT /sessions/{id}/resume, POST /sessions/{id}/resume/confirm, POST /sessions/{id}/back
- PUT /sessions/{id}/job, POST /sessions/{id}/analyze
- GET /sessions/{id}/view?sub=, PUT /sessions/{id}/subview
- POST /sessions/{id}/new, POST /sessions/{id}/history/{recordID}
- GET /sessions/{id}/download?format=pdf|docx, GET /sessions/{id}/share

Shared resources:
- GET|DELETE /history, GET|DELETE /history/{id}
- GET|PUT /prefs
- POST /diff
- GET /health, GET /stats`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveOpts struct {
	Port          string
	Host          string
	CertFile      string
	KeyFile       string
	TLSMinVersion string
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.Port, "port", "p", "", "Port to listen on (default from config)")
	f.StringVar(&serveOpts.Host, "host", "", "Host to bind to (default from config)")
	f.StringVar(&serveOpts.CertFile, "cert-file", "", "Server certificate file (PEM, enables TLS)")
	f.StringVar(&serveOpts.KeyFile, "key-file", "", "Server private key file (PEM)")
	f.StringVar(&serveOpts.TLSMinVersion, "tls-min-version", "", "Minimum TLS version: 1.2 or 1.3")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	if serveOpts.Port != "" {
		cfg.Server.Port = serveOpts.Port
	}
	if serveOpts.Host != "" {
		cfg.Server.Host = serveOpts.Host
	}
	if serveOpts.CertFile != "" || serveOpts.KeyFile != "" {
		cfg.Server.TLS.Enabled = true
		cfg.Server.TLS.CertFile = serveOpts.CertFile
		cfg.Server.TLS.KeyFile = serveOpts.KeyFile
	}
	if serveOpts.TLSMinVersion != "" {
		cfg.Server.TLS.MinVersion = serveOpts.TLSMinVersion
	}
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(cfg.Observability, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	svc, err := newAnalysisService(ctx, cfg, om.GetMetrics(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if fs, ok := st.kv.(*storage.FileStore); ok && cfg.Storage.Watch {
		w, err := st.history.StartWatching(ctx, fs, cfg.Storage.WatchDebounce)
		if err != nil {
			logger.LogError(err, "History file watching disabled")
		} else {
			defer func() { _ = w.Stop() }()
		}
	}

	srv := server.NewServer(cfg, Version, server.Dependencies{
		Analyzer:      svc,
		History:       st.history,
		Prefs:         st.prefs,
		Observability: om,
	}, logger)
	return srv.Start(ctx)
}
