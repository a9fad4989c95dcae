package server

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// shutdownGrace bounds how long in-flight requests, analyses included, may run after shutdown begins.
const shutdownGrace = 30 * time.Second

// Start listens on the configured address and serves until ctx is done.
// Callers cancel ctx on SIGINT/SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.newHTTPServer()
	if err := s.configureTLS(httpServer); err != nil {
		s.Close()
		return err
	}

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		s.Close()
		return fmt.Errorf("listen on %s: %w", httpServer.Addr, err)
	}

	s.displayServerInfo()
	return s.serve(ctx, httpServer, ln)
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// serve runs httpServer on ln and drains it when ctx is done. Sessions and
// the rate limiter are released once the listener has stopped.
func (s *Server) serve(ctx context.Context, httpServer *http.Server, ln net.Listener) error {
	defer s.Close()

	if httpServer.TLSConfig != nil {
		ln = tls.NewListener(ln, httpServer.TLSConfig)
	}

	serveErr := make(chan error, 1)
	go func() {
		s.Logger.Info("Serving HTTP",
			"address", ln.Addr().String(),
			"tls_enabled", httpServer.TLSConfig != nil)
		serveErr <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down HTTP server", "active_sessions", s.Sessions.Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Graceful shutdown timed out, closing connections")
		return httpServer.Close()
	}
	s.Logger.Info("HTTP server stopped")
	return nil
}
