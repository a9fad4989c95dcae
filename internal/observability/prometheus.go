package observability

import (
	"fmt"
	"net/http"
	"time"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
)

// prometheusEndpoint exposes the meter provider in the Prometheus text format
// from a private registry, so several managers can coexist in one process.
type prometheusEndpoint struct {
	cfg      config.PrometheusConfig
	registry *prometheus.Registry
	reader   *otelprom.Exporter
}

func newPrometheusEndpoint(cfg config.PrometheusConfig) (*prometheusEndpoint, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reader, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/metrics"
	}
	return &prometheusEndpoint{cfg: cfg, registry: registry, reader: reader}, nil
}

func (p *prometheusEndpoint) handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// listen starts a dedicated metrics listener when a port is configured.
// Without one the API server mounts the handler itself.
func (p *prometheusEndpoint) listen(logger *errors.Logger) *http.Server {
	if p.cfg.Port == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("GET "+p.cfg.Endpoint, p.handler())

	srv := &http.Server{
		Addr:              ":" + p.cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	logger.Info("Serving Prometheus metrics", "addr", srv.Addr, "path", p.cfg.Endpoint)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Prometheus listener stopped", "error", err)
		}
	}()
	return srv
}

// MetricsEndpoint returns the scrape path and handler when Prometheus is
// enabled without a dedicated port, so the API server can serve it.
func (om *ObservabilityManager) MetricsEndpoint() (string, http.Handler, bool) {
	if om == nil || om.prometheus == nil || om.prometheus.cfg.Port != "" {
		return "", nil, false
	}
	return om.prometheus.cfg.Endpoint, om.prometheus.handler(), true
}
