// Package observability wires OpenTelemetry tracing and metrics for the
// API server: exporters, the per-request middleware and the domain metrics
// recorded by sessions, analyses and the rate limiter.
package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "resumecvpro"

// ObservabilityManager owns the tracer and meter providers and everything
// that must be flushed on shutdown.
type ObservabilityManager struct {
	cfg            config.ObservabilityConfig
	version        string
	logger         *errors.Logger
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	prometheus     *prometheusEndpoint
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager builds the providers selected in cfg. version is
// reported as service.version unless cfg overrides it. A disabled manager
// hands out no-op tracers and nil-safe metrics.
func NewObservabilityManager(cfg config.ObservabilityConfig, version string, logger *errors.Logger) (*ObservabilityManager, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version
	}
	if cfg.ServiceInstance == "" {
		cfg.ServiceInstance = cfg.ServiceName + "-" + uuid.NewString()[:8]
	}

	om := &ObservabilityManager{cfg: cfg, version: version, logger: logger}
	if !cfg.Enabled {
		return om, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.ServiceInstanceID(cfg.ServiceInstance),
	))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	if err := om.initTracing(res); err != nil {
		_ = om.Shutdown(context.Background())
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	if err := om.initMetrics(res); err != nil {
		_ = om.Shutdown(context.Background())
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	logger.Info("Observability enabled",
		"service", cfg.ServiceName,
		"instance", cfg.ServiceInstance,
		"console", cfg.ConsoleOutput,
		"otlp", cfg.OTLP.Enabled,
		"prometheus", cfg.Prometheus.Enabled)
	return om, nil
}

func (om *ObservabilityManager) initTracing(res *resource.Resource) error {
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.cfg.SampleRate))),
	}

	if om.cfg.ConsoleOutput {
		var stdoutOpts []stdouttrace.Option
		if om.cfg.PrettyPrint {
			stdoutOpts = append(stdoutOpts, stdouttrace.WithPrettyPrint())
		}
		exp, err := stdouttrace.New(stdoutOpts...)
		if err != nil {
			return fmt.Errorf("console span exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exp))
	}
	if om.cfg.OTLP.Enabled {
		exp, err := otlptracehttp.New(context.Background(), otlpTraceOptions(om.cfg.OTLP)...)
		if err != nil {
			return fmt.Errorf("otlp span exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exp))
	}

	tp := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

func (om *ObservabilityManager) initMetrics(res *resource.Resource) error {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	interval := om.collectionInterval()

	if om.cfg.ConsoleOutput {
		exp, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("console metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))))
	}
	if om.cfg.OTLP.Enabled {
		exp, err := otlpmetrichttp.New(context.Background(), otlpMetricOptions(om.cfg.OTLP)...)
		if err != nil {
			return fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))))
	}
	if om.cfg.Prometheus.Enabled {
		p, err := newPrometheusEndpoint(om.cfg.Prometheus)
		if err != nil {
			return err
		}
		om.prometheus = p
		opts = append(opts, sdkmetric.WithReader(p.reader))
		if srv := p.listen(om.logger); srv != nil {
			om.shutdownFuncs = append(om.shutdownFuncs, srv.Shutdown)
		}
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	metrics, err := NewMetrics(mp.Meter(om.cfg.ServiceName), om.cfg.CustomMetrics)
	if err != nil {
		return err
	}
	om.metrics = metrics
	return nil
}

func otlpTraceOptions(cfg config.OTLPConfig) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return opts
}

func otlpMetricOptions(cfg config.OTLPConfig) []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	return opts
}

// GetMetrics returns the domain metrics. It never returns nil.
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware instruments every request with otelhttp.
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.enabled() {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		om.cfg.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a named tracer, or a no-op one when observability is off.
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.enabled() {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// ServiceInstance is the service.instance.id reported with every signal.
func (om *ObservabilityManager) ServiceInstance() string {
	if om == nil {
		return ""
	}
	return om.cfg.ServiceInstance
}

// Shutdown flushes exporters in reverse order of creation and reports every failure.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}
	var errs []error
	for i := len(om.shutdownFuncs) - 1; i >= 0; i-- {
		if err := om.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	om.shutdownFuncs = nil
	return stderrors.Join(errs...)
}

func (om *ObservabilityManager) enabled() bool {
	return om != nil && om.cfg.Enabled && om.tracerProvider != nil
}
