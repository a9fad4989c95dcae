package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"
)

func allMetrics() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		AIOperations:    config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
		BusinessMetrics: config.BusinessMetricsConfig{Enabled: true},
		TrackRateLimits: true,
	}
}

func newTestMetrics(t *testing.T, settings config.CustomMetricsConfig) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), settings)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			out[md.Name] = md.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordAnalysis(t *testing.T) {
	m, reader := newTestMetrics(t, allMetrics())
	ctx := context.Background()

	usage := &types.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}
	m.RecordAnalysis(ctx, "gemini-2.5-flash", 2*time.Second, usage, nil)
	m.RecordAnalysis(ctx, "gemini-2.5-flash", time.Second, nil,
		errors.NewAnalysisError(errors.ErrCodeAnalysisFailed, "technical analysis failed, please resubmit", nil))

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["resumecvpro_ai_requests_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["resumecvpro_ai_errors_total"]))

	hist, ok := data["resumecvpro_ai_processing_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)

	tokens, ok := data["resumecvpro_ai_token_usage_total"].(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Len(t, tokens.DataPoints, 3)
}

func TestRecordAnalysisDisabled(t *testing.T) {
	m, reader := newTestMetrics(t, config.CustomMetricsConfig{})
	m.RecordAnalysis(context.Background(), "m", time.Second, nil, nil)
	m.RecordDownload(context.Background(), types.FormatPDF)
	m.RecordRateLimitHit(context.Background(), "ip")

	data := collect(t, reader)
	assert.NotContains(t, data, "resumecvpro_ai_requests_total")
	assert.NotContains(t, data, "resumecvpro_downloads_total")
	assert.NotContains(t, data, "resumecvpro_rate_limit_hits_total")
}

func TestBusinessMetrics(t *testing.T) {
	m, reader := newTestMetrics(t, allMetrics())
	ctx := context.Background()

	m.RecordScore(ctx, 70, false)
	m.RecordDownload(ctx, types.FormatPDF)
	m.RecordDownload(ctx, types.FormatDOCX)
	m.RecordShare(ctx, types.LangPortuguese)
	m.RecordJobFetch(ctx, nil)
	m.SessionOpened(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx, "expired")
	m.RecordRateLimitHit(ctx, "api_key")

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["resumecvpro_downloads_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["resumecvpro_shares_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["resumecvpro_job_fetches_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["resumecvpro_sessions_active"]))
	assert.Equal(t, int64(1), sumOf(t, data["resumecvpro_rate_limit_hits_total"]))
	assert.Contains(t, data, "resumecvpro_analysis_score")
}

func TestZeroMetricsAreSafe(t *testing.T) {
	var nilMetrics *Metrics
	empty := &Metrics{}
	ctx := context.Background()

	for _, m := range []*Metrics{nilMetrics, empty} {
		assert.NotPanics(t, func() {
			m.RecordAnalysis(ctx, "m", time.Second, &types.TokenUsage{}, nil)
			m.RecordScore(ctx, 50, true)
			m.RecordDownload(ctx, types.FormatPDF)
			m.RecordShare(ctx, types.LangEnglish)
			m.RecordJobFetch(ctx, nil)
			m.SessionOpened(ctx)
			m.SessionClosed(ctx, "deleted")
			m.RecordRateLimitHit(ctx, "ip")
		})
	}
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(config.ObservabilityConfig{}, "1.0.0", nil)
	require.NoError(t, err)

	assert.NotNil(t, om.GetMetrics())
	assert.NotNil(t, om.Tracer("x"))
	assert.True(t, strings.HasPrefix(om.ServiceInstance(), "resumecvpro-"))
	_, _, ok := om.MetricsEndpoint()
	assert.False(t, ok)
	assert.NoError(t, om.Shutdown(context.Background()))

	var nilManager *ObservabilityManager
	assert.NotNil(t, nilManager.GetMetrics())
	assert.NoError(t, nilManager.Shutdown(context.Background()))
}

func TestPrometheusOnAPIListener(t *testing.T) {
	om, err := NewObservabilityManager(config.ObservabilityConfig{
		Enabled:       true,
		SampleRate:    1,
		CustomMetrics: allMetrics(),
		Prometheus:    config.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
	}, "1.0.0", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	path, handler, ok := om.MetricsEndpoint()
	require.True(t, ok)
	assert.Equal(t, "/metrics", path)

	om.GetMetrics().RecordDownload(context.Background(), types.FormatPDF)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "resumecvpro_downloads")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
