package observability

import (
	"context"
	"fmt"
	"time"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments of the service. The zero value records nothing.
type Metrics struct {
	settings config.CustomMetricsConfig

	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business metrics
	AnalysisScore  metric.Int64Histogram
	Downloads      metric.Int64Counter
	Shares         metric.Int64Counter
	JobFetches     metric.Int64Counter
	ActiveSessions metric.Int64UpDownCounter

	RateLimitHits metric.Int64Counter
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, settings config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{settings: settings}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"resumecvpro_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AIRequestCount, err = meter.Int64Counter(
		"resumecvpro_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}
	if m.AIErrorCount, err = meter.Int64Counter(
		"resumecvpro_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram(
		"resumecvpro_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (prompt, completion, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.AnalysisScore, err = meter.Int64Histogram(
		"resumecvpro_analysis_score",
		metric.WithDescription("Distribution of ATS scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	); err != nil {
		return nil, fmt.Errorf("failed to create analysis score metric: %w", err)
	}
	if m.Downloads, err = meter.Int64Counter(
		"resumecvpro_downloads_total",
		metric.WithDescription("Total number of optimized résumé downloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create downloads metric: %w", err)
	}
	if m.Shares, err = meter.Int64Counter(
		"resumecvpro_shares_total",
		metric.WithDescription("Total number of share messages generated"),
	); err != nil {
		return nil, fmt.Errorf("failed to create shares metric: %w", err)
	}
	if m.JobFetches, err = meter.Int64Counter(
		"resumecvpro_job_fetches_total",
		metric.WithDescription("Total number of job posting fetches"),
	); err != nil {
		return nil, fmt.Errorf("failed to create job fetches metric: %w", err)
	}
	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"resumecvpro_sessions_active",
		metric.WithDescription("Number of live optimization sessions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active sessions metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumecvpro_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// RecordAnalysis records one oracle round trip.
func (m *Metrics) RecordAnalysis(ctx context.Context, model string, duration time.Duration, usage *types.TokenUsage, err error) {
	if m == nil || m.AIRequestCount == nil || !m.settings.AIOperations.Enabled {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
		attribute.Bool("success", err == nil),
	}
	if appErr, ok := errors.As(err); ok {
		attrs = append(attrs, attribute.String("error_code", appErr.Code))
	}
	opt := metric.WithAttributes(attrs...)

	m.AIRequestCount.Add(ctx, 1, opt)
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, opt)
	}
	if m.settings.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration.Seconds(), opt)
	}
	if usage != nil && m.settings.AIOperations.TrackTokenUsage {
		m.recordTokens(ctx, model, usage)
	}
}

func (m *Metrics) recordTokens(ctx context.Context, model string, usage *types.TokenUsage) {
	for _, tt := range []struct {
		kind  string
		value int32
	}{
		{"prompt", usage.PromptTokens},
		{"completion", usage.CompletionTokens},
		{"total", usage.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, int64(tt.value), metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("token_type", tt.kind),
		))
	}
}

// RecordScore records the ATS score of a completed analysis.
func (m *Metrics) RecordScore(ctx context.Context, score int, hasLinkedIn bool) {
	if !m.businessEnabled() {
		return
	}
	m.AnalysisScore.Record(ctx, int64(score), metric.WithAttributes(attribute.Bool("linkedin", hasLinkedIn)))
}

// RecordDownload counts one exported résumé.
func (m *Metrics) RecordDownload(ctx context.Context, format types.DownloadFormat) {
	if !m.businessEnabled() {
		return
	}
	m.Downloads.Add(ctx, 1, metric.WithAttributes(attribute.String("format", string(format))))
}

// RecordShare counts one generated share message.
func (m *Metrics) RecordShare(ctx context.Context, lang types.LanguageCode) {
	if !m.businessEnabled() {
		return
	}
	m.Shares.Add(ctx, 1, metric.WithAttributes(attribute.String("language", string(lang))))
}

// RecordJobFetch counts one job posting fetch.
func (m *Metrics) RecordJobFetch(ctx context.Context, err error) {
	if !m.businessEnabled() {
		return
	}
	m.JobFetches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

// SessionOpened and SessionClosed track live sessions.
func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil || m.ActiveSessions == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context, reason string) {
	if m == nil || m.ActiveSessions == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRateLimitHit counts a rejected request.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType string) {
	if m == nil || m.RateLimitHits == nil || !m.settings.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}

func (m *Metrics) businessEnabled() bool {
	return m != nil && m.Downloads != nil && m.settings.BusinessMetrics.Enabled
}
