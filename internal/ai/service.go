package ai

import (
	"context"
	"fmt"
	"time"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"
)

// Service adapts an AIProvider to Analyzer, normalizing errors and
// recording one metric observation per call.
type Service struct {
	Provider AIProvider
	config   *config.OperationAIConfig
	metrics  MetricsRecorder
	logger   *errors.Logger
}

var _ Analyzer = (*Service)(nil)

// NewService creates the analysis service for the configured provider. fetcher and metrics may be nil.
func NewService(ctx context.Context, cfg *config.OperationAIConfig, fetcher PostingFetcher, metrics MetricsRecorder, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"link_model", cfg.LinkModel,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts,
		"job_fetch", fetcher != nil)

	var provider AIProvider
	switch cfg.Provider {
	case "gemini":
		p, err := NewGeminiProvider(ctx, cfg, fetcher, logger)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	return NewServiceWithProvider(provider, cfg, metrics, logger), nil
}

// NewServiceWithProvider wraps an existing provider
func NewServiceWithProvider(provider AIProvider, cfg *config.OperationAIConfig, metrics MetricsRecorder, logger *errors.Logger) *Service {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Service{
		Provider: provider,
		config:   cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Analyze implements Analyzer. Every failure is reported as an analysis error.
func (s *Service) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	start := time.Now()
	result, usage, err := s.Provider.AnalyzeResume(ctx, req)

	if err != nil && !errors.IsType(err, errors.ErrorTypeAnalysis) {
		err = NewAnalysisFailure(err)
	}
	if s.metrics != nil {
		s.metrics.RecordAnalysis(ctx, s.modelFor(req), time.Since(start), usage, err)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Analysis completed",
		"score", result.Score,
		"has_linkedin", result.LinkedInOptimization != nil,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// modelSelector and breakerReporter are optional provider capabilities.
type (
	modelSelector interface {
		SelectModel(types.AnalysisRequest) string
	}
	breakerReporter interface{ CircuitBreakerStats() map[string]any }
)

func (s *Service) modelFor(req types.AnalysisRequest) string {
	if sel, ok := s.Provider.(modelSelector); ok {
		return sel.SelectModel(req)
	}
	if s.config != nil {
		return s.config.Model
	}
	return ""
}

func (s *Service) GetModelInfo(ctx context.Context) *types.ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// CircuitBreakerStats reports breaker state when the provider has one
func (s *Service) CircuitBreakerStats() map[string]any {
	if r, ok := s.Provider.(breakerReporter); ok {
		return r.CircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

func (s *Service) Close() error {
	return s.Provider.Close()
}
