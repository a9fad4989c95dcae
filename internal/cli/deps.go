package cli

import (
	"context"
	"fmt"

	"resumecvpro/internal/ai"
	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/history"
	"resumecvpro/internal/jobfetch"
	"resumecvpro/internal/observability"
	"resumecvpro/internal/prefs"
	"resumecvpro/internal/storage"
)

// stores are the persistent collections shared by commands.
type stores struct {
	kv      storage.Store
	history *history.Store
	prefs   *prefs.Store
}

// openStores opens the configured backend and loads history and preferences.
// Unreadable data is logged and replaced by empty defaults.
func openStores(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*stores, error) {
	kv, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	s := &stores{
		kv:      kv,
		history: history.New(kv, logger),
		prefs:   prefs.New(kv, logger),
	}
	_ = s.history.Load(ctx)
	s.prefs.Load(ctx)
	return s, nil
}

func (s *stores) Close() error {
	return s.kv.Close()
}

// newAnalysisService builds the Gemini-backed analyzer. metrics may be nil.
func newAnalysisService(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *errors.Logger) (*ai.Service, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, err.Error(), nil)
	}
	analyzeCfg := cfg.GetAnalyzeConfig()

	var recorder ai.MetricsRecorder
	if metrics != nil {
		recorder = metrics
	}

	var fetcher ai.PostingFetcher
	if cfg.JobFetch.Enabled {
		f := jobfetch.New(cfg.JobFetch, logger)
		if metrics != nil {
			f = f.WithObserver(metrics.RecordJobFetch)
		}
		fetcher = f
	}

	svc, err := ai.NewService(ctx, &analyzeCfg, fetcher, recorder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}
	return svc, nil
}
