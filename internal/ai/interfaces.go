package ai

import (
	"context"
	"time"

	"resumecvpro/internal/types"
)

// Analyzer scores a résumé against a job target. Implementations return
// either a normalized result or an AppError of type analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error)
}

// AIProvider is implemented by each oracle backend.
// Token usage is returned alongside the result; callers can ignore it if not needed.
type AIProvider interface {
	AnalyzeResume(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, *types.TokenUsage, error)
	GetModelInfo(ctx context.Context) *types.ModelInfo
	Close() error
}

// PostingFetcher retrieves the readable text of a job posting.
type PostingFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// MetricsRecorder receives one observation per analysis call.
type MetricsRecorder interface {
	RecordAnalysis(ctx context.Context, model string, duration time.Duration, usage *types.TokenUsage, err error)
}
