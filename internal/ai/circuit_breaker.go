package ai

import (
	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker guards calls returning T. A nil *Breaker runs calls unguarded.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewAnalysisBreaker guards GenerateContent calls. Returns nil when disabled in config.
func NewAnalysisBreaker(cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.GenerateContentResponse] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}
	cbCfg := cfg.CircuitBreaker
	return newBreaker[*genai.GenerateContentResponse]("AI-Analyze", cbCfg, func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= cbCfg.MinRequests && failureRatio >= cbCfg.FailureThreshold
	}, logger)
}

// NewModelBreaker guards model readiness probes with a more lenient trip rule.
func NewModelBreaker(cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.Model] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}
	return newBreaker[*genai.Model]("AI-Model-Analyze", cfg.CircuitBreaker, func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && failureRatio >= 0.8
	}, logger)
}

func newBreaker[T any](name string, cbCfg config.CircuitBreakerConfig, readyToTrip func(gobreaker.Counts) bool, logger *errors.Logger) *Breaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cbCfg.MaxRequests,
				"failure_threshold", cbCfg.FailureThreshold)
		},
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn under the breaker
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats returns circuit breaker statistics
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports a closed (or absent) breaker
func (b *Breaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
