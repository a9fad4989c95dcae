package server

import (
	"context"
	"io"
	"os"
	"slices"
	"time"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/flow"
	"resumecvpro/internal/history"
	"resumecvpro/internal/observability"
	"resumecvpro/internal/prefs"
	"resumecvpro/internal/types"
)

// ResumeRequest and the types below are request bodies.
type ResumeRequest struct {
	Text string `json:"text"`
}

type JobRequest struct {
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
	Language    *string `json:"language,omitempty"`
}

type CreateSessionRequest struct {
	Language string `json:"language,omitempty"`
}

type SubViewRequest struct {
	SubView string `json:"sub"`
}

type PrefsRequest struct {
	Theme    *string `json:"theme,omitempty"`
	Language *string `json:"lang,omitempty"`
}

type DiffRequest struct {
	Old  string `json:"old"`
	New  string `json:"new"`
	Only string `json:"only,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SessionResponse is returned by every session mutation.
type SessionResponse struct {
	ID       string        `json:"id"`
	Snapshot flow.Snapshot `json:"snapshot"`
}

// AnalysisService is the analyzer plus the probes used by /health and /stats.
type AnalysisService interface {
	flow.Analyzer
	GetModelInfo(ctx context.Context) *types.ModelInfo
	CircuitBreakerStats() map[string]any
}

// Server exposes optimizer sessions, history, preferences and diffs over
// HTTP. Listener settings are copied out of AppConfig by NewServer.
type Server struct {
	Host           string
	Port           string
	Version        string
	AppConfig      *config.Config
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Analyzer      AnalysisService
	History       *history.Store
	Prefs         *prefs.Store
	Sessions      *SessionManager
	Observability *observability.ObservabilityManager
	Logger        *errors.Logger

	out io.Writer // startup banner
}

// Dependencies are the shared stores and services every session uses.
type Dependencies struct {
	Analyzer      AnalysisService
	History       *history.Store
	Prefs         *prefs.Store
	Observability *observability.ObservabilityManager
}

// NewServer wires a Server from appCfg. Sessions are created lazily by requests.
func NewServer(appCfg *config.Config, version string, deps Dependencies, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	srvCfg := appCfg.Server

	apiKeys := slices.DeleteFunc(slices.Clone(srvCfg.APIKeys), func(k string) bool { return k == "" })
	slices.Sort(apiKeys)
	apiKeys = slices.Compact(apiKeys)

	var rateLimiter *RateLimiter
	if srvCfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			srvCfg.RateLimit.RequestsPerMin,
			srvCfg.RateLimit.BurstCapacity,
			srvCfg.RateLimit.Window,
			logger,
		)
	}

	s := &Server{
		Host:           srvCfg.Host,
		Port:           srvCfg.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      srvCfg.TLS,
		APIKeys:        apiKeys,
		ReadTimeout:    srvCfg.ReadTimeout,
		WriteTimeout:   srvCfg.WriteTimeout,
		IdleTimeout:    srvCfg.IdleTimeout,
		MaxRequestSize: srvCfg.MaxRequestSize,
		RateLimit:      &srvCfg.RateLimit,
		RateLimiter:    rateLimiter,
		Analyzer:       deps.Analyzer,
		History:        deps.History,
		Prefs:          deps.Prefs,
		Observability:  deps.Observability,
		Logger:         logger,
		out:            os.Stdout,
	}

	s.Sessions = NewSessionManager(s.newController,
		srvCfg.SessionTTL,
		srvCfg.SessionCleanupInterval,
		srvCfg.MaxSessions,
		s.metrics(),
		logger)
	return s
}

func (s *Server) newController(lang types.LanguageCode) *flow.Controller {
	var hist flow.History
	if s.History != nil {
		hist = s.History
	}
	return flow.New(s.Analyzer, hist,
		flow.WithLogger(s.Logger),
		flow.WithInterval(s.AppConfig.App.MotivationalInterval),
		flow.WithLanguage(lang))
}

func (s *Server) metrics() *observability.Metrics {
	return s.Observability.GetMetrics()
}

// Close stops the session sweeper and the rate limiter.
func (s *Server) Close() {
	s.Sessions.Close()
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
