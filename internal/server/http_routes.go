package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"resumecvpro/internal/observability"
)

// route is one API endpoint. Public routes skip auth, rate and size limits.
type route struct {
	pattern string
	summary string
	handler http.HandlerFunc
	public  bool
}

func (s *Server) routes() []route {
	return []route{
		{"GET /health", "Health check", s.healthHandler, true},
		{"GET /stats", "Server statistics", s.statsHandler, true},

		{"POST /sessions", "Open an optimization session", s.createSessionHandler, false},
		{"GET /sessions/{id}", "Session snapshot", s.withSession(s.getSessionHandler), false},
		{"DELETE /sessions/{id}", "Close a session", s.deleteSessionHandler, false},
		{"PUT /sessions/{id}/resume", "Set résumé text", s.withSession(s.setResumeHandler), false},
		{"POST /sessions/{id}/resume/confirm", "Continue to job info", s.withSession(s.confirmResumeHandler), false},
		{"POST /sessions/{id}/back", "Go back to the résumé", s.withSession(s.backHandler), false},
		{"PUT /sessions/{id}/job", "Set job description, link and language", s.withSession(s.setJobHandler), false},
		{"POST /sessions/{id}/analyze", "Run the analysis", s.withSession(s.analyzeHandler), false},
		{"GET /sessions/{id}/view", "Result view (?sub=, ?format=)", s.withSession(s.viewHandler), false},
		{"PUT /sessions/{id}/subview", "Switch result view", s.withSession(s.selectSubViewHandler), false},
		{"POST /sessions/{id}/new", "Start a new analysis", s.withSession(s.startNewHandler), false},
		{"POST /sessions/{id}/history/{recordID}", "Open a past analysis", s.withSession(s.selectHistoryHandler), false},
		{"GET /sessions/{id}/download", "Download optimized résumé (?format=)", s.withSession(s.downloadHandler), false},
		{"GET /sessions/{id}/share", "Share message", s.withSession(s.shareHandler), false},

		{"GET /history", "Past analyses", s.listHistoryHandler, false},
		{"DELETE /history", "Clear history", s.clearHistoryHandler, false},
		{"GET /history/{id}", "One past analysis", s.getHistoryHandler, false},
		{"DELETE /history/{id}", "Delete one past analysis", s.deleteHistoryHandler, false},

		{"GET /prefs", "Theme and language", s.getPrefsHandler, false},
		{"PUT /prefs", "Change theme or language", s.setPrefsHandler, false},

		{"POST /diff", "Word diff of two texts", s.diffHandler, false},
	}
}

// setupRoutes registers every route. Protected routes run
// tracing, rate limit, auth and size limit, in that order.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	// spans run inside the mux so r.Pattern and path values are set
	spans := observability.SessionSpanMiddleware(s.Observability)

	for _, rt := range s.routes() {
		if rt.public {
			mux.HandleFunc(rt.pattern, rt.handler)
			continue
		}
		mux.Handle(rt.pattern, spans(rateLimit(s.authMiddleware(s.limitBody(rt.handler)))))
	}
	if path, h, ok := s.Observability.MetricsEndpoint(); ok {
		mux.Handle("GET "+path, h)
	}
	return mux
}

// Handler returns the routed handler wrapped with tracing middleware
func (s *Server) Handler() http.Handler {
	return s.Observability.HTTPMiddleware()(s.setupRoutes())
}

// authMiddleware requires one of the configured API keys. With no keys
// configured every request passes.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		switch {
		case apiKey == "":
			s.Logger.Info("Rejected request without API key",
				"endpoint", r.URL.Path, "client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
		case !s.validAPIKey(apiKey):
			s.Logger.Info("Rejected request with unknown API key",
				"endpoint", r.URL.Path, "client_ip", getClientIP(r), "api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
		default:
			next(w, r)
		}
	}
}

// validAPIKey compares against every configured key in constant time.
func (s *Server) validAPIKey(candidate string) bool {
	ok := 0
	for _, key := range s.APIKeys {
		ok |= subtle.ConstantTimeCompare([]byte(key), []byte(candidate))
	}
	return ok == 1
}

// requestAPIKey reads X-API-Key, falling back to a Bearer token
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// limitBody caps request bodies at MaxRequestSize.
func (s *Server) limitBody(next http.HandlerFunc) http.HandlerFunc {
	if s.MaxRequestSize <= 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		next(w, r)
	}
}

// maskAPIKey keeps the first 8 characters of a key for logs.
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
