package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resumecvpro/internal/ai"
	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/flow"
	"resumecvpro/internal/history"
	"resumecvpro/internal/prefs"
	"resumecvpro/internal/storage"
	"resumecvpro/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oraclePayload = `{
	"score": 12,
	"scoreBreakdown": [
		{"category": "Keywords", "score": 10, "maxScore": 25, "details": "k"},
		{"category": "Experience", "score": 20, "maxScore": 25, "details": "e"},
		{"category": "Education", "score": 15, "maxScore": 25, "details": "d"},
		{"category": "Formatting", "score": 25, "maxScore": 25, "details": "f"}
	],
	"suggestions": ["Add metrics"],
	"missingKeywords": ["Helm"],
	"strengths": ["Go"],
	"optimizedContent": "Backend engineer shipping Go services on Kubernetes"
}`

type fakeService struct {
	err       error
	available bool
}

func (f *fakeService) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return ai.Normalize([]byte(oraclePayload))
}

func (f *fakeService) GetModelInfo(ctx context.Context) *types.ModelInfo {
	info := &types.ModelInfo{Name: "fake", Provider: "test", Available: f.available}
	if !f.available {
		info.Error = "model offline"
	}
	return info
}

func (f *fakeService) CircuitBreakerStats() map[string]any {
	return map[string]any{"enabled": false}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.MaxRequestSize = 1 << 20
	cfg.App.MotivationalInterval = time.Hour
	cfg.App.ShareURL = "https://example.test"
	cfg.Storage.Driver = "memory"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, svc *fakeService) *Server {
	t.Helper()
	s := NewServer(cfg, "test", Dependencies{
		Analyzer: svc,
		History:  history.New(storage.NewMemoryStore(), nil),
		Prefs:    prefs.New(storage.NewMemoryStore(), nil),
	}, errors.NewNopLogger())
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// openAtJobInfo creates a session and walks it to the job-info step.
func openAtJobInfo(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeSession(t, rec).ID

	rec = do(t, h, http.MethodPut, "/sessions/"+id+"/resume", ResumeRequest{Text: "Go engineer"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/resume/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return id
}

func strPtr(s string) *string { return &s }

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig(), &fakeService{available: true})
	h := s.Handler()

	id := openAtJobInfo(t, h)

	rec := do(t, h, http.MethodPut, "/sessions/"+id+"/job", JobRequest{Description: strPtr("Senior Go Developer"), Language: strPtr("en-us")})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSession(t, rec).Snapshot
	assert.Equal(t, flow.StepJobInfo, snap.Step)
	assert.Equal(t, types.LangEnglish, snap.TargetLanguage)

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap = decodeSession(t, rec).Snapshot
	assert.Equal(t, flow.StepResult, snap.Step)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 70, snap.Result.Score)
	assert.NotEmpty(t, snap.HistoryID)

	t.Run("summary view as json", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/sessions/"+id+"/view", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Kind      string   `json:"kind"`
			Available []string `json:"available"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "summary", body.Kind)
		assert.Equal(t, []string{"summary", "details", "comparison"}, body.Available)
	})

	t.Run("details view as text", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/sessions/"+id+"/view?sub=details&format=text", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, rec.Body.String(), "Helm")
	})

	t.Run("linkedin is unavailable", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/sessions/"+id+"/view?sub=linkedin", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = do(t, h, http.MethodPut, "/sessions/"+id+"/subview", SubViewRequest{SubView: "linkedin"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("select sub-view", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/sessions/"+id+"/subview", SubViewRequest{SubView: "comparison"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "comparison", string(decodeSession(t, rec).Snapshot.SubView))
	})

	t.Run("download", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/sessions/"+id+"/download?format=pdf", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "ResumeCVPro_Otimizado.pdf")
		assert.Equal(t, "Backend engineer shipping Go services on Kubernetes", rec.Body.String())

		rec = do(t, h, http.MethodGet, "/sessions/"+id+"/download?format=txt", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = do(t, h, http.MethodGet, "/sessions/"+id+"/download", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("share uses configured url", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/sessions/"+id+"/share", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["message"], "70")
		assert.Contains(t, body["message"], "Senior Go Developer")
		assert.Contains(t, body["message"], "https://example.test")
	})

	t.Run("history has the analysis", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Count   int              `json:"count"`
			Records []history.Record `json:"records"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 1, body.Count)
		assert.Equal(t, snap.HistoryID, body.Records[0].ID)

		rec = do(t, h, http.MethodGet, "/history/"+snap.HistoryID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, h, http.MethodGet, "/history/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("start new then reopen from history", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/sessions/"+id+"/new", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, flow.StepUpload, decodeSession(t, rec).Snapshot.Step)

		rec = do(t, h, http.MethodPost, "/sessions/"+id+"/history/"+snap.HistoryID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		reopened := decodeSession(t, rec).Snapshot
		assert.Equal(t, flow.StepResult, reopened.Step)
		assert.Equal(t, "summary", string(reopened.SubView))

		rec = do(t, h, http.MethodPost, "/sessions/"+id+"/history/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete session", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, "/sessions/"+id, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(t, h, http.MethodGet, "/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = do(t, h, http.MethodDelete, "/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAnalyzeErrors(t *testing.T) {
	t.Run("wrong step is a conflict", func(t *testing.T) {
		h := newTestServer(t, testConfig(), &fakeService{}).Handler()
		rec := do(t, h, http.MethodPost, "/sessions", nil)
		id := decodeSession(t, rec).ID

		rec = do(t, h, http.MethodPost, "/sessions/"+id+"/analyze", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, errors.ErrCodeInvalidTransition, decodeError(t, rec).Error)
	})

	t.Run("missing job is a bad request", func(t *testing.T) {
		h := newTestServer(t, testConfig(), &fakeService{}).Handler()
		id := openAtJobInfo(t, h)

		rec := do(t, h, http.MethodPost, "/sessions/"+id+"/analyze", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, flow.JobRequiredMessage, decodeError(t, rec).Message)
	})

	t.Run("analysis failure is a bad gateway", func(t *testing.T) {
		svc := &fakeService{err: ai.NewAnalysisFailure(context.DeadlineExceeded)}
		h := newTestServer(t, testConfig(), svc).Handler()
		id := openAtJobInfo(t, h)
		do(t, h, http.MethodPut, "/sessions/"+id+"/job", JobRequest{URL: strPtr("https://jobs.example.com/1")})

		rec := do(t, h, http.MethodPost, "/sessions/"+id+"/analyze", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, errors.ErrCodeAnalysisFailed, decodeError(t, rec).Error)

		rec = do(t, h, http.MethodGet, "/sessions/"+id, nil)
		snap := decodeSession(t, rec).Snapshot
		assert.Equal(t, flow.StepJobInfo, snap.Step)
		assert.Equal(t, "https://jobs.example.com/1", snap.Job.URL)
		assert.Equal(t, errors.ErrCodeAnalysisFailed, snap.ErrorCode)
	})

	t.Run("bad target language", func(t *testing.T) {
		h := newTestServer(t, testConfig(), &fakeService{}).Handler()
		id := openAtJobInfo(t, h)
		rec := do(t, h, http.MethodPut, "/sessions/"+id+"/job", JobRequest{Language: strPtr("klingon")})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestJSONBodyRequired(t *testing.T) {
	h := newTestServer(t, testConfig(), &fakeService{}).Handler()
	rec := do(t, h, http.MethodPost, "/sessions", nil)
	id := decodeSession(t, rec).ID

	req := httptest.NewRequest(http.MethodPut, "/sessions/"+id+"/resume", bytes.NewReader([]byte(`{"text":"x"}`)))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/sessions/"+id+"/resume", bytes.NewReader([]byte(`{"text":`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxRequestSize = 16
	h := newTestServer(t, cfg, &fakeService{}).Handler()

	rec := do(t, h, http.MethodPost, "/diff", DiffRequest{Old: "a much longer text", New: "than sixteen bytes"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "too large")
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"secret-key-123"}
	h := newTestServer(t, cfg, &fakeService{available: true}).Handler()

	rec := do(t, h, http.MethodGet, "/prefs", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"api key header", "X-API-Key", "secret-key-123", http.StatusOK},
		{"bearer token", "Authorization", "Bearer secret-key-123", http.StatusOK},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/prefs", nil)
			req.Header.Set(tt.header, tt.value)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	// health stays public
	rec = do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 2, ByIP: true}
	s := newTestServer(t, cfg, &fakeService{})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/prefs", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/prefs", nil).Code)
	rec := do(t, h, http.MethodGet, "/prefs", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	stats := s.RateLimiter.GetStats()
	assert.Equal(t, 1, stats["tracked_clients"])
}

func TestPrefsEndpoints(t *testing.T) {
	h := newTestServer(t, testConfig(), &fakeService{}).Handler()

	rec := do(t, h, http.MethodGet, "/prefs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got prefs.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, prefs.Defaults(), got)

	rec = do(t, h, http.MethodPut, "/prefs", PrefsRequest{Theme: strPtr("dark"), Language: strPtr("en")})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, types.ThemeDark, got.Theme)
	assert.Equal(t, types.LangEnglish, got.Language)

	rec = do(t, h, http.MethodPut, "/prefs", PrefsRequest{Theme: strPtr("purple")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// new sessions follow the saved language
	rec = do(t, h, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestDiffEndpoint(t *testing.T) {
	h := newTestServer(t, testConfig(), &fakeService{}).Handler()

	rec := do(t, h, http.MethodPost, "/diff", DiffRequest{Old: "Go engineer", New: "Senior Go engineer", Only: "additions"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Spans []struct {
			Kind string `json:"kind"`
			Text string `json:"text"`
		} `json:"spans"`
		Changed bool `json:"changed"`
		Added   int  `json:"added"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Changed)
	assert.Equal(t, 1, body.Added)
	for _, span := range body.Spans {
		assert.NotEqual(t, "removed", span.Kind)
	}

	rec = do(t, h, http.MethodPost, "/diff", DiffRequest{Old: "a", New: "b", Only: "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	s := newTestServer(t, testConfig(), &fakeService{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, s.newHTTPServer(), ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestHealthAndStats(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := newTestServer(t, testConfig(), &fakeService{available: true}).Handler()
		rec := do(t, h, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Contains(t, body, "circuit_breakers")
	})

	t.Run("degraded when the model is unavailable", func(t *testing.T) {
		h := newTestServer(t, testConfig(), &fakeService{available: false}).Handler()
		rec := do(t, h, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body["status"])
	})

	t.Run("stats include sessions", func(t *testing.T) {
		h := newTestServer(t, testConfig(), &fakeService{}).Handler()
		do(t, h, http.MethodPost, "/sessions", nil)
		rec := do(t, h, http.MethodGet, "/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Sessions struct {
				Active int `json:"active_sessions"`
			} `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Sessions.Active)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errors.NewValidationError(errors.ErrCodeValidationFailed, "x", nil), http.StatusBadRequest},
		{"not found", errors.NewValidationError(errors.ErrCodeNotFound, "x", nil), http.StatusNotFound},
		{"state", errors.NewStateError(errors.ErrCodeInvalidTransition, "x", nil), http.StatusConflict},
		{"session limit", errors.NewStateError(errors.ErrCodeTooManySessions, "x", nil), http.StatusServiceUnavailable},
		{"analysis", ai.NewAnalysisFailure(nil), http.StatusBadGateway},
		{"storage", errors.NewStorageError(errors.ErrCodeStorageUnavailable, "x", nil), http.StatusServiceUnavailable},
		{"plain", context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	l := NewRateLimiter(60, 1, time.Minute, nil)
	defer l.Close()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("ip:a"))
	assert.False(t, l.Allow("ip:a"))
	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("ip:b"))

	now = now.Add(45 * time.Second)
	l.evictIdle()
	assert.Equal(t, 1, l.GetStats()["tracked_clients"])
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:999"
	req.Header.Set("X-API-Key", "secret-key")

	byKey := clientKey(req, true, true)
	assert.True(t, strings.HasPrefix(byKey, "api:"))
	assert.NotContains(t, byKey, "secret-key")
	assert.Equal(t, "ip:10.1.1.1", clientKey(req, false, true))
	assert.Empty(t, clientKey(req, false, false))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "bogus, 10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:5", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestDisplayServerInfo(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"test-key-123456"}
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 30, BurstCapacity: 5, ByIP: true}
	s := newTestServer(t, cfg, &fakeService{})
	var out bytes.Buffer
	s.out = &out

	s.displayServerInfo()

	text := out.String()
	assert.Contains(t, text, "POST /sessions/{id}/analyze")
	assert.Contains(t, text, "API keys: 1 configured")
	assert.Contains(t, text, "Rate limit: 30 requests/min, burst 5, per IP")
	assert.Equal(t, len(s.routes())+2, strings.Count(text, "\n")-len(s.protectionSummary()))
}
