package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"
)

// getHealthCheckTimeout returns the configured model probe timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	hc := s.AppConfig.Observability.HealthCheck
	if hc.AIModelCheckTimeout > 0 {
		return hc.AIModelCheckTimeout
	}
	if hc.Timeout > 0 {
		return hc.Timeout
	}
	return 5 * time.Second
}

// healthHandler reports model availability, breaker state and storage.
// A model that fails its readiness probe makes the service degraded.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumecvpro",
		"version": s.Version,
	}

	modelInfo := s.checkAIModelHealth(r.Context())
	response["ai_models"] = map[string]any{"analyze": modelInfo}
	response["circuit_breakers"] = s.checkCircuitBreakerHealth()
	response["storage"] = s.checkStorageHealth()

	status := http.StatusOK
	if !modelInfo.Available {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, response)
}

// checkAIModelHealth probes the analysis model
func (s *Server) checkAIModelHealth(ctx context.Context) *types.ModelInfo {
	if s.Analyzer == nil {
		return &types.ModelInfo{Available: false, Error: "analysis service not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.getHealthCheckTimeout())
	defer cancel()

	info := s.Analyzer.GetModelInfo(ctx)
	if info == nil {
		return &types.ModelInfo{Available: false, Error: "model info unavailable"}
	}
	return info
}

// checkCircuitBreakerHealth reports the analysis circuit breakers
func (s *Server) checkCircuitBreakerHealth() map[string]any {
	if s.Analyzer == nil {
		return map[string]any{"enabled": false}
	}
	return s.Analyzer.CircuitBreakerStats()
}

func (s *Server) checkStorageHealth() map[string]any {
	status := map[string]any{
		"driver": s.AppConfig.Storage.Driver,
	}
	if s.History != nil {
		status["history_records"] = s.History.Len()
	}
	if s.Prefs != nil {
		settings := s.Prefs.Get()
		status["prefs"] = map[string]any{"theme": settings.Theme, "lang": settings.Language}
	}
	return status
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumecvpro",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"sessions":         s.Sessions.GetStats(),
		"circuit_breakers": s.checkCircuitBreakerHealth(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct.
// An empty body leaves v untouched when optional is true.
func parseJSONRequest(r *http.Request, v any, optional bool) error {
	if r.ContentLength == 0 && optional {
		return nil
	}
	if r.Header.Get("Content-Type") != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewIOError(errors.ErrCodeInvalidRequest, "failed to read request body", err)
	}
	defer func() { _ = r.Body.Close() }()

	if len(body) == 0 && optional {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON: "+err.Error(), err)
	}

	return nil
}

// statusFor maps an error to the HTTP status it is reported with
func statusFor(err error) int {
	appErr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if appErr.Code == errors.ErrCodeNotFound {
		return http.StatusNotFound
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeState:
		if appErr.Code == errors.ErrCodeTooManySessions {
			return http.StatusServiceUnavailable
		}
		return http.StatusConflict
	case errors.ErrorTypeAnalysis, errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	case errors.ErrorTypeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err in the error envelope, logging server-side failures
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	}

	appErr, ok := errors.As(err)
	if !ok {
		writeErrorResponse(w, "INTERNAL_ERROR", "internal server error", status)
		return
	}
	writeErrorResponse(w, appErr.Code, appErr.Message, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.LogError(err, "Failed to encode response")
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
