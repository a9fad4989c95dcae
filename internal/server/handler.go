package server

import (
	"fmt"
	"net/http"
	"strconv"

	"resumecvpro/internal/common"
	"resumecvpro/internal/diff"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/flow"
	"resumecvpro/internal/formatters"
	"resumecvpro/internal/prefs"
	"resumecvpro/internal/types"
	"resumecvpro/internal/viewmodel"

	"go.opentelemetry.io/otel/attribute"
)

type sessionHandlerFunc func(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller)

// withSession resolves the {id} path value to a live session
func (s *Server) withSession(h sessionHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		c, ok := s.Sessions.Get(id)
		if !ok {
			s.writeError(w, r, errors.NewValidationError(errors.ErrCodeNotFound, "session not found", nil).
				WithContext("session_id", id))
			return
		}
		h(w, r, id, c)
	}
}

func (s *Server) writeSession(w http.ResponseWriter, status int, id string, c *flow.Controller) {
	s.writeJSON(w, status, SessionResponse{ID: id, Snapshot: c.Snapshot()})
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := parseJSONRequest(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	lang := types.DefaultLanguage
	if s.Prefs != nil {
		lang = s.Prefs.Get().Language
	}
	if req.Language != "" {
		parsed, err := types.ParseLanguageCode(req.Language)
		if err != nil {
			s.writeError(w, r, errors.NewValidationError(errors.ErrCodeValidationFailed, err.Error(), err))
			return
		}
		lang = parsed
	}

	id, c, err := s.Sessions.Create(lang)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusCreated, id, c)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	s.writeSession(w, http.StatusOK, id, c)
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.Sessions.Delete(id) {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeNotFound, "session not found", nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setResumeHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	var req ResumeRequest
	if err := parseJSONRequest(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	c.SetResumeText(req.Text)
	s.writeSession(w, http.StatusOK, id, c)
}

func (s *Server) confirmResumeHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	if err := c.ConfirmResume(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusOK, id, c)
}

func (s *Server) backHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	if err := c.Back(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusOK, id, c)
}

// setJobHandler updates only the fields present in the body
func (s *Server) setJobHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	var req JobRequest
	if err := parseJSONRequest(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.Language != nil {
		lang, err := types.ParseLanguageCode(*req.Language)
		if err != nil {
			s.writeError(w, r, errors.NewValidationError(errors.ErrCodeValidationFailed, err.Error(), err))
			return
		}
		if err := c.SetTargetLanguage(lang); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Description != nil {
		c.SetJobDescription(*req.Description)
	}
	if req.URL != nil {
		c.SetJobURL(*req.URL)
	}
	s.writeSession(w, http.StatusOK, id, c)
}

// analyzeHandler runs the analysis synchronously and returns the resulting snapshot
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	ctx, span := s.Observability.Tracer("resumecvpro.api").Start(r.Context(), "api.analyze")
	defer span.End()

	snap := c.Snapshot()
	span.SetAttributes(
		attribute.String("session.id", id),
		attribute.Int("request.resume_length", len(snap.ResumeText)),
		attribute.Int("request.job_length", len(snap.Job.Description)),
		attribute.Bool("request.has_job_url", snap.Job.URL != ""),
	)

	result, err := c.Analyze(ctx)
	if err != nil {
		span.RecordError(err)
		if appErr, ok := errors.As(err); ok {
			span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
		}
		s.writeError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.Int("result.score", result.Score),
		attribute.Bool("result.has_linkedin", result.LinkedInOptimization != nil),
	)
	s.metrics().RecordScore(ctx, result.Score, result.LinkedInOptimization != nil)

	s.writeSession(w, http.StatusOK, id, c)
}

// viewHandler projects the result. Without ?sub the session's current sub-view is used.
// ?format=text|markdown renders through the formatter registry.
func (s *Server) viewHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	snap := c.Snapshot()
	sv := snap.SubView
	if q := r.URL.Query().Get("sub"); q != "" {
		parsed, err := viewmodel.ParseSubView(q)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		sv = parsed
	}

	view, err := c.View(sv)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		var available []viewmodel.SubView
		if snap.Result != nil {
			available = viewmodel.Model{Result: *snap.Result, Original: snap.Original}.AvailableSubViews()
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"kind":      view.Kind(),
			"available": available,
			"view":      view,
		})
		return
	}

	if err := common.ValidateOutputFormat(format, formatters.GlobalRegistry.GetSupportedFormats()); err != nil {
		s.writeError(w, r, err)
		return
	}
	rendered, err := formatters.GlobalRegistry.Format(view, format)
	if err != nil {
		s.writeError(w, r, errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to render view", err))
		return
	}
	contentType := "text/plain; charset=utf-8"
	if format == "markdown" {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(rendered))
}

func (s *Server) selectSubViewHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	var req SubViewRequest
	if err := parseJSONRequest(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	sv, err := viewmodel.ParseSubView(req.SubView)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !c.SelectSubView(sv) {
		s.writeError(w, r, errors.NewStateError(errors.ErrCodeSubViewUnavailable,
			fmt.Sprintf("sub-view %q is not available", sv), nil))
		return
	}
	s.writeSession(w, http.StatusOK, id, c)
}

func (s *Server) startNewHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	if err := c.StartNew(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusOK, id, c)
}

func (s *Server) selectHistoryHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	if err := c.SelectHistory(r.PathValue("recordID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusOK, id, c)
}

func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	format, err := common.ParseDownloadFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if format == "" {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidFormat, "format query parameter is required (pdf or docx)", nil))
		return
	}

	artifact, err := c.Download(format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics().RecordDownload(r.Context(), format)

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Body)
}

func (s *Server) shareHandler(w http.ResponseWriter, r *http.Request, id string, c *flow.Controller) {
	url := r.URL.Query().Get("url")
	if url == "" {
		url = s.AppConfig.App.ShareURL
	}
	message, err := c.Share(url)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics().RecordShare(r.Context(), c.Language())
	s.writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (s *Server) historyUnavailable(w http.ResponseWriter, r *http.Request) bool {
	if s.History != nil {
		return false
	}
	s.writeError(w, r, errors.NewStorageError(errors.ErrCodeStorageUnavailable, "history is not configured", nil))
	return true
}

func (s *Server) listHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w, r) {
		return
	}
	records := s.History.List()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w, r) {
		return
	}
	id := r.PathValue("id")
	rec, ok := s.History.Get(id)
	if !ok {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeNotFound, "history record not found", nil).
			WithContext("id", id))
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w, r) {
		return
	}
	if err := s.History.Remove(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w, r) {
		return
	}
	if err := s.History.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPrefsHandler(w http.ResponseWriter, r *http.Request) {
	if s.Prefs == nil {
		s.writeJSON(w, http.StatusOK, prefs.Defaults())
		return
	}
	s.writeJSON(w, http.StatusOK, s.Prefs.Get())
}

func (s *Server) setPrefsHandler(w http.ResponseWriter, r *http.Request) {
	if s.Prefs == nil {
		s.writeError(w, r, errors.NewStorageError(errors.ErrCodeStorageUnavailable, "preferences are not configured", nil))
		return
	}
	var req PrefsRequest
	if err := parseJSONRequest(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Theme != nil {
		if err := s.Prefs.Set(r.Context(), prefs.KeyTheme, *req.Theme); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Language != nil {
		if err := s.Prefs.Set(r.Context(), prefs.KeyLanguage, *req.Language); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, s.Prefs.Get())
}

func (s *Server) diffHandler(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if err := parseJSONRequest(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	filter, err := diff.ParseFilter(req.Only)
	if err != nil {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), err))
		return
	}

	spans := diff.Words(req.Old, req.New)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"spans":   spans.Apply(filter),
		"changed": spans.Changed(),
		"added":   spans.Count(diff.Added),
		"removed": spans.Count(diff.Removed),
	})
}
