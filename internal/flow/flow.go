// Package flow drives one optimization session from upload to result.
package flow

import (
	"context"
	"strings"
	"sync"
	"time"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/history"
	"resumecvpro/internal/types"
	"resumecvpro/internal/viewmodel"
)

// Step is the coarse position of a session.
type Step string

const (
	StepUpload    Step = "upload"
	StepJobInfo   Step = "job-info"
	StepAnalyzing Step = "analyzing"
	StepResult    Step = "result"
)

// RequestState is the state of the single analysis slot.
type RequestState string

const (
	RequestIdle      RequestState = "idle"
	RequestPending   RequestState = "pending"
	RequestSucceeded RequestState = "succeeded"
	RequestFailed    RequestState = "failed"
)

// DefaultInterval is how often the motivational message advances.
const DefaultInterval = 3 * time.Second

// JobRequiredMessage is shown when neither a job description nor a link was given.
const JobRequiredMessage = "Por favor, preencha a descrição da vaga ou insira o link."

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error)
}

// History persists completed analyses.
type History interface {
	Record(ctx context.Context, rec history.Record) error
	Get(id string) (history.Record, bool)
}

// Request is the single in-flight analysis slot.
type Request struct {
	State     RequestState `json:"state"`
	StartedAt time.Time    `json:"startedAt,omitzero"`
	Err       error        `json:"-"`
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Step           Step                  `json:"step"`
	ResumeText     string                `json:"resumeText"`
	Job            types.JobTarget       `json:"job"`
	TargetLanguage types.LanguageCode    `json:"targetLanguage,omitempty"`
	SubView        viewmodel.SubView     `json:"subView"`
	Result         *types.AnalysisResult `json:"result,omitempty"`
	Original       string                `json:"original,omitempty"`
	Request        RequestState          `json:"request"`
	Error          string                `json:"error,omitempty"`
	ErrorCode      string                `json:"errorCode,omitempty"`
	Message        string                `json:"message,omitempty"`
	HistoryID      string                `json:"historyId,omitempty"`
	DownloadCount  int                   `json:"downloadCount"`
	IsPaid         bool                  `json:"isPaid"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source used for history dates.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithInterval sets the motivational message period.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *errors.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTickFunc registers a callback run each time the motivational message advances.
func WithTickFunc(fn func(index int, message string)) Option {
	return func(c *Controller) { c.onTick = fn }
}

// WithLanguage sets the interface language used for messages and history dates.
func WithLanguage(lang types.LanguageCode) Option {
	return func(c *Controller) {
		if lang.Valid() {
			c.lang = lang
		}
	}
}

// Controller is the session state machine. It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	analyzer Analyzer
	history  History
	logger   *errors.Logger
	now      func() time.Time
	interval time.Duration
	onTick   func(int, string)
	lang     types.LanguageCode
	messages []string

	step       Step
	resume     types.ResumeDocument
	job        types.JobTarget
	targetLang types.LanguageCode
	subView    viewmodel.SubView
	result     *types.AnalysisResult
	original   string
	historyID  string
	request    Request
	msgIndex   int
	downloads  int
	paid       bool

	base   context.Context
	cancel context.CancelFunc
}

// New creates a controller at the upload step. history may be nil.
func New(analyzer Analyzer, hist History, opts ...Option) *Controller {
	c := &Controller{
		analyzer: analyzer,
		history:  hist,
		logger:   errors.NewNopLogger(),
		now:      time.Now,
		interval: DefaultInterval,
		lang:     types.DefaultLanguage,
		step:     StepUpload,
		subView:  viewmodel.SubViewSummary,
		request:  Request{State: RequestIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.messages = viewmodel.MotivationalMessages(c.lang)
	c.base, c.cancel = context.WithCancel(context.Background())
	return c
}

// SetResumeText replaces the résumé draft.
func (c *Controller) SetResumeText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resume = types.ResumeDocument{Content: text}
}

// ConfirmResume moves from upload to job-info.
func (c *Controller) ConfirmResume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepUpload {
		return c.transitionError("confirm résumé")
	}
	if strings.TrimSpace(c.resume.Content) == "" {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "résumé text is required", nil)
	}
	c.step = StepJobInfo
	return nil
}

// Back returns from job-info to upload, keeping the résumé text.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepJobInfo {
		return c.transitionError("go back")
	}
	c.step = StepUpload
	return nil
}

// SetJobDescription replaces the job description draft.
func (c *Controller) SetJobDescription(desc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.job.Description = desc
}

// SetJobURL replaces the job link draft.
func (c *Controller) SetJobURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.job.URL = url
}

// SetTargetLanguage picks the language of the generated content. Empty keeps the original.
func (c *Controller) SetTargetLanguage(lang types.LanguageCode) error {
	if lang != "" && !lang.Valid() {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "unsupported target language", nil).
			WithContext("language", string(lang))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetLang = lang
	return nil
}

// Analyze submits the current résumé and job target and blocks until the
// analysis settles. On failure the session returns to job-info with its inputs intact.
func (c *Controller) Analyze(ctx context.Context) (*types.AnalysisResult, error) {
	c.mu.Lock()
	if c.step != StepJobInfo {
		err := c.transitionError("analyze")
		c.mu.Unlock()
		return nil, err
	}
	if c.request.State == RequestPending {
		c.mu.Unlock()
		return nil, errors.NewStateError(errors.ErrCodeInvalidTransition, "an analysis is already running", nil)
	}
	if c.job.Empty() {
		c.mu.Unlock()
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, JobRequiredMessage, nil)
	}

	req := types.AnalysisRequest{
		ResumeText:     c.resume.Content,
		JobDescription: strings.TrimSpace(c.job.Description),
		JobURL:         strings.TrimSpace(c.job.URL),
		TargetLanguage: c.targetLang,
	}
	c.step = StepAnalyzing
	c.request = Request{State: RequestPending, StartedAt: c.now()}
	c.msgIndex = 0
	stop := c.startTicker()
	c.mu.Unlock()

	c.logger.Info("Analysis started",
		"has_job_description", req.JobDescription != "",
		"has_job_url", req.JobURL != "",
		"target_language", string(req.TargetLanguage))

	result, err := c.analyzer.Analyze(ctx, req)
	stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.step = StepJobInfo
		c.request = Request{State: RequestFailed, StartedAt: c.request.StartedAt, Err: err}
		c.logger.LogError(err, "Analysis failed")
		return nil, err
	}

	c.result = result
	c.original = req.ResumeText
	c.subView = viewmodel.SubViewSummary
	c.step = StepResult
	c.request = Request{State: RequestSucceeded, StartedAt: c.request.StartedAt}
	c.historyID = ""

	if c.history != nil {
		rec := history.NewRecord(*result, req, c.lang, c.now())
		if herr := c.history.Record(ctx, rec); herr != nil {
			c.logger.LogError(herr, "Failed to persist history record", "record_id", rec.ID)
		}
		c.historyID = rec.ID
	}
	return result, nil
}

// SelectSubView switches the result projection. It reports false, leaving the
// state unchanged, outside the result step or when the sub-view is unavailable.
func (c *Controller) SelectSubView(sv viewmodel.SubView) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepResult || c.result == nil {
		return false
	}
	if !c.model().Available(sv) {
		return false
	}
	c.subView = sv
	return true
}

// View projects the current result through the given sub-view.
func (c *Controller) View(sv viewmodel.SubView) (viewmodel.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepResult || c.result == nil {
		return nil, c.transitionError("view result")
	}
	return c.model().Project(sv)
}

// StartNew discards the session inputs and result and returns to upload.
func (c *Controller) StartNew() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepAnalyzing {
		return c.transitionError("start new")
	}
	c.step = StepUpload
	c.resume = types.ResumeDocument{}
	c.job = types.JobTarget{}
	c.result = nil
	c.original = ""
	c.historyID = ""
	c.subView = viewmodel.SubViewSummary
	c.request = Request{State: RequestIdle}
	return nil
}

// SelectHistory loads a past analysis into the result step.
func (c *Controller) SelectHistory(id string) error {
	if c.history == nil {
		return errors.NewStateError(errors.ErrCodeNotFound, "history is not available", nil)
	}
	rec, ok := c.history.Get(id)
	if !ok {
		return errors.NewValidationError(errors.ErrCodeNotFound, "history record not found", nil).WithContext("id", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepAnalyzing {
		return c.transitionError("open history record")
	}
	result := rec.Analysis
	c.result = &result
	c.original = rec.OriginalContent
	c.resume = types.ResumeDocument{Content: rec.OriginalContent}
	c.job = types.JobTarget{Description: rec.JobTitle}
	c.targetLang = ""
	c.historyID = rec.ID
	c.subView = viewmodel.SubViewSummary
	c.request = Request{State: RequestIdle}
	c.step = StepResult
	return nil
}

// Share renders the share message for the current result.
func (c *Controller) Share(url string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepResult || c.result == nil {
		return "", c.transitionError("share")
	}
	return viewmodel.ShareMessage(c.lang, c.result.Score, c.job.Description, url), nil
}

// Download exports the current optimized résumé and counts the download.
func (c *Controller) Download(format types.DownloadFormat) (viewmodel.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepResult || c.result == nil {
		return viewmodel.Artifact{}, c.transitionError("download")
	}
	a, err := viewmodel.Download(*c.result, format)
	if err != nil {
		return viewmodel.Artifact{}, err
	}
	c.downloads++
	return a, nil
}

// RecordDownload counts a download made outside the controller.
func (c *Controller) RecordDownload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.downloads++
}

// MotivationalMessage is the message currently shown while analyzing.
func (c *Controller) MotivationalMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[c.msgIndex]
}

// Language is the interface language of the session.
func (c *Controller) Language() types.LanguageCode {
	return c.lang
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Step:           c.step,
		ResumeText:     c.resume.Content,
		Job:            c.job,
		TargetLanguage: c.targetLang,
		SubView:        c.subView,
		Original:       c.original,
		Request:        c.request.State,
		HistoryID:      c.historyID,
		DownloadCount:  c.downloads,
		IsPaid:         c.paid,
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	if c.step == StepAnalyzing {
		s.Message = c.messages[c.msgIndex]
	}
	if err := c.request.Err; err != nil && c.request.State == RequestFailed {
		s.Error = err.Error()
		if appErr, ok := errors.As(err); ok {
			s.Error = appErr.Message
			s.ErrorCode = appErr.Code
		}
	}
	return s
}

// Close stops background work.
func (c *Controller) Close() error {
	c.cancel()
	return nil
}

func (c *Controller) model() viewmodel.Model {
	return viewmodel.Model{Result: *c.result, Original: c.original}
}

func (c *Controller) transitionError(action string) error {
	return errors.NewStateError(errors.ErrCodeInvalidTransition, "cannot "+action+" from step "+string(c.step), nil).
		WithContext("step", string(c.step))
}
