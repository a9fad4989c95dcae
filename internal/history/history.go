// Package history keeps the most recent analyses in durable storage.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/storage"
	"resumecvpro/internal/types"
)

const (
	// Key is the storage key history is persisted under.
	Key = "resume_cv_pro_history"
	// MaxRecords caps the collection; older entries are evicted first.
	MaxRecords = 50
	// CurrentVersion is written in every saved envelope.
	CurrentVersion = 1
	// FallbackJobTitle labels analyses started from a URL only.
	FallbackJobTitle = "Análise via Link"

	jobTitleRunes = 50
)

// Record is one past analysis.
type Record struct {
	ID              string               `json:"id"`
	Date            string               `json:"date"`
	JobTitle        string               `json:"jobTitle"`
	Score           int                  `json:"score"`
	Analysis        types.AnalysisResult `json:"analysis"`
	OriginalContent string               `json:"originalContent,omitempty"`
}

type envelope struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// NewRecord builds the record for a completed analysis.
func NewRecord(result types.AnalysisResult, req types.AnalysisRequest, lang types.LanguageCode, now time.Time) Record {
	return Record{
		ID:              uuid.NewString(),
		Date:            FormatDate(now, lang),
		JobTitle:        JobTitle(req.JobDescription),
		Score:           result.Score,
		Analysis:        result,
		OriginalContent: req.ResumeText,
	}
}

// FormatDate renders t the way the given locale writes short dates.
func FormatDate(t time.Time, lang types.LanguageCode) string {
	switch lang {
	case types.LangPortuguese:
		return t.Format("02/01/2006")
	case types.LangEnglish:
		return t.Format("1/2/2006")
	default:
		return t.Format("2006-01-02")
	}
}

// JobTitle derives a label from the first runes of the job description.
func JobTitle(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return FallbackJobTitle
	}
	if utf8.RuneCountInString(description) <= jobTitleRunes {
		return description
	}
	return string([]rune(description)[:jobTitleRunes])
}

// Store is the in-memory view of history, written through to a storage.Store.
type Store struct {
	mu      sync.RWMutex
	kv      storage.Store
	records []Record
	logger  *errors.Logger
}

// New creates an empty store. Call Load to read persisted records.
func New(kv storage.Store, logger *errors.Logger) *Store {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Store{kv: kv, logger: logger}
}

// Load replaces the in-memory records with the persisted ones. Whenever an error
// is returned the history is empty; the error is logged and informational.
// The lock is held across the read so a concurrent Record cannot be lost
// between reading the stored bytes and replacing the in-memory records.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, Key)
	s.records = nil

	if stderrors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		appErr := errors.NewStorageError(errors.ErrCodeStorageUnavailable, "history storage unavailable", err)
		s.logger.LogError(appErr, "Failed to load history, starting empty")
		return appErr
	}

	records, err := decode(raw)
	if err != nil {
		appErr := errors.NewStorageError(errors.ErrCodeStorageCorrupt, "history data is corrupt", err)
		s.logger.LogError(appErr, "Discarding unreadable history", "bytes", len(raw))
		return appErr
	}

	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	s.records = records
	s.logger.Debug("History loaded", "records", len(records))
	return nil
}

// Reload re-reads history after an external change.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Save writes the current records as a versioned envelope.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	records := s.records
	if records == nil {
		records = []Record{}
	}
	raw, err := json.Marshal(envelope{Version: CurrentVersion, Records: records})
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to encode history", err)
	}
	if err := s.kv.Set(ctx, Key, raw); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageUnavailable, "failed to persist history", err)
	}
	return nil
}

// Record inserts rec at the front, evicting the oldest entries beyond MaxRecords.
func (s *Store) Record(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = slices.Insert(s.records, 0, rec)
	if len(s.records) > MaxRecords {
		evicted := len(s.records) - MaxRecords
		s.records = s.records[:MaxRecords:MaxRecords]
		s.logger.Debug("History capacity reached, evicted oldest", "evicted", evicted)
	}
	return s.saveLocked(ctx)
}

// List returns the records, most recent first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get looks a record up by id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return Record{}, false
	}
	return s.records[i], true
}

// Remove deletes the record with id. Removing an unknown id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.records = slices.Delete(s.records, i, i+1)
	return s.saveLocked(ctx)
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return s.saveLocked(ctx)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.records, func(r Record) bool { return r.ID == id })
}

// StartWatching reloads history whenever the backing file changes outside this process.
func (s *Store) StartWatching(ctx context.Context, fs *storage.FileStore, debounce time.Duration) (*storage.Watcher, error) {
	w := storage.NewWatcher(fs, []string{Key}, debounce, func(string) {
		if err := s.Reload(ctx); err == nil {
			s.logger.Info("History reloaded after external change", "records", s.Len())
		}
	}, s.logger)
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// decode accepts the versioned envelope and the unversioned legacy array.
func decode(raw []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty history payload")
	}

	var records []Record
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode legacy history: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode history envelope: %w", err)
		}
		if env.Version != CurrentVersion {
			return nil, fmt.Errorf("unsupported history version %d", env.Version)
		}
		records = env.Records
	default:
		return nil, fmt.Errorf("history payload is neither an object nor an array")
	}

	for i, r := range records {
		if err := validate(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

func validate(r Record) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("missing id")
	}
	if r.Score < 0 || r.Score > types.MaxTotalScore {
		return fmt.Errorf("score %d out of range", r.Score)
	}
	if len(r.Analysis.ScoreBreakdown) != types.BreakdownSize {
		return fmt.Errorf("breakdown has %d entries", len(r.Analysis.ScoreBreakdown))
	}
	return nil
}
