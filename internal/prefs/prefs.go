// Package prefs persists the user's theme and language choices.
package prefs

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/storage"
	"resumecvpro/internal/types"
)

// Storage keys, one per preference.
const (
	KeyTheme    = "theme"
	KeyLanguage = "lang"
)

// Keys lists every preference key.
var Keys = []string{KeyTheme, KeyLanguage}

// Settings is the full set of preferences.
type Settings struct {
	Theme    types.Theme        `json:"theme"`
	Language types.LanguageCode `json:"lang"`
}

// Defaults returns the settings used before anything was saved.
func Defaults() Settings {
	return Settings{Theme: types.ThemeLight, Language: types.DefaultLanguage}
}

// Store caches preferences and writes each change through.
type Store struct {
	mu      sync.RWMutex
	kv      storage.Store
	current Settings
	logger  *errors.Logger
}

// New creates a store holding the defaults. Call Load to read saved values.
func New(kv storage.Store, logger *errors.Logger) *Store {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Store{kv: kv, current: Defaults(), logger: logger}
}

// Load reads both keys. Missing or unreadable values fall back to defaults.
func (s *Store) Load(ctx context.Context) Settings {
	loaded := Defaults()

	if raw, ok := s.read(ctx, KeyTheme); ok {
		if theme := types.Theme(raw); theme.Valid() {
			loaded.Theme = theme
		} else {
			s.logCorrupt(KeyTheme, raw)
		}
	}
	if raw, ok := s.read(ctx, KeyLanguage); ok {
		if lang, err := types.ParseLanguageCode(raw); err == nil && lang.Valid() {
			loaded.Language = lang
		} else {
			s.logCorrupt(KeyLanguage, raw)
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return loaded
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	raw, err := s.kv.Get(ctx, key)
	if stderrors.Is(err, storage.ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.logger.LogError(errors.NewStorageError(errors.ErrCodeStorageUnavailable, "preference storage unavailable", err),
			"Using default preference", "key", key)
		return "", false
	}
	return strings.TrimSpace(string(raw)), true
}

func (s *Store) logCorrupt(key, raw string) {
	s.logger.LogError(errors.NewStorageError(errors.ErrCodeStorageCorrupt, "unrecognized preference value", nil),
		"Using default preference", "key", key, "value", raw)
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetTheme validates and persists theme.
func (s *Store) SetTheme(ctx context.Context, theme types.Theme) error {
	if !theme.Valid() {
		return errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("unknown theme %q (want light or dark)", theme), nil)
	}
	if err := s.write(ctx, KeyTheme, string(theme)); err != nil {
		return err
	}
	s.mu.Lock()
	s.current.Theme = theme
	s.mu.Unlock()
	return nil
}

// SetLanguage validates and persists lang.
func (s *Store) SetLanguage(ctx context.Context, lang types.LanguageCode) error {
	if !lang.Valid() {
		return errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("unsupported language %q", lang), nil)
	}
	if err := s.write(ctx, KeyLanguage, string(lang)); err != nil {
		return err
	}
	s.mu.Lock()
	s.current.Language = lang
	s.mu.Unlock()
	return nil
}

// Set updates one preference by key, parsing value as the CLI receives it.
func (s *Store) Set(ctx context.Context, key, value string) error {
	switch key {
	case KeyTheme:
		return s.SetTheme(ctx, types.Theme(strings.ToLower(strings.TrimSpace(value))))
	case KeyLanguage:
		lang, err := types.ParseLanguageCode(value)
		if err != nil {
			return errors.NewValidationError(errors.ErrCodeValidationFailed, err.Error(), err)
		}
		return s.SetLanguage(ctx, lang)
	default:
		return unknownKey(key)
	}
}

// Value returns one preference by key.
func (s *Store) Value(key string) (string, error) {
	current := s.Get()
	switch key {
	case KeyTheme:
		return string(current.Theme), nil
	case KeyLanguage:
		return string(current.Language), nil
	default:
		return "", unknownKey(key)
	}
}

func (s *Store) write(ctx context.Context, key, value string) error {
	if err := s.kv.Set(ctx, key, []byte(value)); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageUnavailable, "failed to save preference", err).WithContext("key", key)
	}
	return nil
}

func unknownKey(key string) error {
	return errors.NewValidationError(errors.ErrCodeInvalidRequest,
		fmt.Sprintf("unknown preference %q (want %s)", key, strings.Join(Keys, " or ")), nil)
}
