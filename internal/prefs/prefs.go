// Package prefs persists user preferences (UI language, appearance and the
// model catalog filter) in the key-value store.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/prompthub/internal/apperr"
	"github.com/starford/prompthub/internal/filter"
	"github.com/starford/prompthub/internal/kv"
	"github.com/starford/prompthub/internal/models"
)

// Keys in the preference store.
const (
	KeyModelFilter = "models.filter"
	KeyLanguage    = "app.language"
	KeyAppearance  = "app.appearance"
)

// Language is the UI language.
type Language string

const (
	LanguageChinese Language = "zh-Hans"
	LanguageEnglish Language = "en"
)

// Appearance is the UI color scheme.
type Appearance string

const (
	AppearanceSystem Appearance = "system"
	AppearanceLight  Appearance = "light"
	AppearanceDark   Appearance = "dark"
)

func (l Language) valid() bool   { return l == LanguageChinese || l == LanguageEnglish }
func (a Appearance) valid() bool { return a == AppearanceSystem || a == AppearanceLight || a == AppearanceDark }

// Settings groups the scalar preferences.
type Settings struct {
	Language   Language   `json:"language"`
	Appearance Appearance `json:"appearance"`
}

// DefaultSettings is what a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{Language: LanguageChinese, Appearance: AppearanceSystem}
}

// Validate checks both fields against their allowed values.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Language, validation.Required, validation.In(LanguageChinese, LanguageEnglish)),
		validation.Field(&s.Appearance, validation.Required, validation.In(AppearanceSystem, AppearanceLight, AppearanceDark)),
	)
}

// Store reads and writes preferences. Read failures and unknown values fall
// back to defaults; write failures are logged.
type Store struct {
	kv     kv.Store
	logger *slog.Logger
}

// New creates a preference store on top of a key-value backend.
func New(store kv.Store, logger *slog.Logger) *Store {
	return &Store{kv: store, logger: logger}
}

// Settings returns the current language and appearance.
func (s *Store) Settings(ctx context.Context) Settings {
	out := DefaultSettings()
	if v, ok := s.get(ctx, KeyLanguage); ok && Language(v).valid() {
		out.Language = Language(v)
	}
	if v, ok := s.get(ctx, KeyAppearance); ok && Appearance(v).valid() {
		out.Appearance = Appearance(v)
	}
	return out
}

// SetSettings validates and stores both preferences.
func (s *Store) SetSettings(ctx context.Context, in Settings) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	s.set(ctx, KeyLanguage, []byte(in.Language))
	s.set(ctx, KeyAppearance, []byte(in.Appearance))
	return nil
}

// ModelFilter returns the persisted filter, or an empty one when nothing
// usable is stored.
func (s *Store) ModelFilter(ctx context.Context) models.ModelFilter {
	raw, ok := s.get(ctx, KeyModelFilter)
	if !ok {
		return models.NewModelFilter()
	}
	var f models.ModelFilter
	if err := json.Unmarshal(raw, &f); err != nil {
		s.logger.Warn("prefs: decode model filter", slog.String("error", err.Error()))
		return models.NewModelFilter()
	}
	return f
}

// SetModelFilter collapses f against the available vendor options, stores
// it and returns the value actually stored.
func (s *Store) SetModelFilter(ctx context.Context, f models.ModelFilter, opts filter.VendorOptions) models.ModelFilter {
	f = filter.Collapse(f, opts)
	data, err := json.Marshal(f)
	if err != nil {
		s.logger.Warn("prefs: encode model filter", slog.String("error", err.Error()))
		return f
	}
	s.set(ctx, KeyModelFilter, data)
	return f
}

func (s *Store) get(ctx context.Context, key string) ([]byte, bool) {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("prefs: read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return v, ok
}

func (s *Store) set(ctx context.Context, key string, value []byte) {
	if err := s.kv.Set(ctx, key, value); err != nil {
		s.logger.Warn("prefs: write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
