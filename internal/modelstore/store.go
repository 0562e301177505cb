// Package modelstore owns the model configuration catalog.
package modelstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/prompthub/internal/apperr"
	"github.com/starford/prompthub/internal/kv"
	"github.com/starford/prompthub/internal/models"
	"github.com/starford/prompthub/internal/storage"
)

const (
	// FileName is the authoritative catalog file relative to the data root.
	FileName = "models.json"
	// MirrorKey is the key-value mirror kept for older clients.
	MirrorKey = "app.models"
)

// Store keeps models most-recent-first. The file copy is authoritative and
// every mutation is mirrored to the key-value store. Persistence failures are
// logged and never returned.
type Store struct {
	fs     storage.Provider
	mirror kv.Store
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	snap atomic.Pointer[[]models.ModelConfig]
}

// New creates an empty store. Call Load before use.
func New(fs storage.Provider, mirror kv.Store, logger *slog.Logger) *Store {
	s := &Store{fs: fs, mirror: mirror, logger: logger, now: time.Now}
	empty := []models.ModelConfig{}
	s.snap.Store(&empty)
	return s
}

// SampleModels returns the models seeded into an empty catalog.
func SampleModels(now time.Time) []models.ModelConfig {
	mk := func(name string, t models.ModelType, v models.ModelVendor) models.ModelConfig {
		return models.ModelConfig{ID: uuid.New(), Name: name, Type: t, Vendor: v, CreatedAt: now, UpdatedAt: now}
	}
	return []models.ModelConfig{
		mk("Claude", models.ModelTypeChat, models.VendorAnthropic),
		mk("Doubao-Seed-Code", models.ModelTypeChat, models.VendorVolcengine),
		mk("Kimi For Coding", models.ModelTypeChat, models.VendorMoonshot),
	}
}

// Load reads the catalog: file first, then the mirror (migrating it into the
// file). An empty result is seeded with SampleModels and persisted.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.loadFile()
	if !ok {
		if list, ok = s.loadMirror(ctx); ok {
			s.logger.Info("modelstore: migrating mirror into file", slog.Int("count", len(list)))
			s.writeFile(list)
		}
	}
	if len(list) == 0 {
		list = SampleModels(s.now())
		s.logger.Info("modelstore: seeded sample models", slog.Int("count", len(list)))
		s.persist(ctx, list)
	}
	s.snap.Store(&list)
}

func (s *Store) loadFile() ([]models.ModelConfig, bool) {
	data, err := s.fs.Read(FileName)
	if err != nil {
		s.logger.Debug("modelstore: no catalog file", slog.String("error", err.Error()))
		return nil, false
	}
	var list []models.ModelConfig
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("modelstore: catalog file unreadable", slog.String("error", err.Error()))
		return nil, false
	}
	return list, true
}

func (s *Store) loadMirror(ctx context.Context) ([]models.ModelConfig, bool) {
	if s.mirror == nil {
		return nil, false
	}
	data, ok, err := s.mirror.Get(ctx, MirrorKey)
	if err != nil {
		s.logger.Warn("modelstore: mirror read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var list []models.ModelConfig
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("modelstore: mirror unreadable", slog.String("error", err.Error()))
		return nil, false
	}
	return list, true
}

// All returns the current snapshot. Callers must not modify it.
func (s *Store) All() []models.ModelConfig {
	return *s.snap.Load()
}

// Get looks up a model by id.
func (s *Store) Get(id uuid.UUID) (models.ModelConfig, bool) {
	for _, m := range s.All() {
		if m.ID == id {
			return m, true
		}
	}
	return models.ModelConfig{}, false
}

// Upsert replaces the model with the same id in place or inserts it at the
// front. A replace keeps CreatedAt and stamps UpdatedAt; an insert keeps both
// as given. It fails with apperr.ErrConflict when another model already uses
// the name.
func (s *Store) Upsert(ctx context.Context, m models.ModelConfig) (models.ModelConfig, error) {
	return s.put(ctx, m, true)
}

// Update is Upsert for an existing model only. An unknown id fails with
// apperr.ErrNotFound.
func (s *Store) Update(ctx context.Context, m models.ModelConfig) (models.ModelConfig, error) {
	return s.put(ctx, m, false)
}

func (s *Store) put(ctx context.Context, m models.ModelConfig, insert bool) (models.ModelConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.All()
	idx := slices.IndexFunc(cur, func(existing models.ModelConfig) bool { return existing.ID == m.ID })
	if idx < 0 && !insert {
		return models.ModelConfig{}, apperr.ErrNotFound
	}
	if nameTaken(cur, m.Name, &m.ID) {
		return models.ModelConfig{}, fmt.Errorf("%w: model name %q is already in use", apperr.ErrConflict, m.Name)
	}

	var next []models.ModelConfig
	if idx < 0 {
		next = make([]models.ModelConfig, 0, len(cur)+1)
		next = append(next, m)
		next = append(next, cur...)
	} else {
		prev := cur[idx]
		m.CreatedAt = prev.CreatedAt
		m.UpdatedAt = s.now()
		if m.UpdatedAt.Before(prev.UpdatedAt) {
			m.UpdatedAt = prev.UpdatedAt
		}
		next = slices.Clone(cur)
		next[idx] = m
	}
	s.snap.Store(&next)
	s.persist(ctx, next)
	return m, nil
}

// Remove deletes the model with id. Absent ids are ignored.
func (s *Store) Remove(ctx context.Context, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.All()
	next := make([]models.ModelConfig, 0, len(cur))
	for _, m := range cur {
		if m.ID != id {
			next = append(next, m)
		}
	}
	if len(next) == len(cur) {
		return false
	}
	s.snap.Store(&next)
	s.persist(ctx, next)
	return true
}

// ExistsByName reports whether another model already uses name, comparing
// trimmed and case-insensitively. excluding lets a record skip itself.
func (s *Store) ExistsByName(name string, excluding *uuid.UUID) bool {
	return nameTaken(s.All(), name, excluding)
}

func nameTaken(list []models.ModelConfig, name string, excluding *uuid.UUID) bool {
	norm := strings.ToLower(strings.TrimSpace(name))
	for _, m := range list {
		if excluding != nil && m.ID == *excluding {
			continue
		}
		if strings.ToLower(strings.TrimSpace(m.Name)) == norm {
			return true
		}
	}
	return false
}

func (s *Store) persist(ctx context.Context, list []models.ModelConfig) {
	s.writeFile(list)
	if s.mirror == nil {
		return
	}
	data, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := s.mirror.Set(ctx, MirrorKey, data); err != nil {
		s.logger.Warn("modelstore: mirror write failed", slog.String("error", err.Error()))
	}
}

func (s *Store) writeFile(list []models.ModelConfig) {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		s.logger.Warn("modelstore: encode failed", slog.String("error", err.Error()))
		return
	}
	if err := s.fs.Write(FileName, data); err != nil {
		s.logger.Warn("modelstore: file write failed", slog.String("error", err.Error()))
	}
}
