// Package promptstore owns the prompt template catalog and its tag registry.
package promptstore

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/prompthub/internal/models"
	"github.com/starford/prompthub/internal/storage"
	"github.com/starford/prompthub/internal/tags"
)

const (
	// PromptsFile holds the prompt catalog relative to the data root.
	PromptsFile = "prompts.json"
	// TagsFile holds the tag registry relative to the data root.
	TagsFile = "tags.json"
)

// Store keeps prompts newest-first. Writes are serialised; readers get
// immutable snapshots. Persistence failures are logged, never returned.
type Store struct {
	fs     storage.Provider
	logger *slog.Logger
	tags   *tags.Registry

	mu   sync.Mutex
	snap atomic.Pointer[[]models.PromptTemplate]
}

// New creates an empty store. Call Load before use.
func New(fs storage.Provider, logger *slog.Logger) *Store {
	s := &Store{fs: fs, logger: logger}
	s.tags = tags.NewRegistry(nil, s.writeTags)
	empty := []models.PromptTemplate{}
	s.snap.Store(&empty)
	return s
}

// Tags exposes the tag registry.
func (s *Store) Tags() *tags.Registry { return s.tags }

// Load reads tags and prompts from disk. When no prompt catalog can be read
// the sample tags and prompts are seeded and persisted.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tagList []models.Tag
	if s.readJSON(TagsFile, &tagList) {
		s.tags.Replace(tagList)
	}

	var list []models.PromptTemplate
	if !s.readJSON(PromptsFile, &list) {
		list = s.seed(time.Now())
		s.logger.Info("promptstore: seeded sample prompts", slog.Int("count", len(list)))
		s.writePrompts(list)
	}
	for i := range list {
		list[i] = normalize(list[i])
	}
	s.snap.Store(&list)
}

func (s *Store) readJSON(name string, v any) bool {
	data, err := s.fs.Read(name)
	if err != nil {
		s.logger.Debug("promptstore: no file", slog.String("file", name), slog.String("error", err.Error()))
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("promptstore: file unreadable", slog.String("file", name), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *Store) seed(now time.Time) []models.PromptTemplate {
	type sample struct {
		tag, color, title, summary, content string
	}
	samples := []sample{
		{"系统", "blue", "系统提示词", "通用系统 / 安全边界", "你是一个…"},
		{"代码", "purple", "代码评审", "PR 审阅要点与风格", "请审阅以下代码…"},
		{"产品", "green", "产品需求澄清", "澄清需求与验收标准", "请根据以下需求…"},
		{"营销", "orange", "营销文案", "邮件/社媒/落地页", "请撰写…"},
	}
	out := make([]models.PromptTemplate, 0, len(samples))
	for _, smp := range samples {
		tag, _ := s.tags.CreateOrGet(smp.tag, smp.color)
		out = append(out, models.PromptTemplate{
			ID:        uuid.New(),
			Title:     smp.title,
			Summary:   smp.summary,
			Content:   smp.content,
			Tags:      []uuid.UUID{tag.ID},
			UpdatedAt: now,
			Media:     []models.PromptMedia{},
		})
	}
	return out
}

// All returns the current snapshot. Callers must not modify it.
func (s *Store) All() []models.PromptTemplate {
	return *s.snap.Load()
}

// Get returns a copy of the prompt with id.
func (s *Store) Get(id uuid.UUID) (models.PromptTemplate, bool) {
	for _, p := range s.All() {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return models.PromptTemplate{}, false
}

// Put inserts or replaces the prompt with id. fn gets a copy of the stored
// prompt, or nil when there is none, and returns the record to store. An
// error from fn leaves the store unchanged. fn runs under the store lock and
// must not call back into the store. UpdatedAt is left as fn sets it.
func (s *Store) Put(id uuid.UUID, fn func(cur *models.PromptTemplate) (models.PromptTemplate, error)) (models.PromptTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *models.PromptTemplate
	for _, p := range s.All() {
		if p.ID == id {
			c := p.Clone()
			cur = &c
			break
		}
	}
	p, err := fn(cur)
	if err != nil {
		return models.PromptTemplate{}, err
	}
	p.ID = id
	p = normalize(p.Clone())

	s.swap(func(list []models.PromptTemplate) []models.PromptTemplate {
		next := make([]models.PromptTemplate, 0, len(list)+1)
		if cur == nil {
			next = append(next, p)
		}
		for _, existing := range list {
			if existing.ID == id {
				existing = p
			}
			next = append(next, existing)
		}
		return next
	})
	return p.Clone(), nil
}

// Remove deletes the prompt record. Media files are not touched.
func (s *Store) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	s.swap(func(cur []models.PromptTemplate) []models.PromptTemplate {
		next := make([]models.PromptTemplate, 0, len(cur))
		for _, p := range cur {
			if p.ID == id {
				removed = true
				continue
			}
			next = append(next, p)
		}
		if !removed {
			return nil
		}
		return next
	})
	return removed
}

// Tag resolves a single tag id.
func (s *Store) Tag(id uuid.UUID) (models.Tag, bool) { return s.tags.Get(id) }

// TagsFor resolves tag ids, dropping those that no longer exist.
func (s *Store) TagsFor(ids []uuid.UUID) []models.Tag { return s.tags.Resolve(ids) }

// ClearModelRef nils out every reference to modelID and returns how many
// prompts changed.
func (s *Store) ClearModelRef(modelID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	s.swap(func(cur []models.PromptTemplate) []models.PromptTemplate {
		next := make([]models.PromptTemplate, len(cur))
		for i, p := range cur {
			if p.ModelID != nil && *p.ModelID == modelID {
				p = p.Clone()
				p.ModelID = nil
				changed++
			}
			next[i] = p
		}
		if changed == 0 {
			return nil
		}
		return next
	})
	return changed
}

// AttachMedia appends media to a prompt. ok is false if the prompt is gone.
func (s *Store) AttachMedia(promptID uuid.UUID, media []models.PromptMedia) (models.PromptTemplate, bool) {
	return s.edit(promptID, func(p *models.PromptTemplate) {
		p.Media = append(p.Media, media...)
	})
}

// DetachMedia drops every media entry matching pred and returns them.
func (s *Store) DetachMedia(promptID uuid.UUID, pred func(models.PromptMedia) bool) ([]models.PromptMedia, bool) {
	var detached []models.PromptMedia
	_, ok := s.edit(promptID, func(p *models.PromptTemplate) {
		kept := make([]models.PromptMedia, 0, len(p.Media))
		for _, m := range p.Media {
			if pred(m) {
				detached = append(detached, m)
				continue
			}
			kept = append(kept, m)
		}
		p.Media = kept
	})
	return detached, ok
}

func (s *Store) edit(id uuid.UUID, fn func(*models.PromptTemplate)) (models.PromptTemplate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out models.PromptTemplate
	found := false
	s.swap(func(cur []models.PromptTemplate) []models.PromptTemplate {
		next := make([]models.PromptTemplate, len(cur))
		for i, p := range cur {
			if p.ID == id {
				p = p.Clone()
				fn(&p)
				out = p.Clone()
				found = true
			}
			next[i] = p
		}
		if !found {
			return nil
		}
		return next
	})
	return out, found
}

// swap applies fn to the current snapshot; a nil result means no change.
// Must be called with mu held.
func (s *Store) swap(fn func([]models.PromptTemplate) []models.PromptTemplate) {
	next := fn(s.All())
	if next == nil {
		return
	}
	s.snap.Store(&next)
	s.writePrompts(next)
}

func (s *Store) writePrompts(list []models.PromptTemplate) {
	s.writeJSON(PromptsFile, list)
}

func (s *Store) writeTags(list []models.Tag) {
	s.writeJSON(TagsFile, list)
}

func (s *Store) writeJSON(name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Warn("promptstore: encode failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	if err := s.fs.Write(name, data); err != nil {
		s.logger.Warn("promptstore: write failed", slog.String("file", name), slog.String("error", err.Error()))
	}
}

// normalize removes duplicate tag ids keeping first occurrence and makes
// nil slices empty so JSON output is stable.
func normalize(p models.PromptTemplate) models.PromptTemplate {
	seen := make(map[uuid.UUID]struct{}, len(p.Tags))
	tagsOut := make([]uuid.UUID, 0, len(p.Tags))
	for _, id := range p.Tags {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		tagsOut = append(tagsOut, id)
	}
	p.Tags = tagsOut
	if p.Media == nil {
		p.Media = []models.PromptMedia{}
	}
	return p
}
