// Package tags owns the set of prompt tags.
package tags

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/starford/prompthub/internal/models"
)

// ChangeFunc receives the new snapshot after every mutation.
type ChangeFunc func(snapshot []models.Tag)

// Registry holds tags in creation order. Reads are lock-free snapshots;
// writers are serialised and swap in a fresh slice.
type Registry struct {
	mu       sync.Mutex
	snap     atomic.Pointer[[]models.Tag]
	onChange ChangeFunc
}

// NewRegistry creates a registry seeded with initial tags.
func NewRegistry(initial []models.Tag, onChange ChangeFunc) *Registry {
	r := &Registry{onChange: onChange}
	cp := append([]models.Tag(nil), initial...)
	r.snap.Store(&cp)
	return r
}

// Normalize folds a tag name for comparison.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// All returns the current snapshot. Callers must not modify it.
func (r *Registry) All() []models.Tag {
	return *r.snap.Load()
}

// Replace swaps in a whole new tag set without firing the change hook.
// Used when loading from disk.
func (r *Registry) Replace(all []models.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]models.Tag(nil), all...)
	r.snap.Store(&cp)
}

// Get looks up a tag by id.
func (r *Registry) Get(id uuid.UUID) (models.Tag, bool) {
	for _, t := range r.All() {
		if t.ID == id {
			return t, true
		}
	}
	return models.Tag{}, false
}

// FindByName matches on the trimmed, case-insensitive name.
func (r *Registry) FindByName(name string) (models.Tag, bool) {
	return findByName(r.All(), Normalize(name))
}

func findByName(all []models.Tag, norm string) (models.Tag, bool) {
	for _, t := range all {
		if Normalize(t.Name) == norm {
			return t, true
		}
	}
	return models.Tag{}, false
}

// CreateOrGet returns the existing tag with the same normalized name, or
// appends a new one. created reports which happened.
func (r *Registry) CreateOrGet(name, color string) (tag models.Tag, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.All()
	if t, ok := findByName(cur, Normalize(name)); ok {
		return t, false
	}
	tag = models.Tag{ID: uuid.New(), Name: strings.TrimSpace(name), Color: color}
	next := make([]models.Tag, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, tag)
	r.publish(next)
	return tag, true
}

// Resolve maps ids to tags, dropping ids that no longer resolve.
func (r *Registry) Resolve(ids []uuid.UUID) []models.Tag {
	all := r.All()
	byID := make(map[uuid.UUID]models.Tag, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	out := make([]models.Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Search returns tags whose name contains query (case-insensitive).
// An empty query returns every tag.
func (r *Registry) Search(query string) []models.Tag {
	q := Normalize(query)
	all := r.All()
	if q == "" {
		return all
	}
	var out []models.Tag
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	return out
}

// Remove deletes a tag. Prompts referencing it keep the dangling id.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.All()
	next := make([]models.Tag, 0, len(cur))
	for _, t := range cur {
		if t.ID != id {
			next = append(next, t)
		}
	}
	if len(next) == len(cur) {
		return false
	}
	r.publish(next)
	return true
}

func (r *Registry) publish(next []models.Tag) {
	r.snap.Store(&next)
	if r.onChange != nil {
		r.onChange(next)
	}
}
