package filter

import (
	"strings"

	"github.com/google/uuid"

	"github.com/starford/prompthub/internal/models"
)

// PromptQuery is the prompt list filter state.
type PromptQuery struct {
	Search       string
	SelectedTags map[uuid.UUID]struct{}
	// ModelType restricts to prompts linked to a live model of this type.
	// Empty means no restriction.
	ModelType models.ModelType
}

// Prompts returns the prompts visible under q. catalog resolves linked
// model ids; ids it cannot resolve count as unlinked.
func Prompts(all []models.PromptTemplate, q PromptQuery, catalog []models.ModelConfig) []models.PromptTemplate {
	text := strings.ToLower(strings.TrimSpace(q.Search))

	var typeOf map[uuid.UUID]models.ModelType
	if q.ModelType != "" {
		typeOf = make(map[uuid.UUID]models.ModelType, len(catalog))
		for _, m := range catalog {
			typeOf[m.ID] = m.Type
		}
	}

	out := make([]models.PromptTemplate, 0, len(all))
	for _, p := range all {
		if !matchText(p, text) || !matchTags(p, q.SelectedTags) {
			continue
		}
		if q.ModelType != "" {
			if p.ModelID == nil {
				continue
			}
			if t, ok := typeOf[*p.ModelID]; !ok || t != q.ModelType {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func matchText(p models.PromptTemplate, text string) bool {
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), text) ||
		strings.Contains(strings.ToLower(p.Summary), text) ||
		strings.Contains(strings.ToLower(p.Content), text)
}

// matchTags requires every selected tag to be on the prompt.
func matchTags(p models.PromptTemplate, selected map[uuid.UUID]struct{}) bool {
	if len(selected) == 0 {
		return true
	}
	have := make(map[uuid.UUID]struct{}, len(p.Tags))
	for _, id := range p.Tags {
		have[id] = struct{}{}
	}
	for id := range selected {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

// ToggleTag returns a copy of selected with id switched. Selecting every tag
// in the registry collapses the selection to empty (no filter).
func ToggleTag(selected map[uuid.UUID]struct{}, id uuid.UUID, on bool, registry []models.Tag) map[uuid.UUID]struct{} {
	next := make(map[uuid.UUID]struct{}, len(selected)+1)
	for k := range selected {
		next[k] = struct{}{}
	}
	if on {
		next[id] = struct{}{}
	} else {
		delete(next, id)
	}
	return CollapseTags(next, registry)
}

// CollapseTags returns an empty selection when selected covers every tag in
// registry, and selected otherwise. An empty registry never collapses.
func CollapseTags(selected map[uuid.UUID]struct{}, registry []models.Tag) map[uuid.UUID]struct{} {
	if len(registry) > 0 && coversAll(selected, registry) {
		return map[uuid.UUID]struct{}{}
	}
	return selected
}

func coversAll(selected map[uuid.UUID]struct{}, registry []models.Tag) bool {
	for _, t := range registry {
		if _, ok := selected[t.ID]; !ok {
			return false
		}
	}
	return true
}

// TagSet builds a selection set from a list of ids.
func TagSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
