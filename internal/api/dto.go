package api

import (
	"github.com/google/uuid"

	"github.com/starford/prompthub/internal/hubservice"
	"github.com/starford/prompthub/internal/media"
	"github.com/starford/prompthub/internal/models"
	"github.com/starford/prompthub/internal/prefs"
)

// ModelRequest is the request body for creating or updating a model.
type ModelRequest = hubservice.ModelInput

// ModelListResponse wraps model listings. Total counts the unfiltered catalog.
type ModelListResponse struct {
	Models []models.ModelConfig `json:"models" validate:"required"`
	Total  int                  `json:"total" example:"3" validate:"required"`
}

// PromptRequest is the request body for creating or updating a prompt. ID
// is honoured on create only, so a draft from GET /prompts/draft keeps its id.
type PromptRequest struct {
	ID *uuid.UUID `json:"id,omitempty"`
	hubservice.PromptInput
}

// PromptDetail is the full prompt response type (aliased from the domain layer).
type PromptDetail = hubservice.PromptDetail

// PromptListResponse wraps prompt listings. Total counts every prompt.
type PromptListResponse struct {
	Prompts []models.PromptTemplate `json:"prompts" validate:"required"`
	Total   int                     `json:"total" example:"4" validate:"required"`
}

// NameCheckResponse tells whether a model name is free.
type NameCheckResponse struct {
	Available bool `json:"available"`
}

// TagSelectionResponse is the prompt list tag selection after a toggle.
type TagSelectionResponse struct {
	SelectedTags []uuid.UUID `json:"selectedTags" validate:"required"`
}

// FilterResponse returns the model filter with its badge count.
type FilterResponse struct {
	Filter      models.ModelFilter `json:"filter" validate:"required"`
	ActiveCount int                `json:"activeCount" example:"2"`
}

// TagRequest is the request body for creating a tag.
type TagRequest struct {
	Name  string `json:"name" example:"Code" validate:"required"`
	Color string `json:"color" example:"purple" validate:"required"`
}

// ImportMediaRequest lists local files to copy into a prompt.
type ImportMediaRequest struct {
	Type  models.MediaType `json:"type" example:"image" validate:"required"`
	Paths []string         `json:"paths" validate:"required"`
}

// ImportMediaResponse reports per-file results of an import.
type ImportMediaResponse = media.Batch

// EnumOption pairs an enum value with its display metadata.
type EnumOption struct {
	Value string       `json:"value"`
	Label models.Label `json:"label"`
}

// MetaResponse carries the lookup tables the front-end renders from.
type MetaResponse struct {
	ModelTypes []EnumOption       `json:"modelTypes"`
	Vendors    []EnumOption       `json:"vendors"`
	TagColors  []string           `json:"tagColors"`
	MediaTypes []models.MediaType `json:"mediaTypes"`
	Languages  []prefs.Language   `json:"languages"`
	Appearance []prefs.Appearance `json:"appearances"`
}
