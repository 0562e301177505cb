// Package models defines the domain types for PromptHub.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ModelType is the kind of workload a model configuration serves.
type ModelType string

const (
	ModelTypeChat  ModelType = "chat"
	ModelTypeCode  ModelType = "code"
	ModelTypeImage ModelType = "image"
	ModelTypeVideo ModelType = "video"
	ModelTypeVoice ModelType = "voice"
)

// AllModelTypes lists every ModelType in declaration order.
var AllModelTypes = []ModelType{
	ModelTypeChat,
	ModelTypeCode,
	ModelTypeImage,
	ModelTypeVideo,
	ModelTypeVoice,
}

// Valid reports whether t is a known model type.
func (t ModelType) Valid() bool {
	for _, v := range AllModelTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ModelVendor identifies who provides a model.
type ModelVendor string

const (
	VendorOpenAI     ModelVendor = "OpenAI"
	VendorAnthropic  ModelVendor = "Anthropic"
	VendorGoogle     ModelVendor = "Google"
	VendorMoonshot   ModelVendor = "Moonshot"
	VendorVolcengine ModelVendor = "Volcengine"
	VendorAlibaba    ModelVendor = "Alibaba"
	VendorBaidu      ModelVendor = "Baidu"
	VendorTencent    ModelVendor = "Tencent"
	VendorCustom     ModelVendor = "custom"
)

// AllVendors lists every ModelVendor in declaration order.
var AllVendors = []ModelVendor{
	VendorOpenAI,
	VendorAnthropic,
	VendorGoogle,
	VendorMoonshot,
	VendorVolcengine,
	VendorAlibaba,
	VendorBaidu,
	VendorTencent,
	VendorCustom,
}

// Valid reports whether v is a known vendor.
func (v ModelVendor) Valid() bool {
	for _, x := range AllVendors {
		if x == v {
			return true
		}
	}
	return false
}

// MaxNameLength bounds model names and custom vendor names (in runes).
const MaxNameLength = 40

// ModelConfig is a named vendor + model type pairing.
type ModelConfig struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	Type             ModelType   `json:"type"`
	Vendor           ModelVendor `json:"vendor"`
	CustomVendorName *string     `json:"customVendorName,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// CustomVendor returns the custom vendor name, or "" when unset.
func (m ModelConfig) CustomVendor() string {
	if m.CustomVendorName == nil {
		return ""
	}
	return *m.CustomVendorName
}

// Tag labels prompts. Color is a preset name or a #RRGGBB value.
type Tag struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// MediaType distinguishes attached images from videos.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaImage || t == MediaVideo
}

// Folder is the per-prompt subfolder holding media of this type.
func (t MediaType) Folder() string {
	if t == MediaVideo {
		return "videos"
	}
	return "images"
}

// DefaultExt is used when a source file carries no extension.
func (t MediaType) DefaultExt() string {
	if t == MediaVideo {
		return "mov"
	}
	return "png"
}

// PromptMedia is an image or video owned by a prompt.
// RelativePath is relative to the media root and always slash-separated.
type PromptMedia struct {
	ID           uuid.UUID `json:"id"`
	Type         MediaType `json:"type"`
	RelativePath string    `json:"relativePath"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UntitledPrompt is the placeholder title of a new prompt.
const UntitledPrompt = "Untitled"

// PromptTemplate is a reusable text snippet.
type PromptTemplate struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary"`
	Content   string        `json:"content"`
	Tags      []uuid.UUID   `json:"tags"`
	SourceURL string        `json:"sourceURL"`
	ModelID   *uuid.UUID    `json:"modelId,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Media     []PromptMedia `json:"media"`
}

// Clone returns a deep copy so snapshots never share backing arrays.
func (p PromptTemplate) Clone() PromptTemplate {
	c := p
	c.Tags = append([]uuid.UUID(nil), p.Tags...)
	c.Media = append([]PromptMedia(nil), p.Media...)
	if p.ModelID != nil {
		id := *p.ModelID
		c.ModelID = &id
	}
	return c
}
