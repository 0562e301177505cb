// Package hubservice wires the catalog stores, the media manager and the
// preference store into the editor workflows used by the REST API and the
// MCP server.
package hubservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/prompthub/internal/apperr"
	"github.com/starford/prompthub/internal/checksum"
	"github.com/starford/prompthub/internal/filter"
	"github.com/starford/prompthub/internal/markdown"
	"github.com/starford/prompthub/internal/media"
	"github.com/starford/prompthub/internal/modelstore"
	"github.com/starford/prompthub/internal/models"
	"github.com/starford/prompthub/internal/prefs"
	"github.com/starford/prompthub/internal/promptstore"
	"github.com/starford/prompthub/internal/tags"
)

// Publisher receives change notifications. *sse.Broker implements it.
type Publisher interface {
	Notify(kind string, data interface{})
}

type nopPublisher struct{}

func (nopPublisher) Notify(string, interface{}) {}

// Change event kinds.
const (
	EventModelSaved    = "model.saved"
	EventModelDeleted  = "model.deleted"
	EventPromptSaved   = "prompt.saved"
	EventPromptDeleted = "prompt.deleted"
	EventTagCreated    = "tag.created"
	EventTagDeleted    = "tag.deleted"
	EventMediaAdded    = "media.added"
	EventMediaRemoved  = "media.removed"
	EventMediaMissing  = "media.missing"
	EventFilterChanged = "filter.changed"
)

// Service is the application state container. It is safe for concurrent use.
type Service struct {
	models  *modelstore.Store
	prompts *promptstore.Store
	media   *media.Manager
	prefs   *prefs.Store
	logger  *slog.Logger
	pub     Publisher
	now     func() time.Time
}

// New creates a Service. pub may be nil.
func New(ms *modelstore.Store, ps *promptstore.Store, mm *media.Manager, pr *prefs.Store, logger *slog.Logger, pub Publisher) *Service {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Service{
		models:  ms,
		prompts: ps,
		media:   mm,
		prefs:   pr,
		logger:  logger,
		pub:     pub,
		now:     time.Now,
	}
}

// invalid marks a validation.Errors value so callers can match
// apperr.ErrValidation and still extract the per-field messages.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
}

// ModelInput is the editable part of a model configuration.
type ModelInput struct {
	Name             string             `json:"name"`
	Type             models.ModelType   `json:"type"`
	Vendor           models.ModelVendor `json:"vendor"`
	CustomVendorName *string            `json:"customVendorName,omitempty"`
}

// Models returns the full catalog in display order.
func (s *Service) Models() []models.ModelConfig {
	return s.models.All()
}

// ListModels returns the catalog narrowed by the persisted filter and search.
func (s *Service) ListModels(ctx context.Context, search string) []models.ModelConfig {
	return filter.Models(s.models.All(), s.prefs.ModelFilter(ctx), search)
}

// Model looks up a model by id.
func (s *Service) Model(id uuid.UUID) (models.ModelConfig, error) {
	m, ok := s.models.Get(id)
	if !ok {
		return models.ModelConfig{}, apperr.ErrNotFound
	}
	return m, nil
}

// SaveModel creates a model when id is nil, otherwise updates it. Input is
// trimmed and validated; names must be unique ignoring case. On error no
// store is touched.
func (s *Service) SaveModel(ctx context.Context, id *uuid.UUID, in ModelInput) (models.ModelConfig, error) {
	m := models.ModelConfig{
		Name:             in.Name,
		Type:             in.Type,
		Vendor:           in.Vendor,
		CustomVendorName: in.CustomVendorName,
	}
	if id != nil {
		m.ID = *id
	} else {
		now := s.now()
		m.ID = uuid.New()
		m.CreatedAt = now
		m.UpdatedAt = now
	}

	m = modelstore.Normalize(m)
	if err := modelstore.Validate(m); err != nil {
		return models.ModelConfig{}, invalid(err)
	}

	var saved models.ModelConfig
	var err error
	if id != nil {
		saved, err = s.models.Update(ctx, m)
	} else {
		saved, err = s.models.Upsert(ctx, m)
	}
	if err != nil {
		return models.ModelConfig{}, err
	}
	s.pub.Notify(EventModelSaved, map[string]string{"id": saved.ID.String()})
	return saved, nil
}

// ModelNameTaken reports whether another model already uses name. excluding
// is the model being edited, if any.
func (s *Service) ModelNameTaken(name string, excluding *uuid.UUID) bool {
	return s.models.ExistsByName(name, excluding)
}

// DeleteModel removes a model and clears every prompt reference to it.
func (s *Service) DeleteModel(ctx context.Context, id uuid.UUID) error {
	if !s.models.Remove(ctx, id) {
		return apperr.ErrNotFound
	}
	cleared := s.prompts.ClearModelRef(id)
	s.pub.Notify(EventModelDeleted, map[string]any{"id": id.String(), "clearedPrompts": cleared})
	return nil
}

// VendorOptions lists the vendor choices present in the catalog.
func (s *Service) VendorOptions() filter.VendorOptions {
	return filter.AvailableVendors(s.models.All())
}

// PromptDetail is a prompt with its references resolved.
type PromptDetail struct {
	models.PromptTemplate
	TagList  []models.Tag        `json:"tagList"`
	Model    *models.ModelConfig `json:"model,omitempty"`
	Checksum string              `json:"checksum"`
	Markdown markdown.Result     `json:"markdown"`
	Missing  []uuid.UUID         `json:"missingMedia"`
}

// NewPrompt returns an unsaved draft with the placeholder title.
func (s *Service) NewPrompt() models.PromptTemplate {
	return models.PromptTemplate{
		ID:        uuid.New(),
		Title:     models.UntitledPrompt,
		Tags:      []uuid.UUID{},
		Media:     []models.PromptMedia{},
		UpdatedAt: s.now(),
	}
}

// Prompts returns every prompt in display order.
func (s *Service) Prompts() []models.PromptTemplate {
	return s.prompts.All()
}

// ListPrompts returns the prompts visible under q. Selecting every tag is
// the same as selecting none.
func (s *Service) ListPrompts(_ context.Context, q filter.PromptQuery) []models.PromptTemplate {
	q.SelectedTags = filter.CollapseTags(q.SelectedTags, s.prompts.Tags().All())
	return filter.Prompts(s.prompts.All(), q, s.models.All())
}

// TagToggle switches one tag in a prompt list selection.
type TagToggle struct {
	Selected []uuid.UUID `json:"selectedTags"`
	TagID    uuid.UUID   `json:"tagId"`
	On       bool        `json:"on"`
}

// ToggleTag applies t and returns the new selection in registry order. Ids
// of deleted tags are dropped, and selecting every tag yields an empty
// selection. The selection is not stored.
func (s *Service) ToggleTag(t TagToggle) ([]uuid.UUID, error) {
	if _, ok := s.prompts.Tag(t.TagID); t.On && !ok {
		return nil, apperr.ErrNotFound
	}
	registry := s.prompts.Tags().All()
	next := filter.ToggleTag(filter.TagSet(t.Selected), t.TagID, t.On, registry)
	out := make([]uuid.UUID, 0, len(next))
	for _, tag := range registry {
		if _, ok := next[tag.ID]; ok {
			out = append(out, tag.ID)
		}
	}
	return out, nil
}

// Prompt returns one prompt with tags, linked model and media state resolved.
func (s *Service) Prompt(id uuid.UUID) (PromptDetail, error) {
	p, ok := s.prompts.Get(id)
	if !ok {
		return PromptDetail{}, apperr.ErrNotFound
	}
	return s.detail(p), nil
}

func (s *Service) detail(p models.PromptTemplate) PromptDetail {
	d := PromptDetail{
		PromptTemplate: p,
		TagList:        s.prompts.TagsFor(p.Tags),
		Checksum:       promptChecksum(p),
		Markdown:       markdown.Parse(p.Content),
		Missing:        []uuid.UUID{},
	}
	if p.ModelID != nil {
		if m, ok := s.models.Get(*p.ModelID); ok {
			d.Model = &m
		}
	}
	for _, item := range p.Media {
		if !s.media.Exists(item) {
			d.Missing = append(d.Missing, item.ID)
		}
	}
	return d
}

func promptChecksum(p models.PromptTemplate) string {
	sum, err := checksum.Of(p)
	if err != nil {
		return ""
	}
	return sum
}

// PromptInput is the editable part of a prompt. Media is managed through
// ImportMedia and RemoveMedia only.
type PromptInput struct {
	Title     string      `json:"title"`
	Summary   string      `json:"summary"`
	Content   string      `json:"content"`
	Tags      []uuid.UUID `json:"tags"`
	SourceURL string      `json:"sourceURL"`
	ModelID   *uuid.UUID  `json:"modelId,omitempty"`
}

// SavePrompt creates or replaces the prompt with id and stamps UpdatedAt.
// A non-empty ifMatch must equal the stored prompt's checksum.
func (s *Service) SavePrompt(_ context.Context, id uuid.UUID, in PromptInput, ifMatch string) (PromptDetail, error) {
	saved, err := s.prompts.Put(id, func(cur *models.PromptTemplate) (models.PromptTemplate, error) {
		p := models.PromptTemplate{
			ID:        id,
			Title:     in.Title,
			Summary:   in.Summary,
			Content:   in.Content,
			Tags:      in.Tags,
			SourceURL: in.SourceURL,
			ModelID:   in.ModelID,
			Media:     []models.PromptMedia{},
		}
		switch {
		case cur != nil:
			if ifMatch != "" && ifMatch != promptChecksum(*cur) {
				return models.PromptTemplate{}, apperr.ErrConflict
			}
			p.Media = cur.Media
		case ifMatch != "":
			return models.PromptTemplate{}, apperr.ErrNotFound
		}
		if p.Title == "" {
			p.Title = models.UntitledPrompt
		}
		p.UpdatedAt = s.now()
		return p, nil
	})
	if err != nil {
		return PromptDetail{}, err
	}
	s.pub.Notify(EventPromptSaved, map[string]string{"id": saved.ID.String()})
	return s.detail(saved), nil
}

// DeletePrompt removes the prompt and then its whole media folder. Media
// cleanup failures are logged; the record is gone either way.
func (s *Service) DeletePrompt(_ context.Context, id uuid.UUID) error {
	if !s.prompts.Remove(id) {
		return apperr.ErrNotFound
	}
	if err := s.media.RemovePromptFolder(id); err != nil {
		s.logger.Warn("hubservice: remove prompt media",
			slog.String("prompt", id.String()), slog.String("error", err.Error()))
	}
	s.pub.Notify(EventPromptDeleted, map[string]string{"id": id.String()})
	return nil
}

// Tags returns the tags whose name contains query; "" returns all of them.
func (s *Service) Tags(query string) []models.Tag {
	return s.prompts.Tags().Search(query)
}

// CreateTag returns the existing tag with the same name or creates a new one.
func (s *Service) CreateTag(_ context.Context, name, color string) (models.Tag, bool, error) {
	if err := tags.Validate(name, color); err != nil {
		return models.Tag{}, false, invalid(err)
	}
	tag, created := s.prompts.Tags().CreateOrGet(name, color)
	if created {
		s.pub.Notify(EventTagCreated, tag)
	}
	return tag, created, nil
}

// DeleteTag removes a tag from the registry. Prompts keep the stale id,
// which no longer resolves.
func (s *Service) DeleteTag(_ context.Context, id uuid.UUID) error {
	if !s.prompts.Tags().Remove(id) {
		return apperr.ErrNotFound
	}
	s.pub.Notify(EventTagDeleted, map[string]string{"id": id.String()})
	return nil
}

// ImportMedia copies local files into the prompt's media folder and appends
// the successful ones to the prompt. Per-file failures are in the batch.
func (s *Service) ImportMedia(ctx context.Context, promptID uuid.UUID, t models.MediaType, paths []string) (media.Batch, error) {
	if !t.Valid() {
		return media.Batch{}, fmt.Errorf("%w: unknown media type %q", apperr.ErrValidation, t)
	}
	if _, ok := s.prompts.Get(promptID); !ok {
		return media.Batch{}, apperr.ErrNotFound
	}

	batch := s.media.ImportFiles(ctx, media.Dedupe(paths), t, promptID)
	for _, f := range batch.Failures {
		s.logger.Warn("hubservice: media import failed",
			slog.String("prompt", promptID.String()),
			slog.String("source", f.Source),
			slog.String("error", f.Reason))
	}
	if len(batch.Media) == 0 {
		return batch, nil
	}

	if _, ok := s.prompts.AttachMedia(promptID, batch.Media); !ok {
		// Prompt deleted while copying; drop the folder the copies recreated.
		if err := s.media.RemovePromptFolder(promptID); err != nil {
			s.logger.Warn("hubservice: remove orphaned media",
				slog.String("prompt", promptID.String()), slog.String("error", err.Error()))
		}
		return media.Batch{}, apperr.ErrNotFound
	}
	s.pub.Notify(EventMediaAdded, map[string]any{"prompt": promptID.String(), "count": len(batch.Media)})
	return batch, nil
}

// RemoveMedia detaches one media item and deletes its file.
func (s *Service) RemoveMedia(_ context.Context, promptID, mediaID uuid.UUID) error {
	removed, ok := s.prompts.DetachMedia(promptID, func(m models.PromptMedia) bool { return m.ID == mediaID })
	if !ok || len(removed) == 0 {
		return apperr.ErrNotFound
	}
	for _, item := range removed {
		if err := s.media.RemoveOne(item); err != nil {
			s.logger.Warn("hubservice: remove media file",
				slog.String("path", item.RelativePath), slog.String("error", err.Error()))
		}
	}
	s.pub.Notify(EventMediaRemoved, map[string]any{"prompt": promptID.String(), "count": len(removed)})
	return nil
}

// RemoveMediaOfType detaches every media item of type t and deletes the
// type folder. It returns how many items were detached.
func (s *Service) RemoveMediaOfType(_ context.Context, promptID uuid.UUID, t models.MediaType) (int, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: unknown media type %q", apperr.ErrValidation, t)
	}
	removed, ok := s.prompts.DetachMedia(promptID, func(m models.PromptMedia) bool { return m.Type == t })
	if !ok {
		return 0, apperr.ErrNotFound
	}
	if err := s.media.RemoveAllOfType(promptID, t); err != nil {
		s.logger.Warn("hubservice: remove media folder",
			slog.String("prompt", promptID.String()), slog.String("error", err.Error()))
	}
	if len(removed) > 0 {
		s.pub.Notify(EventMediaRemoved, map[string]any{"prompt": promptID.String(), "count": len(removed)})
	}
	return len(removed), nil
}

// MediaFile resolves a path relative to the media root for serving.
func (s *Service) MediaFile(rel string) (string, error) {
	item := models.PromptMedia{RelativePath: rel}
	abs, err := s.media.Resolve(item)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	if !s.media.Exists(item) {
		return "", apperr.ErrNotFound
	}
	return abs, nil
}

// HandleMediaEvent is the media watcher callback. It forwards changes made
// under the media root, including external ones, to subscribers.
func (s *Service) HandleMediaEvent(kind, rel string) {
	data := map[string]string{"path": rel}
	if id, ok := media.PromptFromPath(rel); ok {
		data["prompt"] = id.String()
	}
	switch kind {
	case media.EventAdded:
		s.pub.Notify(EventMediaAdded, data)
	case media.EventMissing:
		s.pub.Notify(EventMediaMissing, data)
	}
}

// Settings returns the UI preferences.
func (s *Service) Settings(ctx context.Context) prefs.Settings {
	return s.prefs.Settings(ctx)
}

// SaveSettings validates and stores the UI preferences.
func (s *Service) SaveSettings(ctx context.Context, in prefs.Settings) error {
	return s.prefs.SetSettings(ctx, in)
}

// ModelFilter returns the persisted model filter.
func (s *Service) ModelFilter(ctx context.Context) models.ModelFilter {
	return s.prefs.ModelFilter(ctx)
}

// SetModelFilter collapses and stores f, returning what was stored.
func (s *Service) SetModelFilter(ctx context.Context, f models.ModelFilter) models.ModelFilter {
	stored := s.prefs.SetModelFilter(ctx, f, s.VendorOptions())
	s.pub.Notify(EventFilterChanged, stored)
	return stored
}

// Filter dimensions accepted by ToggleFilter and ClearFilter.
const (
	DimensionType         = "type"
	DimensionVendor       = "vendor"
	DimensionCustomVendor = "customVendor"
)

// FilterToggle switches one selection in the model filter.
type FilterToggle struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
	On        bool   `json:"on"`
}

// ErrUnknownDimension is returned for a toggle naming no filter dimension.
var ErrUnknownDimension = errors.New("unknown filter dimension")

// ToggleFilter applies one toggle to the persisted filter with auto-collapse
// and stores the result.
func (s *Service) ToggleFilter(ctx context.Context, t FilterToggle) (models.ModelFilter, error) {
	cur := s.prefs.ModelFilter(ctx)
	opts := s.VendorOptions()

	var next models.ModelFilter
	switch t.Dimension {
	case DimensionType:
		mt := models.ModelType(t.Value)
		if !mt.Valid() {
			return cur, fmt.Errorf("%w: unknown model type %q", apperr.ErrValidation, t.Value)
		}
		next = filter.ToggleType(cur, mt, t.On)
	case DimensionVendor:
		v := models.ModelVendor(t.Value)
		if !v.Valid() || v == models.VendorCustom {
			return cur, fmt.Errorf("%w: unknown vendor %q", apperr.ErrValidation, t.Value)
		}
		next = filter.ToggleVendor(cur, v, t.On, opts)
	case DimensionCustomVendor:
		next = filter.ToggleCustomVendor(cur, t.Value, t.On, opts)
	default:
		return cur, fmt.Errorf("%w: %w %q", apperr.ErrValidation, ErrUnknownDimension, t.Dimension)
	}
	return s.SetModelFilter(ctx, next), nil
}

// ClearFilter resets one dimension ("type" or "vendor") or, for "", both.
func (s *Service) ClearFilter(ctx context.Context, dimension string) (models.ModelFilter, error) {
	cur := s.prefs.ModelFilter(ctx)
	switch dimension {
	case "":
		cur = models.NewModelFilter()
	case DimensionType:
		cur = filter.ClearTypes(cur)
	case DimensionVendor, DimensionCustomVendor:
		cur = filter.ClearVendors(cur)
	default:
		return cur, fmt.Errorf("%w: %w %q", apperr.ErrValidation, ErrUnknownDimension, dimension)
	}
	return s.SetModelFilter(ctx, cur), nil
}
