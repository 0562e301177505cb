package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/prompthub/internal/checksum"
	"github.com/starford/prompthub/internal/filter"
	"github.com/starford/prompthub/internal/hubservice"
	"github.com/starford/prompthub/internal/models"
	"github.com/starford/prompthub/internal/prefs"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *hubservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *hubservice.Service) *Handler {
	return &Handler{svc: svc}
}

// idParam parses a uuid path parameter, writing 400 when it is malformed.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// ListModels handles GET /api/models.
//
//	@Summary		List models narrowed by the saved filter
//	@Tags			models
//	@Produce		json
//	@Param			search	query		string	false	"Name substring"
//	@Param			all		query		bool	false	"Ignore the saved filter"
//	@Success		200		{object}	ModelListResponse
//	@Security		BearerAuth
//	@Router			/models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var list []models.ModelConfig
	if q.Get("all") == "true" || q.Get("all") == "1" {
		list = filter.Models(h.svc.Models(), models.NewModelFilter(), q.Get("search"))
	} else {
		list = h.svc.ListModels(r.Context(), q.Get("search"))
	}
	writeJSON(w, http.StatusOK, ModelListResponse{Models: list, Total: len(h.svc.Models())})
}

// GetModel handles GET /api/models/{id}.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	m, err := h.svc.Model(id)
	if err != nil {
		writeError(w, "get model", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// CreateModel handles POST /api/models.
//
//	@Summary		Create a model configuration
//	@Tags			models
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ModelRequest	true	"Model to create"
//	@Success		201		{object}	models.ModelConfig
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/models [post]
func (h *Handler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	m, err := h.svc.SaveModel(r.Context(), nil, req)
	if err != nil {
		writeError(w, "create model", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UpdateModel handles PUT /api/models/{id}.
func (h *Handler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req ModelRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	m, err := h.svc.SaveModel(r.Context(), &id, req)
	if err != nil {
		writeError(w, "update model", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteModel handles DELETE /api/models/{id}. Prompts linked to the model
// are unlinked.
func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteModel(r.Context(), id); err != nil {
		writeError(w, "delete model", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VendorOptions handles GET /api/models/vendors.
func (h *Handler) VendorOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.VendorOptions())
}

// ModelNameCheck handles GET /api/models/name-check?name=...&exclude=<id>,
// letting the editor flag a duplicate name before saving.
func (h *Handler) ModelNameCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	var exclude *uuid.UUID
	if raw := q.Get("exclude"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid exclude id"))
			return
		}
		exclude = &id
	}
	writeJSON(w, http.StatusOK, NameCheckResponse{Available: !h.svc.ModelNameTaken(name, exclude)})
}

// GetModelFilter handles GET /api/models/filter.
func (h *Handler) GetModelFilter(w http.ResponseWriter, r *http.Request) {
	f := h.svc.ModelFilter(r.Context())
	writeJSON(w, http.StatusOK, FilterResponse{Filter: f, ActiveCount: f.ActiveCount()})
}

// PutModelFilter handles PUT /api/models/filter. The stored filter is
// returned after auto-collapse.
func (h *Handler) PutModelFilter(w http.ResponseWriter, r *http.Request) {
	var f models.ModelFilter
	if !decodeJSON(w, r, maxBodyBytes, &f) {
		return
	}
	stored := h.svc.SetModelFilter(r.Context(), f)
	writeJSON(w, http.StatusOK, FilterResponse{Filter: stored, ActiveCount: stored.ActiveCount()})
}

// ToggleModelFilter handles POST /api/models/filter/toggle.
func (h *Handler) ToggleModelFilter(w http.ResponseWriter, r *http.Request) {
	var req hubservice.FilterToggle
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	f, err := h.svc.ToggleFilter(r.Context(), req)
	if err != nil {
		writeError(w, "toggle filter", err)
		return
	}
	writeJSON(w, http.StatusOK, FilterResponse{Filter: f, ActiveCount: f.ActiveCount()})
}

// ClearModelFilter handles DELETE /api/models/filter?dimension=type|vendor.
// Without a dimension the whole filter is cleared.
func (h *Handler) ClearModelFilter(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.ClearFilter(r.Context(), r.URL.Query().Get("dimension"))
	if err != nil {
		writeError(w, "clear filter", err)
		return
	}
	writeJSON(w, http.StatusOK, FilterResponse{Filter: f, ActiveCount: f.ActiveCount()})
}

// ListPrompts handles GET /api/prompts.
//
//	@Summary		List prompts
//	@Tags			prompts
//	@Produce		json
//	@Param			search	query		string		false	"Matches title, summary and content"
//	@Param			tag		query		[]string	false	"Tag ids; a prompt must carry all of them"
//	@Param			type	query		string		false	"Linked model type"
//	@Success		200		{object}	PromptListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [get]
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := filter.PromptQuery{Search: q.Get("search")}

	var ids []uuid.UUID
	for _, raw := range q["tag"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody("invalid tag id: "+part))
				return
			}
			ids = append(ids, id)
		}
	}
	query.SelectedTags = filter.TagSet(ids)

	if t := q.Get("type"); t != "" {
		query.ModelType = models.ModelType(t)
		if !query.ModelType.Valid() {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown model type: "+t))
			return
		}
	}

	list := h.svc.ListPrompts(r.Context(), query)
	writeJSON(w, http.StatusOK, PromptListResponse{Prompts: list, Total: len(h.svc.Prompts())})
}

// TogglePromptTag handles POST /api/prompts/filter/toggle. The selection
// lives with the client; the response is the selection to send back as
// tag parameters on the next listing.
func (h *Handler) TogglePromptTag(w http.ResponseWriter, r *http.Request) {
	var req hubservice.TagToggle
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	selected, err := h.svc.ToggleTag(req)
	if err != nil {
		writeError(w, "toggle tag", err)
		return
	}
	writeJSON(w, http.StatusOK, TagSelectionResponse{SelectedTags: selected})
}

// DraftPrompt handles GET /api/prompts/draft. The draft is not stored.
func (h *Handler) DraftPrompt(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.NewPrompt())
}

// GetPrompt handles GET /api/prompts/{id}. The ETag carries the checksum
// expected by If-Match on update.
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	d, err := h.svc.Prompt(id)
	if err != nil {
		writeError(w, "get prompt", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// CreatePrompt handles POST /api/prompts.
//
//	@Summary		Create a prompt
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PromptRequest	true	"Prompt to create"
//	@Success		201		{object}	PromptDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [post]
func (h *Handler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	id := uuid.New()
	if req.ID != nil {
		id = *req.ID
	}
	d, err := h.svc.SavePrompt(r.Context(), id, req.PromptInput, "")
	if err != nil {
		writeError(w, "create prompt", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusCreated, d)
}

// UpdatePrompt handles PUT /api/prompts/{id}.
//
//	@Summary		Update a prompt with optimistic concurrency
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Prompt id"
//	@Param			If-Match	header		string			false	"Checksum from GET"
//	@Param			body		body		PromptRequest	true	"Updated prompt"
//	@Success		200			{object}	PromptDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [put]
func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req PromptRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	ifMatch := checksum.FromIfMatch(r.Header.Get("If-Match"))

	d, err := h.svc.SavePrompt(r.Context(), id, req.PromptInput, ifMatch)
	if err != nil {
		writeError(w, "update prompt", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// DeletePrompt handles DELETE /api/prompts/{id}. The prompt's media folder
// is removed with it.
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePrompt(r.Context(), id); err != nil {
		writeError(w, "delete prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/tags?q=.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	list := h.svc.Tags(r.URL.Query().Get("q"))
	if list == nil {
		list = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": list})
}

// CreateTag handles POST /api/tags. An existing tag with the same name is
// returned with 200 instead of 201.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	tag, created, err := h.svc.CreateTag(r.Context(), req.Name, req.Color)
	if err != nil {
		writeError(w, "create tag", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, tag)
}

// DeleteTag handles DELETE /api/tags/{id}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteTag(r.Context(), id); err != nil {
		writeError(w, "delete tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

// PutSettings handles PUT /api/settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req prefs.Settings
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	if err := h.svc.SaveSettings(r.Context(), req); err != nil {
		writeError(w, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

// Meta handles GET /api/meta: display metadata for the enums.
func (h *Handler) Meta(w http.ResponseWriter, _ *http.Request) {
	resp := MetaResponse{
		ModelTypes: make([]EnumOption, 0, len(models.AllModelTypes)),
		Vendors:    make([]EnumOption, 0, len(models.AllVendors)),
		TagColors:  models.TagColors,
		MediaTypes: []models.MediaType{models.MediaImage, models.MediaVideo},
		Languages:  []prefs.Language{prefs.LanguageChinese, prefs.LanguageEnglish},
		Appearance: []prefs.Appearance{prefs.AppearanceSystem, prefs.AppearanceLight, prefs.AppearanceDark},
	}
	for _, t := range models.AllModelTypes {
		resp.ModelTypes = append(resp.ModelTypes, EnumOption{Value: string(t), Label: models.TypeLabels[t]})
	}
	for _, v := range models.AllVendors {
		resp.Vendors = append(resp.Vendors, EnumOption{Value: string(v), Label: models.VendorLabels[v]})
	}
	writeJSON(w, http.StatusOK, resp)
}
