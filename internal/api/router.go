package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/prompthub/internal/hubservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *hubservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Model catalog.
	r.Route("/models", func(r chi.Router) {
		r.Get("/", h.ListModels)
		r.Post("/", h.CreateModel)
		r.Get("/vendors", h.VendorOptions)
		r.Get("/name-check", h.ModelNameCheck)
		r.Get("/filter", h.GetModelFilter)
		r.Put("/filter", h.PutModelFilter)
		r.Delete("/filter", h.ClearModelFilter)
		r.Post("/filter/toggle", h.ToggleModelFilter)
		r.Get("/{id}", h.GetModel)
		r.Put("/{id}", h.UpdateModel)
		r.Delete("/{id}", h.DeleteModel)
	})

	// Prompt catalog and prompt media.
	r.Route("/prompts", func(r chi.Router) {
		r.Get("/", h.ListPrompts)
		r.Post("/", h.CreatePrompt)
		r.Get("/draft", h.DraftPrompt)
		r.Post("/filter/toggle", h.TogglePromptTag)
		r.Get("/{id}", h.GetPrompt)
		r.Put("/{id}", h.UpdatePrompt)
		r.Delete("/{id}", h.DeletePrompt)
		r.Post("/{id}/media", h.ImportMedia)
		r.Post("/{id}/media/upload", h.UploadMedia)
		r.Delete("/{id}/media", h.RemoveMediaOfType)
		r.Delete("/{id}/media/{mediaId}", h.RemoveMedia)
	})

	r.Get("/media/*", h.ServeMedia)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)
	r.Delete("/tags/{id}", h.DeleteTag)

	// Preferences and lookup tables.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Get("/meta", h.Meta)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
