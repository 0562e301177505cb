package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/prompthub/internal/media"
	"github.com/starford/prompthub/internal/models"
)

const maxUploadBytes = 200 << 20 // 200 MB, videos included

// mediaPath extracts the media path from the URL (everything after /api/media/).
func mediaPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ServeMedia handles GET /api/media/*. A 404 means the asset is missing on
// disk even if a prompt still references it.
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	rel := mediaPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	abs, err := h.svc.MediaFile(rel)
	if err != nil {
		writeError(w, "serve media", err)
		return
	}
	http.ServeFile(w, r, abs)
}

// ImportMedia handles POST /api/prompts/{id}/media. Paths are local to the
// server host. Files that are not media of the requested type, or that fail
// to copy, are listed under "failures".
//
//	@Summary		Copy local files into a prompt
//	@Tags			media
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Prompt id"
//	@Param			body	body		ImportMediaRequest	true	"Files to import"
//	@Success		200		{object}	ImportMediaResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id}/media [post]
func (h *Handler) ImportMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req ImportMediaRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}
	batch, err := h.svc.ImportMedia(r.Context(), id, req.Type, req.Paths)
	if err != nil {
		writeError(w, "import media", err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// UploadMedia handles POST /api/prompts/{id}/media/upload
// (multipart/form-data, one or more "file" parts and a "type" field).
// Parts are spooled concurrently and imported as one batch in form order.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["file"]
	if len(parts) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}

	t := models.MediaType(r.FormValue("type"))
	if t == "" {
		t = models.MediaImage
	}

	dir, err := os.MkdirTemp("", "prompthub-upload-*")
	if err != nil {
		writeError(w, "upload media", err)
		return
	}
	defer os.RemoveAll(dir)

	c := media.NewCollector(r.Context(), slog.Default(), uploadWorkers)
	for i, part := range parts {
		c.Go(func(ctx context.Context) (string, error) {
			return spoolPart(ctx, dir, i, part)
		})
	}

	batch, err := h.svc.ImportMedia(r.Context(), id, t, c.Wait())
	if err != nil {
		writeError(w, "upload media", err)
		return
	}
	status := http.StatusCreated
	if len(batch.Media) == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, batch)
}

const uploadWorkers = 4

// spoolPart copies one multipart file into dir, keeping the original
// extension so the stored copy gets the right one.
func spoolPart(ctx context.Context, dir string, i int, part *multipart.FileHeader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open part %s: %w", part.Filename, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filepath.Base(part.Filename)))
	dst := filepath.Join(dir, fmt.Sprintf("%03d%s", i, ext))
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", fmt.Errorf("spool %s: %w", part.Filename, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

// RemoveMedia handles DELETE /api/prompts/{id}/media/{mediaId}.
func (h *Handler) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	mediaID, ok := idParam(w, r, "mediaId")
	if !ok {
		return
	}
	if err := h.svc.RemoveMedia(r.Context(), id, mediaID); err != nil {
		writeError(w, "remove media", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMediaOfType handles DELETE /api/prompts/{id}/media?type=image|video.
func (h *Handler) RemoveMediaOfType(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	n, err := h.svc.RemoveMediaOfType(r.Context(), id, models.MediaType(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, "remove media", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}
