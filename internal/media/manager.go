// Package media copies externally chosen images and videos into the
// app-private media tree and manages their lifecycle:
//
//	<media root>/<promptId>/images/<mediaId>.<ext>
//	<media root>/<promptId>/videos/<mediaId>.<ext>
//
// PromptMedia.RelativePath is always relative to the media root.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/prompthub/internal/models"
	"github.com/starford/prompthub/internal/storage"
)

// Failure describes a source file that could not be imported.
type Failure struct {
	Source string `json:"source"`
	Reason string `json:"error"`
	Err    error  `json:"-"`
}

// Batch is the outcome of ImportFiles. Media preserves source order;
// failed sources are listed in Failures and absent from Media.
type Batch struct {
	Media    []models.PromptMedia `json:"media"`
	Failures []Failure            `json:"failures"`
}

// Manager owns the media root.
type Manager struct {
	fs     storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a manager over fs, which must be rooted at the media root.
func NewManager(fs storage.Provider, logger *slog.Logger) *Manager {
	return &Manager{fs: fs, logger: logger, now: time.Now}
}

// PromptDir is the folder of a prompt relative to the media root.
func PromptDir(promptID uuid.UUID) string {
	return promptID.String()
}

// TypeDir is the images/ or videos/ folder of a prompt relative to the media root.
func TypeDir(promptID uuid.UUID, t models.MediaType) string {
	return path.Join(PromptDir(promptID), t.Folder())
}

// ImportFiles copies each source into the prompt's folder for type t.
// A source whose content is not an image or video of type t is refused.
// Copy failures are recorded per file and do not stop the batch. Once ctx
// is done no further copies start and the remaining sources are reported
// as failed.
func (m *Manager) ImportFiles(ctx context.Context, sources []string, t models.MediaType, promptID uuid.UUID) Batch {
	batch := Batch{Media: []models.PromptMedia{}, Failures: []Failure{}}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			batch.Failures = append(batch.Failures, failure(src, err))
			continue
		}
		item, err := m.importOne(ctx, src, t, promptID)
		if err != nil {
			m.logger.Warn("media: import failed",
				slog.String("source", src),
				slog.String("prompt_id", promptID.String()),
				slog.String("error", err.Error()))
			batch.Failures = append(batch.Failures, failure(src, err))
			continue
		}
		m.logger.Debug("media: imported", slog.String("source", src), slog.String("path", item.RelativePath))
		batch.Media = append(batch.Media, item)
	}
	return batch
}

func failure(src string, err error) Failure {
	return Failure{Source: src, Reason: err.Error(), Err: err}
}

func (m *Manager) importOne(ctx context.Context, src string, t models.MediaType, promptID uuid.UUID) (models.PromptMedia, error) {
	if !t.Valid() {
		return models.PromptMedia{}, fmt.Errorf("media: unknown type %q", t)
	}
	f, err := os.Open(LocalPath(src))
	if err != nil {
		return models.PromptMedia{}, fmt.Errorf("media: open source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.PromptMedia{}, fmt.Errorf("media: stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return models.PromptMedia{}, fmt.Errorf("media: source is not a regular file: %s", src)
	}

	head := make([]byte, SniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return models.PromptMedia{}, fmt.Errorf("media: read source: %w", err)
	}
	head = head[:n]
	if err := CheckContent(head, filepath.Ext(LocalPath(src)), t); err != nil {
		return models.PromptMedia{}, err
	}

	id := uuid.New()
	rel := path.Join(TypeDir(promptID, t), id.String()+"."+extension(src, t))
	if _, err := m.fs.WriteFrom(ctx, rel, io.MultiReader(bytes.NewReader(head), f)); err != nil {
		return models.PromptMedia{}, err
	}
	return models.PromptMedia{
		ID:           id,
		Type:         t,
		RelativePath: rel,
		CreatedAt:    m.now(),
	}, nil
}

// extension returns the lowercased source extension without the dot, or the
// type's default when the source has none.
func extension(src string, t models.MediaType) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(src)), ".")
	if ext == "" {
		return t.DefaultExt()
	}
	return ext
}

// LocalPath turns a file:// URL into a plain path. Other input is returned as is.
func LocalPath(src string) string {
	if !strings.HasPrefix(src, "file://") {
		return src
	}
	u, err := url.Parse(src)
	if err != nil || u.Path == "" {
		return src
	}
	return filepath.FromSlash(u.Path)
}

// Resolve returns the absolute path of a media file. The file may not exist;
// use Exists to check.
func (m *Manager) Resolve(item models.PromptMedia) (string, error) {
	return m.fs.Abs(item.RelativePath)
}

// Exists reports whether the media file is present. A missing asset is not
// an error; consumers render it as missing.
func (m *Manager) Exists(item models.PromptMedia) bool {
	return m.fs.Exists(item.RelativePath)
}

// RemoveOne deletes a single media file. A file that is already gone is fine.
func (m *Manager) RemoveOne(item models.PromptMedia) error {
	if err := m.fs.Delete(item.RelativePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAllOfType deletes the prompt's images/ or videos/ folder.
func (m *Manager) RemoveAllOfType(promptID uuid.UUID, t models.MediaType) error {
	return m.fs.RemoveAll(TypeDir(promptID, t))
}

// RemovePromptFolder deletes everything stored for a prompt.
func (m *Manager) RemovePromptFolder(promptID uuid.UUID) error {
	return m.fs.RemoveAll(PromptDir(promptID))
}

// PromptFromPath extracts the owning prompt id from a path relative to the
// media root.
func PromptFromPath(rel string) (uuid.UUID, bool) {
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	id, err := uuid.Parse(first)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
