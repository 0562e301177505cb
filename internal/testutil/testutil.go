// Package testutil provides shared test helpers for setting up data
// directories, preference stores and media fixtures.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/prompthub/internal/kv"
	"github.com/starford/prompthub/internal/storage"
)

// TestKV creates a temporary SQLite key-value store that is automatically closed.
func TestKV(t *testing.T) *kv.SQLite {
	t.Helper()
	db, err := kv.OpenSQLite(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDataDir creates a temporary data directory with a storage provider.
func TestDataDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger returns a logger that discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Leading bytes of each accepted media format, enough for content sniffing.
var mediaHeaders = map[string]string{
	".png":  "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR",
	".jpg":  "\xff\xd8\xff\xe0\x00\x10JFIF\x00",
	".jpeg": "\xff\xd8\xff\xe0\x00\x10JFIF\x00",
	".gif":  "GIF89a\x01\x00\x01\x00",
	".webp": "RIFF\x00\x00\x00\x00WEBPVP8 ",
	".heic": "\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic",
	".mp4":  "\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom",
	".mov":  "\x00\x00\x00\x14ftypqt  \x00\x00\x00\x00qt  ",
}

// MediaBytes returns a minimal file of the format named by ext followed by
// tail. It panics on an unknown format.
func MediaBytes(ext, tail string) []byte {
	header, ok := mediaHeaders[strings.ToLower(ext)]
	if !ok {
		panic("testutil: no media fixture for " + ext)
	}
	return []byte(header + tail)
}

// MediaFile writes a file named name holding media of the format its
// extension names and returns the path. The name is appended to the content
// so files differ.
func MediaFile(t *testing.T, name string) string {
	t.Helper()
	return MediaFileAs(t, name, filepath.Ext(name))
}

// MediaFileAs is MediaFile with the content format given explicitly.
func MediaFileAs(t *testing.T, name, ext string) string {
	t.Helper()
	return WriteFile(t, name, MediaBytes(ext, name))
}

// WriteFile writes content to name in a fresh temp dir and returns the path.
func WriteFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
