package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte(`[{"name":"Claude"}]`)
	if err := s.Write("models.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("models.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("media/p1/images/a.png", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Exists("media/p1/images/a.png") {
		t.Error("file should exist")
	}
}

func TestWriteFrom(t *testing.T) {
	s := tempRoot(t)
	n, err := s.WriteFrom(context.Background(), "a/b.bin", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("WriteFrom: %v", err)
	}
	if n != int64(len("payload")) {
		t.Errorf("n = %d", n)
	}
	got, _ := s.Read("a/b.bin")
	if string(got) != "payload" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteFromCancelled(t *testing.T) {
	s := tempRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.WriteFrom(ctx, "c.bin", bytes.NewReader(make([]byte, 1024)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if s.Exists("c.bin") {
		t.Error("cancelled write must not leave a file")
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".prompthub-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.json", []byte("bye"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
	err := s.Delete("del.json")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second delete err = %v, want ErrNotExist", err)
	}
}

func TestRemoveAll(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("media/p1/images/a.png", []byte("a"))
	_ = s.Write("media/p1/videos/b.mov", []byte("b"))
	if err := s.RemoveAll("media/p1"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "media", "p1")); !os.IsNotExist(err) {
		t.Error("folder should be gone")
	}
	if err := s.RemoveAll("media/missing"); err != nil {
		t.Errorf("missing folder should not error: %v", err)
	}
	if err := s.RemoveAll(""); err == nil {
		t.Error("removing root must fail")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.RemoveAll(p); err == nil {
			t.Errorf("expected error for remove of %q", p)
		}
		if s.Exists(p) {
			t.Errorf("Exists(%q) should be false", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.json", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".prompthub-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "prompthub-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
