package media

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/prompthub/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ReportsAddedAndMissing(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	events := map[string]string{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, root, testutil.Logger(), func(kind, rel string) {
			mu.Lock()
			events[rel] = kind
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	dir := filepath.Join(root, "p1", "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	file := filepath.Join(dir, "a.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	has := func(rel, kind string) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			return events[rel] == kind
		}
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, has("p1/images/a.png", EventAdded), "expected added event")

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, has("p1/images/a.png", EventMissing), "expected missing event")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop")
	}
}
