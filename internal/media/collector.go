package media

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ResolveFunc produces one source path, e.g. from a drag-and-drop provider.
type ResolveFunc func(ctx context.Context) (string, error)

// Collector gathers source paths that resolve asynchronously and possibly
// out of order, so they can be imported as a single batch.
type Collector struct {
	ctx    context.Context
	logger *slog.Logger
	g      errgroup.Group

	mu    sync.Mutex
	slots []string
}

// NewCollector creates a collector. At most limit resolvers run at once;
// limit <= 0 means no limit.
func NewCollector(ctx context.Context, logger *slog.Logger, limit int) *Collector {
	c := &Collector{ctx: ctx, logger: logger}
	if limit > 0 {
		c.g.SetLimit(limit)
	}
	return c
}

// Go schedules a resolver. A failing resolver is logged and skipped; it
// never aborts the others.
func (c *Collector) Go(fn ResolveFunc) {
	c.mu.Lock()
	idx := len(c.slots)
	c.slots = append(c.slots, "")
	c.mu.Unlock()

	c.g.Go(func() error {
		p, err := fn(c.ctx)
		if err != nil {
			c.logger.Warn("media: resolve failed", slog.String("error", err.Error()))
			return nil
		}
		c.mu.Lock()
		c.slots[idx] = p
		c.mu.Unlock()
		return nil
	})
}

// Wait blocks until every resolver has finished and returns the resolved
// paths in submission order, without blanks or duplicates.
func (c *Collector) Wait() []string {
	_ = c.g.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return Dedupe(c.slots)
}

// Dedupe drops empty and repeated paths, keeping first occurrences.
func Dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = LocalPath(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
