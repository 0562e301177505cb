package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/starford/prompthub/internal/testutil"
)

func TestCollector_WaitsForOutOfOrderResolvers(t *testing.T) {
	c := NewCollector(context.Background(), testutil.Logger(), 0)

	delays := []time.Duration{30 * time.Millisecond, 0, 10 * time.Millisecond}
	names := []string{"/a.png", "/b.png", "/c.png"}
	for i := range names {
		name, delay := names[i], delays[i]
		c.Go(func(ctx context.Context) (string, error) {
			time.Sleep(delay)
			return name, nil
		})
	}

	assert.Equal(t, names, c.Wait(), "results keep submission order")
}

func TestCollector_SkipsFailuresAndDuplicates(t *testing.T) {
	c := NewCollector(context.Background(), testutil.Logger(), 2)
	c.Go(func(context.Context) (string, error) { return "/a.png", nil })
	c.Go(func(context.Context) (string, error) { return "", errors.New("provider gave no file") })
	c.Go(func(context.Context) (string, error) { return "/a.png", nil })
	c.Go(func(context.Context) (string, error) { return "file:///a.png", nil })
	c.Go(func(context.Context) (string, error) { return "  ", nil })

	assert.Equal(t, []string{"/a.png"}, c.Wait())
}

func TestCollector_NoResolvers(t *testing.T) {
	c := NewCollector(context.Background(), testutil.Logger(), 0)
	assert.Empty(t, c.Wait())
}
