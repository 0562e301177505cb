package hubservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/prompthub/internal/apperr"
	"github.com/starford/prompthub/internal/filter"
	"github.com/starford/prompthub/internal/media"
	"github.com/starford/prompthub/internal/modelstore"
	"github.com/starford/prompthub/internal/models"
	"github.com/starford/prompthub/internal/prefs"
	"github.com/starford/prompthub/internal/promptstore"
	"github.com/starford/prompthub/internal/storage"
	"github.com/starford/prompthub/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) Notify(kind string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kinds...)
}

type env struct {
	svc       *Service
	events    *recorder
	mediaRoot string
}

// newEnv builds a service over empty stores in a temp data directory.
func newEnv(t *testing.T) env {
	t.Helper()
	return newEnvWithMediaLog(t, testutil.Logger())
}

func newEnvWithMediaLog(t *testing.T, mediaLog *slog.Logger) env {
	t.Helper()
	dir, dataFS := testutil.TestDataDir(t)
	mediaRoot := filepath.Join(dir, "media")
	require.NoError(t, os.MkdirAll(mediaRoot, 0o755))
	mediaFS, err := storage.NewFS(mediaRoot)
	require.NoError(t, err)

	logger := testutil.Logger()
	db := testutil.TestKV(t)
	rec := &recorder{}
	svc := New(
		modelstore.New(dataFS, db, logger),
		promptstore.New(dataFS, logger),
		media.NewManager(mediaFS, mediaLog),
		prefs.New(db, logger),
		logger,
		rec,
	)
	return env{svc: svc, events: rec, mediaRoot: mediaRoot}
}

func strPtr(s string) *string { return &s }

// hookHandler calls fn for every log record with message msg.
type hookHandler struct {
	msg string
	fn  func()
}

func (h hookHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h hookHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == h.msg {
		h.fn()
	}
	return nil
}

func (h hookHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h hookHandler) WithGroup(string) slog.Handler      { return h }

func TestSaveModel_CreateAndUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	m, err := e.svc.SaveModel(ctx, nil, ModelInput{Name: "  GPT-4o ", Type: models.ModelTypeChat, Vendor: models.VendorOpenAI})
	require.NoError(t, err)
	assert.Equal(t, "GPT-4o", m.Name)
	assert.False(t, m.CreatedAt.IsZero())

	other, err := e.svc.SaveModel(ctx, nil, ModelInput{Name: "Claude", Type: models.ModelTypeChat, Vendor: models.VendorAnthropic})
	require.NoError(t, err)
	assert.Equal(t, other.ID, e.svc.Models()[0].ID, "new models go first")

	// Renaming to its own name in a different case is not a conflict.
	updated, err := e.svc.SaveModel(ctx, &m.ID, ModelInput{Name: "gpt-4O", Type: models.ModelTypeCode, Vendor: models.VendorOpenAI})
	require.NoError(t, err)
	assert.Equal(t, m.ID, updated.ID)
	assert.Equal(t, m.CreatedAt, updated.CreatedAt)
	assert.Equal(t, models.ModelTypeCode, updated.Type)
	assert.Len(t, e.svc.Models(), 2)

	assert.Equal(t, []string{EventModelSaved, EventModelSaved, EventModelSaved}, e.events.Kinds())
}

func TestSaveModel_ValidationLeavesStoreUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.SaveModel(ctx, nil, ModelInput{Name: "   ", Type: models.ModelTypeChat, Vendor: models.VendorCustom, CustomVendorName: strPtr(" ")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	var fields validation.Errors
	require.True(t, errors.As(err, &fields))
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "customVendorName")

	assert.Empty(t, e.svc.Models())
	assert.Empty(t, e.events.Kinds())
}

func TestSaveModel_DuplicateName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.SaveModel(ctx, nil, ModelInput{Name: "GPT-4o", Type: models.ModelTypeChat, Vendor: models.VendorOpenAI})
	require.NoError(t, err)
	_, err = e.svc.SaveModel(ctx, nil, ModelInput{Name: " gpt-4o ", Type: models.ModelTypeCode, Vendor: models.VendorOpenAI})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Len(t, e.svc.Models(), 1)
}

func TestSaveModel_ConcurrentSameName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 12
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.SaveModel(ctx, nil, ModelInput{Name: "Gemini", Type: models.ModelTypeChat, Vendor: models.VendorGoogle})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	saved := 0
	for err := range errs {
		if err == nil {
			saved++
			continue
		}
		assert.True(t, errors.Is(err, apperr.ErrConflict), err.Error())
	}
	assert.Equal(t, 1, saved)
	assert.Len(t, e.svc.Models(), 1)
}

func TestSaveModel_UnknownID(t *testing.T) {
	e := newEnv(t)
	id := uuid.New()
	_, err := e.svc.SaveModel(context.Background(), &id, ModelInput{Name: "x", Type: models.ModelTypeChat, Vendor: models.VendorOpenAI})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDeleteModel_ClearsDanglingReferences(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	img, err := e.svc.SaveModel(ctx, nil, ModelInput{Name: "Painter", Type: models.ModelTypeImage, Vendor: models.VendorOpenAI})
	require.NoError(t, err)
	p, err := e.svc.SavePrompt(ctx, uuid.New(), PromptInput{Title: "Cat", Content: "draw a cat", ModelID: &img.ID}, "")
	require.NoError(t, err)

	q := filter.PromptQuery{ModelType: models.ModelTypeImage}
	require.Len(t, e.svc.ListPrompts(ctx, q), 1)

	require.NoError(t, e.svc.DeleteModel(ctx, img.ID))

	got, err := e.svc.Prompt(p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ModelID)
	assert.Nil(t, got.Model)
	assert.Empty(t, e.svc.ListPrompts(ctx, q))

	assert.True(t, errors.Is(e.svc.DeleteModel(ctx, img.ID), apperr.ErrNotFound))
}

func TestSavePrompt_StampsAndChecksum(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e.svc.now = func() time.Time { return base }

	tag, _, err := e.svc.CreateTag(ctx, "Code", "purple")
	require.NoError(t, err)

	id := uuid.New()
	d, err := e.svc.SavePrompt(ctx, id, PromptInput{
		Content: "# Review\n\nCheck this diff.\n```go\nx := 1\n```",
		Tags:    []uuid.UUID{tag.ID, tag.ID},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.UntitledPrompt, d.Title)
	assert.Equal(t, base, d.UpdatedAt)
	assert.Equal(t, []uuid.UUID{tag.ID}, d.Tags)
	assert.Len(t, d.TagList, 1)
	assert.Equal(t, []string{"go"}, d.Markdown.Languages())
	assert.NotEmpty(t, d.Checksum)

	e.svc.now = func() time.Time { return base.Add(time.Minute) }
	_, err = e.svc.SavePrompt(ctx, id, PromptInput{Title: "stale"}, "not-the-checksum")
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	d2, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "Review"}, d.Checksum)
	require.NoError(t, err)
	assert.Equal(t, "Review", d2.Title)
	assert.Equal(t, base.Add(time.Minute), d2.UpdatedAt)
	assert.NotEqual(t, d.Checksum, d2.Checksum)
}

func TestSavePrompt_KeepsMedia(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "P"}, "")
	require.NoError(t, err)
	_, err = e.svc.ImportMedia(ctx, id, models.MediaImage, []string{testutil.MediaFile(t, "a.png")})
	require.NoError(t, err)

	d, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "P2"}, "")
	require.NoError(t, err)
	assert.Len(t, d.Media, 1, "editing text must not drop media")
}

func TestSavePrompt_ConcurrentImportKeepsMedia(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "P"}, "")
	require.NoError(t, err)

	const n = 8
	srcs := make([]string, n)
	for i := range srcs {
		srcs[i] = testutil.MediaFile(t, fmt.Sprintf("%d.png", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(src string) {
			defer wg.Done()
			_, err := e.svc.ImportMedia(ctx, id, models.MediaImage, []string{src})
			assert.NoError(t, err)
		}(srcs[i])
		go func(i int) {
			defer wg.Done()
			_, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: fmt.Sprintf("v%d", i)}, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	d, err := e.svc.Prompt(id)
	require.NoError(t, err)
	assert.Len(t, d.Media, n, "text edits must not drop concurrently attached media")
	assert.Empty(t, d.Missing)
}

func TestSavePrompt_IfMatchAfterDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := uuid.New()
	d, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "P"}, "")
	require.NoError(t, err)
	require.NoError(t, e.svc.DeletePrompt(ctx, id))

	_, err = e.svc.SavePrompt(ctx, id, PromptInput{Title: "stale edit"}, d.Checksum)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = e.svc.Prompt(id)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "a stale edit must not bring the prompt back")
}

func TestImportMedia_PromptDeletedWhileCopying(t *testing.T) {
	id := uuid.New()
	var e env
	var once sync.Once
	e = newEnvWithMediaLog(t, slog.New(hookHandler{
		msg: "media: imported",
		fn:  func() { once.Do(func() { e.svc.prompts.Remove(id) }) },
	}))
	ctx := context.Background()

	_, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "P"}, "")
	require.NoError(t, err)

	_, err = e.svc.ImportMedia(ctx, id, models.MediaImage, []string{
		testutil.MediaFile(t, "a.png"), testutil.MediaFile(t, "b.png"),
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = os.Stat(filepath.Join(e.mediaRoot, media.PromptDir(id)))
	assert.True(t, os.IsNotExist(err), "no empty folder may be left for a deleted prompt")
	assert.NotContains(t, e.events.Kinds(), EventMediaAdded)
}

func TestImportMedia_PartialFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "P"}, "")
	require.NoError(t, err)

	good := testutil.MediaFile(t, "a.JPG")
	batch, err := e.svc.ImportMedia(ctx, id, models.MediaImage, []string{good, good, "/does/not/exist.png", ""})
	require.NoError(t, err)
	require.Len(t, batch.Media, 1, "duplicates and blanks are collapsed")
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "/does/not/exist.png", batch.Failures[0].Source)

	d, err := e.svc.Prompt(id)
	require.NoError(t, err)
	require.Len(t, d.Media, 1)
	assert.Empty(t, d.Missing)

	abs, err := e.svc.MediaFile(d.Media[0].RelativePath)
	require.NoError(t, err)
	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, testutil.MediaBytes(".jpg", "a.JPG"), data)
	assert.Equal(t, ".jpg", filepath.Ext(abs))
}

func TestImportMedia_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.ImportMedia(ctx, uuid.New(), models.MediaImage, []string{"x"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = e.svc.ImportMedia(ctx, uuid.New(), models.MediaType("audio"), nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestDeletePrompt_RemovesMediaFolder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "P"}, "")
	require.NoError(t, err)

	_, err = e.svc.ImportMedia(ctx, id, models.MediaImage, []string{
		testutil.MediaFile(t, "a.png"), testutil.MediaFile(t, "b.png"),
	})
	require.NoError(t, err)
	_, err = e.svc.ImportMedia(ctx, id, models.MediaVideo, []string{testutil.MediaFile(t, "c.mp4")})
	require.NoError(t, err)

	folder := filepath.Join(e.mediaRoot, media.PromptDir(id))
	_, err = os.Stat(folder)
	require.NoError(t, err)

	require.NoError(t, e.svc.DeletePrompt(ctx, id))
	_, err = os.Stat(folder)
	assert.True(t, os.IsNotExist(err))

	_, err = e.svc.Prompt(id)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.True(t, errors.Is(e.svc.DeletePrompt(ctx, id), apperr.ErrNotFound))
}

func TestRemoveMedia(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := e.svc.SavePrompt(ctx, id, PromptInput{Title: "P"}, "")
	require.NoError(t, err)
	imgs, err := e.svc.ImportMedia(ctx, id, models.MediaImage, []string{testutil.MediaFile(t, "a.png"), testutil.MediaFile(t, "b.png")})
	require.NoError(t, err)
	_, err = e.svc.ImportMedia(ctx, id, models.MediaVideo, []string{testutil.MediaFile(t, "c.mov")})
	require.NoError(t, err)

	first := imgs.Media[0]
	require.NoError(t, e.svc.RemoveMedia(ctx, id, first.ID))
	_, err = e.svc.MediaFile(first.RelativePath)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.True(t, errors.Is(e.svc.RemoveMedia(ctx, id, first.ID), apperr.ErrNotFound))

	n, err := e.svc.RemoveMediaOfType(ctx, id, models.MediaVideo)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d, err := e.svc.Prompt(id)
	require.NoError(t, err)
	require.Len(t, d.Media, 1)
	assert.Equal(t, imgs.Media[1].ID, d.Media[0].ID)
	_, err = os.Stat(filepath.Join(e.mediaRoot, media.TypeDir(id, models.MediaVideo)))
	assert.True(t, os.IsNotExist(err))
}

func TestMediaFile_Traversal(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.MediaFile("../../etc/passwd")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestListPrompts_AllTagsSelectedMeansNoTagFilter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _, err := e.svc.CreateTag(ctx, "A", "purple")
	require.NoError(t, err)
	b, _, err := e.svc.CreateTag(ctx, "B", "orange")
	require.NoError(t, err)
	for _, in := range []PromptInput{
		{Title: "both", Tags: []uuid.UUID{a.ID, b.ID}},
		{Title: "only a", Tags: []uuid.UUID{a.ID}},
		{Title: "none"},
	} {
		_, err := e.svc.SavePrompt(ctx, uuid.New(), in, "")
		require.NoError(t, err)
	}

	q := filter.PromptQuery{SelectedTags: filter.TagSet([]uuid.UUID{a.ID})}
	assert.Len(t, e.svc.ListPrompts(ctx, q), 2)

	q.SelectedTags = filter.TagSet([]uuid.UUID{a.ID, b.ID})
	assert.Len(t, e.svc.ListPrompts(ctx, q), 3)
}

func TestToggleTag(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, _, err := e.svc.CreateTag(ctx, "A", "purple")
	require.NoError(t, err)
	b, _, err := e.svc.CreateTag(ctx, "B", "orange")
	require.NoError(t, err)

	sel, err := e.svc.ToggleTag(TagToggle{TagID: a.ID, On: true})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, sel)

	sel, err = e.svc.ToggleTag(TagToggle{Selected: sel, TagID: b.ID, On: true})
	require.NoError(t, err)
	assert.Empty(t, sel, "selecting every tag collapses")

	sel, err = e.svc.ToggleTag(TagToggle{Selected: []uuid.UUID{a.ID, b.ID, uuid.New()}, TagID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, sel, "deleted tag ids are dropped")

	_, err = e.svc.ToggleTag(TagToggle{TagID: uuid.New(), On: true})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestTags(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, created, err := e.svc.CreateTag(ctx, "Marketing", "orange")
	require.NoError(t, err)
	assert.True(t, created)

	b, created, err := e.svc.CreateTag(ctx, " marketing ", "#FFAA00")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)

	_, _, err = e.svc.CreateTag(ctx, "x", "chartreuse")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	assert.Len(t, e.svc.Tags("mark"), 1)
	assert.Empty(t, e.svc.Tags("zzz"))

	require.NoError(t, e.svc.DeleteTag(ctx, a.ID))
	assert.True(t, errors.Is(e.svc.DeleteTag(ctx, a.ID), apperr.ErrNotFound))
	assert.Equal(t, []string{EventTagCreated, EventTagDeleted}, e.events.Kinds())
}

func TestToggleFilter_PersistsAndCollapses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.SaveModel(ctx, nil, ModelInput{Name: "A", Type: models.ModelTypeChat, Vendor: models.VendorOpenAI})
	require.NoError(t, err)
	_, err = e.svc.SaveModel(ctx, nil, ModelInput{Name: "B", Type: models.ModelTypeImage, Vendor: models.VendorCustom, CustomVendorName: strPtr("acme")})
	require.NoError(t, err)

	f, err := e.svc.ToggleFilter(ctx, FilterToggle{Dimension: DimensionVendor, Value: string(models.VendorOpenAI), On: true})
	require.NoError(t, err)
	assert.True(t, f.HasVendor(models.VendorOpenAI))
	assert.Len(t, e.svc.ListModels(ctx, ""), 1)

	f, err = e.svc.ToggleFilter(ctx, FilterToggle{Dimension: DimensionCustomVendor, Value: "acme", On: true})
	require.NoError(t, err)
	assert.True(t, f.IsEmpty(), "selecting every vendor option collapses")
	assert.True(t, e.svc.ModelFilter(ctx).IsEmpty())
	assert.Len(t, e.svc.ListModels(ctx, ""), 2)

	_, err = e.svc.ToggleFilter(ctx, FilterToggle{Dimension: DimensionType, Value: "hologram", On: true})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = e.svc.ToggleFilter(ctx, FilterToggle{Dimension: "color", Value: "x"})
	assert.True(t, errors.Is(err, ErrUnknownDimension))
}

func TestClearFilter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	f := models.NewModelFilter()
	f.SelectedTypes[models.ModelTypeCode] = struct{}{}
	f.SelectedVendors[models.VendorGoogle] = struct{}{}
	e.svc.SetModelFilter(ctx, f)

	got, err := e.svc.ClearFilter(ctx, DimensionType)
	require.NoError(t, err)
	assert.Empty(t, got.SelectedTypes)
	assert.True(t, got.HasVendor(models.VendorGoogle))

	got, err = e.svc.ClearFilter(ctx, "")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestSettings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Equal(t, prefs.DefaultSettings(), e.svc.Settings(ctx))
	require.NoError(t, e.svc.SaveSettings(ctx, prefs.Settings{Language: prefs.LanguageEnglish, Appearance: prefs.AppearanceDark}))
	assert.Equal(t, prefs.LanguageEnglish, e.svc.Settings(ctx).Language)
	assert.True(t, errors.Is(e.svc.SaveSettings(ctx, prefs.Settings{}), apperr.ErrValidation))
}

func TestHandleMediaEvent(t *testing.T) {
	e := newEnv(t)
	id := uuid.New()
	e.svc.HandleMediaEvent(media.EventMissing, id.String()+"/images/x.png")
	e.svc.HandleMediaEvent(media.EventAdded, "stray.txt")
	e.svc.HandleMediaEvent("renamed", "ignored")
	assert.Equal(t, []string{EventMediaMissing, EventMediaAdded}, e.events.Kinds())
}
