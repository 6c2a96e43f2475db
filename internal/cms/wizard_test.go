package cms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/funnelmkt/internal/errors"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type recordingOpener struct {
	opened []*Preview
	err    error
}

func (o *recordingOpener) Open(ctx context.Context, p *Preview) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	o.opened = append(o.opened, p)
	return "mem://" + p.ID, nil
}

func TestWizard_StepsAndPreviewOnce(t *testing.T) {
	opener := &recordingOpener{}
	w := NewWizard(opener, nil)
	ctx := context.Background()

	assert.Equal(t, StepHeader, w.Step())

	p, err := w.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, StepContent, w.Step())

	p, err = w.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, StepReview, w.Step())
	assert.Empty(t, opener.opened, "no preview before the review step")

	p, err = w.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, StepReview, w.Step(), "step stays on review")
	assert.Len(t, opener.opened, 1)
	assert.Equal(t, "mem://"+p.ID, p.Location)
}

func TestWizard_NextDoesNotChangeData(t *testing.T) {
	w := NewWizard(&recordingOpener{}, nil)
	_, err := w.AddTitle("Welcome")
	require.NoError(t, err)
	before := w.Document()

	_, err = w.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, w.Document())
}

func TestWizard_PreviousFloorsAtOne(t *testing.T) {
	w := NewWizard(nil, nil)
	w.Previous()
	assert.Equal(t, StepHeader, w.Step())

	_, _ = w.Next(context.Background())
	w.Previous()
	w.Previous()
	assert.Equal(t, StepHeader, w.Step())
}

func TestWizard_PreviewBlocked(t *testing.T) {
	w := NewWizard(&recordingOpener{err: fmt.Errorf("popup blocked")}, nil)
	for range 2 {
		_, _ = w.Next(context.Background())
	}

	_, err := w.Next(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPreviewBlocked))
	assert.Contains(t, err.Error(), "popup blocked")
	assert.Equal(t, StepReview, w.Step())

	_, err = NewWizard(nil, nil).Preview(context.Background())
	assert.True(t, errors.Is(err, errors.ErrPreviewBlocked))
}

func TestWizard_Blocks(t *testing.T) {
	w := NewWizard(nil, nil)

	a, err := w.AddTitle("  First  ")
	require.NoError(t, err)
	assert.Equal(t, "First", a.Text)
	assert.Len(t, a.ID, 26)

	b, err := w.AddTitle("Second")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = w.AddTitle("   ")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	assert.True(t, w.RemoveTitle(a.ID))
	assert.False(t, w.RemoveTitle(a.ID))
	titles := w.Document().Titles
	require.Len(t, titles, 1)
	assert.Equal(t, "Second", titles[0].Text)

	c, err := w.AddContent("**bold**")
	require.NoError(t, err)
	assert.True(t, w.RemoveContent(c.ID))
	assert.Empty(t, w.Document().Contents)
}

func TestWizard_SnapshotsAreCopies(t *testing.T) {
	w := NewWizard(nil, nil)
	_, _ = w.AddTitle("One")
	_, _ = w.AddTitle("Two")

	doc := w.Document()
	doc.Titles[0].Text = "changed"
	assert.Equal(t, "One", w.Document().Titles[0].Text)
}

func TestWizard_UpdateSettings(t *testing.T) {
	w := NewWizard(nil, nil)

	err := w.UpdateSettings(Settings{Title: " Hello ", BackgroundColor: "#000"})
	require.NoError(t, err)
	s := w.Document().Settings
	assert.Equal(t, "Hello", s.Title)
	assert.Equal(t, "#000", s.BackgroundColor)
	assert.Equal(t, DefaultTextColor, s.TextColor)
	assert.Equal(t, DefaultFontSize, s.FontSize)

	err = w.UpdateSettings(Settings{Title: "Bad", TextColor: "red; background: url(x)", FontSize: 200})
	require.Error(t, err)
	fields := errors.FieldErrors(err)
	assert.Contains(t, fields, "text_color")
	assert.Contains(t, fields, "font_size")
	assert.Equal(t, "Hello", w.Document().Settings.Title, "rejected update leaves settings alone")
}

func TestWizard_Load(t *testing.T) {
	opener := &recordingOpener{}
	w := NewWizard(opener, nil)

	err := w.Load(Document{
		Settings: Settings{Title: "Spring sale"},
		Titles:   []Block{{ID: "t1", Text: "Offers"}},
		Contents: []Block{{ID: "c1", Text: "**Half** price"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StepHeader, w.Step(), "load keeps the step")

	doc := w.Document()
	assert.Equal(t, "Spring sale", doc.Settings.Title)
	assert.Equal(t, DefaultBackgroundColor, doc.Settings.BackgroundColor)
	require.Len(t, doc.Titles, 1)
	require.Len(t, doc.Contents, 1)

	p, err := w.Preview(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(p.HTML), "<strong>Half</strong>")

	err = w.Load(Document{Settings: Settings{FontSize: 3}})
	require.Error(t, err)
	assert.Equal(t, "Spring sale", w.Document().Settings.Title, "rejected load leaves the document alone")
}

func TestWizard_ImagesRevokedOnRemoveAndReset(t *testing.T) {
	store := NewImageStore()
	w := NewWizard(nil, store)

	img1, err := w.AddImage("logo.png", "", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img1.ContentType)
	assert.Equal(t, ImageURLPrefix+img1.ID, img1.URL)

	img2, err := w.AddImage("hero.png", "image/png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	assert.True(t, w.RemoveImage(img1.ID))
	_, _, ok := store.Get(img1.ID)
	assert.False(t, ok, "removed image is revoked")
	assert.Equal(t, 1, store.Len())

	_, _ = w.Next(context.Background())
	w.Reset()
	_, _, ok = store.Get(img2.ID)
	assert.False(t, ok, "reset revokes every image")
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, StepHeader, w.Step())
	assert.Equal(t, DefaultSettings(), w.Document().Settings)
}

func TestImageStore_Rejects(t *testing.T) {
	s := NewImageStore()

	_, err := s.Put("empty.png", "image/png", nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = s.Put("notes.txt", "text/plain", []byte("hello world"))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = s.Put("huge.png", "image/png", make([]byte, MaxImageBytes+1))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestGeneratePreview(t *testing.T) {
	doc := Document{
		Settings: Settings{
			Title:      "Spring <Sale>",
			Subtitle:   "Up to 50% off",
			BodyText:   "Visit **today**",
			FooterText: "© Acme",
			TextColor:  "#112233",
			FontFamily: "Georgia",
			FontSize:   18,
		},
		Titles:   []Block{{ID: "t1", Text: "Why us"}},
		Contents: []Block{{ID: "c1", Text: "- fast\n- cheap"}, {ID: "c2", Text: "<script>alert(1)</script>"}},
		Images:   []Image{{ID: "i1", Name: "hero", URL: "/cms/images/i1"}},
	}

	p, err := GeneratePreview(doc, time.Now())
	require.NoError(t, err)
	html := string(p.HTML)

	assert.Contains(t, html, "<h1>Spring &lt;Sale&gt;</h1>")
	assert.Contains(t, html, "<strong>today</strong>")
	assert.Contains(t, html, "<li>fast</li>")
	assert.Contains(t, html, "<h2>Why us</h2>")
	assert.Contains(t, html, `<img src="/cms/images/i1" alt="hero">`)
	assert.Contains(t, html, "color: #112233")
	assert.Contains(t, html, "font-family: Georgia")
	assert.Contains(t, html, "font-size: 18px")
	assert.Contains(t, html, "background-color: #ffffff")
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestGeneratePreview_InvalidSettings(t *testing.T) {
	_, err := GeneratePreview(Document{Settings: Settings{FontFamily: "x}</style>"}}, time.Now())
	assert.True(t, errors.Is(err, errors.ErrValidationFailed))
}

func TestPreviewStore_Retention(t *testing.T) {
	s := NewPreviewStore(2)
	ctx := context.Background()

	var ids []string
	for i := range 3 {
		p := &Preview{ID: fmt.Sprintf("p%d", i)}
		loc, err := s.Open(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, PreviewURLPrefix+p.ID, loc)
		ids = append(ids, p.ID)
	}

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get(ids[0])
	assert.False(t, ok, "oldest evicted")
	_, ok = s.Get(ids[2])
	assert.True(t, ok)
}

func TestPreviewStore_Disabled(t *testing.T) {
	_, err := NewPreviewStore(0).Open(context.Background(), &Preview{ID: "x"})
	assert.True(t, errors.Is(err, errors.ErrPreviewBlocked))
}

func TestBrowserOpener(t *testing.T) {
	dir := t.TempDir()
	var launched string
	o := &BrowserOpener{Dir: dir, Launch: func(ctx context.Context, target string) error {
		launched = target
		return nil
	}}

	loc, err := o.Open(context.Background(), &Preview{ID: "abc", HTML: []byte("<p>hi</p>")})
	require.NoError(t, err)
	assert.Equal(t, loc, launched)
	assert.True(t, strings.HasPrefix(loc, "file://"))

	data, err := os.ReadFile(filepath.Join(dir, "preview-abc.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(data))
}

func TestBrowserOpener_LaunchFailureIsBlocked(t *testing.T) {
	o := &BrowserOpener{Dir: t.TempDir(), Launch: func(ctx context.Context, target string) error {
		return fmt.Errorf("no browser")
	}}
	_, err := o.Open(context.Background(), &Preview{ID: "abc"})
	assert.True(t, errors.Is(err, errors.ErrPreviewBlocked))
}
